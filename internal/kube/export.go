// Package kube renders cert-manager and Kubernetes manifests from the
// issued hierarchy: a CA key pair Secret, a ClusterIssuer referencing it,
// a Certificate request template and an Ingress example wired to the
// issuer. Manifests are typed structs marshalled as YAML, never string
// templates.
package kube

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/clusterpki/clpki/internal/fsutil"
)

// Manifest file names under the export directory.
const (
	SecretFile      = "ca-secret.yaml"
	IssuerFile      = "cluster-issuer.yaml"
	CertificateFile = "certificate-template.yaml"
	IngressFile     = "ingress-example.yaml"
)

// Input carries the PEM material and naming for an export run.
type Input struct {
	// ChainPEM is the intermediate+root CA bundle.
	ChainPEM []byte
	// IntermediateKeyPEM is the unencrypted intermediate signing key.
	IntermediateKeyPEM []byte
	// RootCertPEM is the root certificate alone, for clients that pin
	// the trust anchor directly.
	RootCertPEM []byte

	Namespace       string
	SecretName      string
	IssuerName      string
	CertificateName string
	DNSNames        []string
}

func (in Input) validate() error {
	if len(in.ChainPEM) == 0 {
		return fmt.Errorf("export input: chain PEM is empty")
	}
	if len(in.IntermediateKeyPEM) == 0 {
		return fmt.Errorf("export input: intermediate key PEM is empty")
	}
	if len(in.RootCertPEM) == 0 {
		return fmt.Errorf("export input: root certificate PEM is empty")
	}
	if in.Namespace == "" || in.SecretName == "" || in.IssuerName == "" {
		return fmt.Errorf("export input: namespace, secret name and issuer name are required")
	}
	return nil
}

type metadata struct {
	Name        string            `yaml:"name"`
	Namespace   string            `yaml:"namespace,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

type secretManifest struct {
	APIVersion string            `yaml:"apiVersion"`
	Kind       string            `yaml:"kind"`
	Metadata   metadata          `yaml:"metadata"`
	Type       string            `yaml:"type"`
	Data       map[string]string `yaml:"data"`
}

type issuerManifest struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   metadata `yaml:"metadata"`
	Spec       struct {
		CA struct {
			SecretName string `yaml:"secretName"`
		} `yaml:"ca"`
	} `yaml:"spec"`
}

type certificateManifest struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   metadata `yaml:"metadata"`
	Spec       struct {
		SecretName string   `yaml:"secretName"`
		DNSNames   []string `yaml:"dnsNames"`
		IssuerRef  struct {
			Name string `yaml:"name"`
			Kind string `yaml:"kind"`
		} `yaml:"issuerRef"`
	} `yaml:"spec"`
}

type ingressManifest struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   metadata `yaml:"metadata"`
	Spec       struct {
		TLS   []ingressTLS  `yaml:"tls"`
		Rules []ingressRule `yaml:"rules"`
	} `yaml:"spec"`
}

type ingressTLS struct {
	Hosts      []string `yaml:"hosts"`
	SecretName string   `yaml:"secretName"`
}

type ingressRule struct {
	Host string `yaml:"host"`
	HTTP struct {
		Paths []ingressPath `yaml:"paths"`
	} `yaml:"http"`
}

type ingressPath struct {
	Path     string `yaml:"path"`
	PathType string `yaml:"pathType"`
	Backend  struct {
		Service struct {
			Name string `yaml:"name"`
			Port struct {
				Number int `yaml:"number"`
			} `yaml:"port"`
		} `yaml:"service"`
	} `yaml:"backend"`
}

// Adapter writes manifests into a target directory.
type Adapter struct {
	dir string
}

// NewAdapter creates an adapter writing into dir.
func NewAdapter(dir string) *Adapter {
	return &Adapter{dir: dir}
}

// Export renders all manifests and returns the written paths. Files are
// written atomically; a failed run never leaves a truncated manifest.
func (a *Adapter) Export(in Input) ([]string, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", a.dir, err)
	}

	files := []struct {
		name     string
		manifest any
	}{
		{SecretFile, a.secret(in)},
		{IssuerFile, a.issuer(in)},
		{CertificateFile, a.certificate(in)},
		{IngressFile, a.ingress(in)},
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(a.dir, f.name)
		if err := writeManifest(path, f.manifest); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (a *Adapter) secret(in Input) secretManifest {
	enc := base64.StdEncoding
	return secretManifest{
		APIVersion: "v1",
		Kind:       "Secret",
		Metadata:   metadata{Name: in.SecretName, Namespace: in.Namespace},
		Type:       "kubernetes.io/tls",
		Data: map[string]string{
			"tls.crt": enc.EncodeToString(in.ChainPEM),
			"tls.key": enc.EncodeToString(in.IntermediateKeyPEM),
			"ca.crt":  enc.EncodeToString(in.RootCertPEM),
		},
	}
}

func (a *Adapter) issuer(in Input) issuerManifest {
	m := issuerManifest{
		APIVersion: "cert-manager.io/v1",
		Kind:       "ClusterIssuer",
		Metadata:   metadata{Name: in.IssuerName},
	}
	m.Spec.CA.SecretName = in.SecretName
	return m
}

func (a *Adapter) certificate(in Input) certificateManifest {
	m := certificateManifest{
		APIVersion: "cert-manager.io/v1",
		Kind:       "Certificate",
		Metadata:   metadata{Name: in.CertificateName, Namespace: "default"},
	}
	m.Spec.SecretName = in.CertificateName
	m.Spec.DNSNames = in.DNSNames
	if len(m.Spec.DNSNames) == 0 {
		m.Spec.DNSNames = []string{"example.local"}
	}
	m.Spec.IssuerRef.Name = in.IssuerName
	m.Spec.IssuerRef.Kind = "ClusterIssuer"
	return m
}

func (a *Adapter) ingress(in Input) ingressManifest {
	host := "example.local"
	if len(in.DNSNames) > 0 {
		host = in.DNSNames[0]
	}

	m := ingressManifest{
		APIVersion: "networking.k8s.io/v1",
		Kind:       "Ingress",
		Metadata: metadata{
			Name:      "example-ingress",
			Namespace: "default",
			Annotations: map[string]string{
				"cert-manager.io/cluster-issuer": in.IssuerName,
			},
		},
	}

	var rule ingressRule
	rule.Host = host
	var path ingressPath
	path.Path = "/"
	path.PathType = "Prefix"
	path.Backend.Service.Name = "example-service"
	path.Backend.Service.Port.Number = 80
	rule.HTTP.Paths = []ingressPath{path}

	m.Spec.TLS = []ingressTLS{{Hosts: []string{host}, SecretName: in.CertificateName}}
	m.Spec.Rules = []ingressRule{rule}
	return m
}

func writeManifest(path string, manifest any) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest %s: %w", path, err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}
