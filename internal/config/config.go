// Package config loads and validates the PKI configuration file.
//
// The configuration is a YAML document with one section per concern:
//
//	root_ca:          # subject and key policy of the root CA
//	intermediate_ca:  # subject and key policy of the intermediate CA
//	server_cert:      # defaults for issued server certificates
//	kubernetes:       # names used by the cluster export
//	directories:      # output layout
//
// The loaded Config is an immutable value threaded explicitly into every
// component constructor; there is no ambient configuration state.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	pkicrypto "github.com/clusterpki/clpki/internal/crypto"
)

// Sentinel errors for configuration failures. All are fatal to the run
// and surface before any cryptographic work starts.
var (
	// ErrNotFound indicates the configuration file does not exist.
	ErrNotFound = errors.New("configuration file not found")

	// ErrMissingSection indicates a required section is absent.
	ErrMissingSection = errors.New("missing required section")

	// ErrMissingKey indicates a required key is absent or empty.
	ErrMissingKey = errors.New("missing required key")

	// ErrInvalidValue indicates a key holds an unusable value.
	ErrInvalidValue = errors.New("invalid configuration value")
)

// CAProfile describes the subject and key policy of one CA tier.
// It is immutable once a certificate has been issued from it.
type CAProfile struct {
	Name         string `yaml:"name"`
	Organization string `yaml:"organization"`
	Country      string `yaml:"country"`
	State        string `yaml:"state"`
	Locality     string `yaml:"locality"`
	Email        string `yaml:"email"`
	ValidityDays int    `yaml:"validity_days"`
	KeySize      int    `yaml:"key_size"`
}

// ServerProfile holds the defaults applied to issued server certificates.
// The common name and SAN list come from the issuance request itself.
type ServerProfile struct {
	Organization string `yaml:"organization"`
	Country      string `yaml:"country"`
	State        string `yaml:"state"`
	Locality     string `yaml:"locality"`
	ValidityDays int    `yaml:"validity_days"`
	KeySize      int    `yaml:"key_size"`
}

// Kubernetes names the objects produced by the cluster export.
type Kubernetes struct {
	Namespace       string `yaml:"namespace"`
	SecretName      string `yaml:"secret_name"`
	IssuerName      string `yaml:"issuer_name"`
	CertificateName string `yaml:"certificate_name"`
}

// Directories configures the output layout.
type Directories struct {
	Output string `yaml:"output"`
}

// Config is the complete, validated PKI configuration.
type Config struct {
	RootCA         *CAProfile     `yaml:"root_ca"`
	IntermediateCA *CAProfile     `yaml:"intermediate_ca"`
	ServerCert     *ServerProfile `yaml:"server_cert"`
	Kubernetes     *Kubernetes    `yaml:"kubernetes"`
	Directories    Directories    `yaml:"directories"`
}

// Defaults applied when optional keys are absent.
const (
	DefaultIntermediateValidityDays = 3650
	DefaultServerValidityDays       = 365
	DefaultCAKeySize                = 4096
	DefaultServerKeySize            = 2048
	DefaultNamespace                = "cert-manager"
	DefaultSecretName               = "cluster-ca-key-pair"
	DefaultIssuerName               = "cluster-ca-issuer"
	DefaultCertificateName          = "example-tls"
	DefaultOutputDir                = "pki"
)

// Load reads, defaults and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills optional keys. The required root_ca keys are left
// untouched so validation can report them as missing.
func (c *Config) applyDefaults() {
	if c.IntermediateCA != nil {
		if c.IntermediateCA.ValidityDays == 0 {
			c.IntermediateCA.ValidityDays = DefaultIntermediateValidityDays
		}
		if c.IntermediateCA.KeySize == 0 {
			c.IntermediateCA.KeySize = DefaultCAKeySize
		}
	}

	if c.ServerCert != nil {
		if c.ServerCert.ValidityDays == 0 {
			c.ServerCert.ValidityDays = DefaultServerValidityDays
		}
		if c.ServerCert.KeySize == 0 {
			c.ServerCert.KeySize = DefaultServerKeySize
		}
	}

	if c.Kubernetes != nil {
		if c.Kubernetes.Namespace == "" {
			c.Kubernetes.Namespace = DefaultNamespace
		}
		if c.Kubernetes.SecretName == "" {
			c.Kubernetes.SecretName = DefaultSecretName
		}
		if c.Kubernetes.IssuerName == "" {
			c.Kubernetes.IssuerName = DefaultIssuerName
		}
		if c.Kubernetes.CertificateName == "" {
			c.Kubernetes.CertificateName = DefaultCertificateName
		}
	}

	if c.Directories.Output == "" {
		c.Directories.Output = DefaultOutputDir
	}
}

// Validate checks that all required sections and keys are present and
// that key sizes are supported. Every failure names the offending item.
func (c *Config) Validate() error {
	if c.RootCA == nil {
		return fmt.Errorf("%w: root_ca", ErrMissingSection)
	}
	if c.IntermediateCA == nil {
		return fmt.Errorf("%w: intermediate_ca", ErrMissingSection)
	}
	if c.ServerCert == nil {
		return fmt.Errorf("%w: server_cert", ErrMissingSection)
	}
	if c.Kubernetes == nil {
		return fmt.Errorf("%w: kubernetes", ErrMissingSection)
	}

	// root_ca carries no defaults: the five keys below must be present.
	if c.RootCA.Name == "" {
		return fmt.Errorf("%w: root_ca.name", ErrMissingKey)
	}
	if c.RootCA.Organization == "" {
		return fmt.Errorf("%w: root_ca.organization", ErrMissingKey)
	}
	if c.RootCA.Country == "" {
		return fmt.Errorf("%w: root_ca.country", ErrMissingKey)
	}
	if c.RootCA.ValidityDays == 0 {
		return fmt.Errorf("%w: root_ca.validity_days", ErrMissingKey)
	}
	if c.RootCA.KeySize == 0 {
		return fmt.Errorf("%w: root_ca.key_size", ErrMissingKey)
	}

	if c.IntermediateCA.Name == "" {
		return fmt.Errorf("%w: intermediate_ca.name", ErrMissingKey)
	}

	for item, bits := range map[string]int{
		"root_ca.key_size":         c.RootCA.KeySize,
		"intermediate_ca.key_size": c.IntermediateCA.KeySize,
		"server_cert.key_size":     c.ServerCert.KeySize,
	} {
		if !pkicrypto.IsSupportedKeySize(bits) {
			return fmt.Errorf("%w: %s=%d (supported: %v)", ErrInvalidValue, item, bits, pkicrypto.SupportedKeySizes)
		}
	}

	for item, days := range map[string]int{
		"root_ca.validity_days":         c.RootCA.ValidityDays,
		"intermediate_ca.validity_days": c.IntermediateCA.ValidityDays,
		"server_cert.validity_days":     c.ServerCert.ValidityDays,
	} {
		if days < 1 {
			return fmt.Errorf("%w: %s=%d (must be >= 1)", ErrInvalidValue, item, days)
		}
	}

	return nil
}
