package main

import (
	"fmt"
	"os"

	"github.com/clusterpki/clpki/internal/audit"
	"github.com/clusterpki/clpki/internal/ca"
	"github.com/clusterpki/clpki/internal/config"
	"github.com/clusterpki/clpki/internal/kube"
)

func caSubject(p *config.CAProfile) ca.Subject {
	return ca.Subject{
		CommonName:   p.Name,
		Organization: p.Organization,
		Country:      p.Country,
		State:        p.State,
		Locality:     p.Locality,
		Email:        p.Email,
	}
}

// loadIntermediateSigner opens the intermediate CA with its signing key.
func loadIntermediateSigner(layout ca.Layout) (*ca.CA, error) {
	inter, err := ca.Load(ca.NewStore(layout, ca.TierIntermediate))
	if err != nil {
		return nil, err
	}
	if err := inter.LoadSigner(nil); err != nil {
		return nil, err
	}
	return inter, nil
}

// runExport renders the Kubernetes manifests from the on-disk hierarchy.
func runExport(cfg *config.Config, layout ca.Layout) error {
	interStore := ca.NewStore(layout, ca.TierIntermediate)
	rootStore := ca.NewStore(layout, ca.TierRoot)

	chainPEM, err := os.ReadFile(interStore.ChainPath())
	if err != nil {
		return fmt.Errorf("failed to read CA chain: %w", err)
	}
	keyPEM, err := os.ReadFile(interStore.KeyPath())
	if err != nil {
		return fmt.Errorf("failed to read intermediate key: %w", err)
	}
	rootPEM, err := os.ReadFile(rootStore.CertPath())
	if err != nil {
		return fmt.Errorf("failed to read root certificate: %w", err)
	}

	adapter := kube.NewAdapter(layout.ExportDir())
	written, err := adapter.Export(kube.Input{
		ChainPEM:           chainPEM,
		IntermediateKeyPEM: keyPEM,
		RootCertPEM:        rootPEM,
		Namespace:          cfg.Kubernetes.Namespace,
		SecretName:         cfg.Kubernetes.SecretName,
		IssuerName:         cfg.Kubernetes.IssuerName,
		CertificateName:    cfg.Kubernetes.CertificateName,
	})
	for _, path := range written {
		_ = audit.LogExportWritten(path, err == nil)
		fmt.Printf("  wrote %s\n", path)
	}
	return err
}
