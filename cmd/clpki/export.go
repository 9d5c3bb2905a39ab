package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clusterpki/clpki/internal/ca"
)

var exportCmd = &cobra.Command{
	Use:   "k8s-export",
	Short: "Render the Kubernetes manifests from the existing hierarchy",
	Long: `Render the cert-manager and Kubernetes manifests.

Reads the CA chain, the intermediate signing key and the root certificate
from the output directory and writes four manifests under {output}/k8s/:

  ca-secret.yaml             CA key pair Secret for cert-manager
  cluster-issuer.yaml        ClusterIssuer referencing the Secret
  certificate-template.yaml  sample Certificate request
  ingress-example.yaml       Ingress wired to the cluster issuer

The hierarchy must have been created with 'clpki init' first.

Examples:
  clpki k8s-export
  clpki k8s-export --config cluster.yaml`,
	Args: cobra.NoArgs,
	RunE: runK8sExport,
}

func runK8sExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	layout := ca.Layout{Base: cfg.Directories.Output}
	if _, err := ca.Load(ca.NewStore(layout, ca.TierIntermediate)); err != nil {
		return fmt.Errorf("hierarchy not ready, run 'clpki init' first: %w", err)
	}

	fmt.Println("Exporting Kubernetes manifests:")
	return runExport(cfg, layout)
}
