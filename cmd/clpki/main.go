// Command clpki manages a private two-tier certificate hierarchy for
// Kubernetes clusters: a root CA, an intermediate CA, server certificates
// and cert-manager export manifests.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clusterpki/clpki/internal/audit"
	"github.com/clusterpki/clpki/internal/config"
)

// Build-time variables (injected by GoReleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags
var (
	configPath     string
	auditLogPath   string
	rootPassphrase string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clpki",
	Short: "Cluster PKI - private CA hierarchy for Kubernetes",
	Long: `clpki manages a private two-tier certificate hierarchy and its
Kubernetes integration.

The hierarchy is a self-signed root CA, an intermediate CA constrained to
pathlen:0, and server certificates issued from the intermediate. All
artifacts live under a single output directory and every issuance is
recorded in a per-tier ledger.

Examples:
  # Create the hierarchy and export cert-manager manifests
  clpki init --root-passphrase "secret"

  # Issue a server certificate with SANs
  clpki server app.cluster.local "app.cluster.local,www.app.cluster.local"

  # Re-render the Kubernetes manifests from the existing hierarchy
  clpki k8s-export

  # Show every certificate with its expiry band
  clpki list`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Check for audit log path from environment if not set via flag
		if auditLogPath == "" {
			auditLogPath = os.Getenv("CLPKI_AUDIT_LOG")
		}
		if auditLogPath != "" {
			if err := audit.InitFile(auditLogPath); err != nil {
				return fmt.Errorf("failed to initialize audit log: %w", err)
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return audit.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "clpki.yaml",
		"Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "",
		"Path to audit log file (or set CLPKI_AUDIT_LOG env var)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(listCmd)
}

// loadConfig reads and validates the configuration. Config errors are fatal
// to every command before any cryptographic work starts.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	return cfg, nil
}

// resolvePassphrase returns the root key passphrase from the flag or the
// environment. The value is never echoed or logged.
func resolvePassphrase() []byte {
	if rootPassphrase != "" {
		return []byte(rootPassphrase)
	}
	if env := os.Getenv("CLPKI_ROOT_PASSPHRASE"); env != "" {
		return []byte(env)
	}
	return nil
}
