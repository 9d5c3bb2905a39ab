package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clusterpki/clpki/internal/ca"
	"github.com/clusterpki/clpki/internal/cli"
	"github.com/clusterpki/clpki/internal/fsutil"
	"github.com/clusterpki/clpki/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every certificate with its expiry status",
	Long: `List the certificate hierarchy.

Shows the root CA, the intermediate CA and every server certificate from
the issuance registry: subject, serial, SANs, SHA-256 fingerprint and the
expiry band (healthy, warning under 90 days, critical under 30, expired).

A broken entry is reported and skipped; the rest of the listing still
prints.

Examples:
  clpki list
  clpki list --config cluster.yaml`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	layout := ca.Layout{Base: cfg.Directories.Output}
	now := time.Now()

	for _, tier := range []ca.Tier{ca.TierRoot, ca.TierIntermediate} {
		authority, err := ca.Load(ca.NewStore(layout, tier))
		if err != nil {
			if errors.Is(err, ca.ErrNotInitialized) {
				fmt.Printf("%-14s not initialized\n", tier)
				continue
			}
			return err
		}
		printCert(string(tier), ca.Inspect(authority.Certificate(), now))
	}

	records, err := loadRecords(layout)
	if err != nil {
		return err
	}
	for _, record := range records {
		cert, err := cli.LoadCertFromPath(record.CertPath)
		if err != nil {
			// Registry and filesystem disagree; report and keep going.
			fmt.Printf("%swarning:%s %s: %v\n", cli.ColorYellow, cli.ColorReset, record.Subject, err)
			continue
		}
		printCert(record.Subject, ca.Inspect(cert, now))
	}
	return nil
}

// loadRecords reads the leaf registry. A missing database means nothing was
// issued yet.
func loadRecords(layout ca.Layout) ([]*registry.Record, error) {
	if !fsutil.Exists(layout.RegistryPath()) {
		return nil, nil
	}
	reg, err := registry.Open(layout.RegistryPath())
	if err != nil {
		return nil, err
	}
	defer func() { _ = reg.Close() }()
	return reg.List()
}

func printCert(label string, info ca.Info) {
	fmt.Printf("%-14s %s\n", label, formatSubjectLine(info))
	fmt.Printf("    serial:      %s\n", info.SerialNumber)
	if len(info.DNSNames) > 0 {
		fmt.Printf("    SANs:        %v\n", info.DNSNames)
	}
	fmt.Printf("    expires:     %s  [%s]\n",
		cli.FormatExpiry(info.NotAfter, info.DaysRemaining), cli.FormatBand(info.Band()))
	fmt.Printf("    fingerprint: %s\n", info.SHA256Fingerprint)
}

// formatSubjectLine renders the subject with a CA marker for issuer tiers.
func formatSubjectLine(info ca.Info) string {
	if info.IsCA {
		return info.Subject + " (CA)"
	}
	return info.Subject
}
