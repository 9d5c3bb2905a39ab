package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/clusterpki/clpki/internal/audit"
	"github.com/clusterpki/clpki/internal/ca"
	"github.com/clusterpki/clpki/internal/cli"
	"github.com/clusterpki/clpki/internal/profile"
	"github.com/clusterpki/clpki/internal/registry"
)

var serverCmd = &cobra.Command{
	Use:   "server <common-name> [san-list]",
	Short: "Issue a server certificate from the intermediate CA",
	Long: `Issue a server certificate.

The certificate is signed by the intermediate CA with serverAuth extended
key usage and carries every name from the SAN list as a DNS subject
alternative name. The SAN list is comma-separated; surrounding whitespace
is trimmed and order is preserved. When the list is omitted the common
name is the only SAN.

Artifacts land under {output}/certs/{common-name}/: the private key, the
signing request, the certificate and a fullchain bundle (leaf first, root
last). Re-running for the same common name replaces all four.

Examples:
  clpki server app.cluster.local
  clpki server app.cluster.local "app.cluster.local, www.app.cluster.local"
  clpki server grafana.local "grafana.local,metrics.local" --config cluster.yaml`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	commonName := args[0]
	sanInput := cli.FirstOrEmpty(args[1:])
	if sanInput == "" {
		sanInput = commonName
	}
	dnsNames, err := profile.ParseSANList(sanInput)
	if err != nil {
		return err
	}
	for _, warning := range profile.PublicSuffixWarnings(dnsNames) {
		fmt.Printf("%swarning:%s %s\n", cli.ColorYellow, cli.ColorReset, warning)
	}

	layout := ca.Layout{Base: cfg.Directories.Output}
	inter, err := loadIntermediateSigner(layout)
	if err != nil {
		return err
	}
	root, err := ca.Load(ca.NewStore(layout, ca.TierRoot))
	if err != nil {
		return err
	}

	leaf, err := inter.IssueLeaf(layout, ca.LeafRequest{
		Subject: ca.Subject{
			CommonName:   commonName,
			Organization: cfg.ServerCert.Organization,
			Country:      cfg.ServerCert.Country,
			State:        cfg.ServerCert.State,
			Locality:     cfg.ServerCert.Locality,
		},
		DNSNames:     dnsNames,
		KeyBits:      cfg.ServerCert.KeySize,
		ValidityDays: cfg.ServerCert.ValidityDays,
	})
	if err != nil {
		_ = audit.LogCertIssued(string(ca.TierLeaf), "", commonName, dnsNames, "", false)
		return err
	}

	chainPath := filepath.Join(layout.LeafDir(commonName), "fullchain.crt")
	if err := ca.WriteChain(chainPath, leaf.Cert, inter.Certificate(), root.Certificate()); err != nil {
		return err
	}

	if err := recordIssuance(layout, leaf, dnsNames, chainPath); err != nil {
		return err
	}
	_ = audit.LogCertIssued(string(ca.TierLeaf), leaf.Cert.SerialNumber.String(),
		leaf.Cert.Subject.String(), dnsNames, leaf.Cert.NotAfter.Format(time.RFC3339), true)

	if ca.ExceedsIssuerValidity(leaf.Cert, inter.Certificate()) {
		fmt.Printf("%swarning:%s certificate expires after the intermediate CA\n",
			cli.ColorYellow, cli.ColorReset)
	}

	info := ca.Inspect(leaf.Cert, time.Now())
	fmt.Printf("%sIssued%s %s (serial %s)\n", cli.ColorGreen, cli.ColorReset,
		commonName, leaf.Cert.SerialNumber)
	fmt.Printf("  SANs:    %v\n", leaf.Cert.DNSNames)
	fmt.Printf("  expires: %s\n", cli.FormatExpiry(info.NotAfter, info.DaysRemaining))
	fmt.Printf("  chain:   %s\n", chainPath)
	return nil
}

// recordIssuance updates the leaf registry so list reflects the new state.
func recordIssuance(layout ca.Layout, leaf *ca.Leaf, dnsNames []string, chainPath string) error {
	reg, err := registry.Open(layout.RegistryPath())
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	return reg.Put(&registry.Record{
		Subject:   leaf.Cert.Subject.CommonName,
		Serial:    leaf.Cert.SerialNumber.String(),
		DNSNames:  dnsNames,
		NotBefore: leaf.Cert.NotBefore,
		NotAfter:  leaf.Cert.NotAfter,
		CertPath:  leaf.CertPath,
		KeyPath:   leaf.KeyPath,
		ChainPath: chainPath,
		IssuedAt:  time.Now().UTC(),
	})
}
