package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clusterpki/clpki/internal/audit"
	"github.com/clusterpki/clpki/internal/ca"
	"github.com/clusterpki/clpki/internal/cli"
	"github.com/clusterpki/clpki/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the root and intermediate CAs",
	Long: `Initialize the certificate hierarchy.

Creates a self-signed root CA, an intermediate CA signed by the root with
a pathlen:0 constraint, the combined CA chain bundle, and the Kubernetes
manifests. Tiers that already exist are left untouched, so a second run is
safe and changes nothing.

The root private key is encrypted; the passphrase comes from the
--root-passphrase flag or the CLPKI_ROOT_PASSPHRASE environment variable.

Output structure:
  {output}/
    ├── root/
    │   ├── root.crt
    │   ├── private/root.key     (encrypted PKCS#8)
    │   ├── serial
    │   └── index.txt
    ├── intermediate/
    │   ├── intermediate.crt
    │   ├── intermediate.csr
    │   ├── ca-chain.crt         (intermediate + root)
    │   ├── private/intermediate.key
    │   ├── serial
    │   └── index.txt
    └── k8s/                     (cert-manager manifests)

Examples:
  clpki init --root-passphrase "secret"
  CLPKI_ROOT_PASSPHRASE=secret clpki init --config cluster.yaml`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&rootPassphrase, "root-passphrase", "",
		"Passphrase for the root CA key (or set CLPKI_ROOT_PASSPHRASE env var)")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	passphrase := resolvePassphrase()

	layout := ca.Layout{Base: cfg.Directories.Output}
	rootStore := ca.NewStore(layout, ca.TierRoot)
	interStore := ca.NewStore(layout, ca.TierIntermediate)

	root, err := initRootTier(cfg, rootStore, passphrase)
	if err != nil {
		return err
	}
	inter, err := initIntermediateTier(cfg, root, interStore, passphrase)
	if err != nil {
		return err
	}

	// A skipped tier leaves nothing to chain or export; the run still
	// succeeds so the healthy tiers stay usable.
	if root == nil || inter == nil {
		fmt.Printf("%swarning:%s chain and export skipped; repair or remove the inconsistent tier directory and re-run init\n",
			cli.ColorYellow, cli.ColorReset)
		return nil
	}

	if ca.ExceedsIssuerValidity(inter.Certificate(), root.Certificate()) {
		fmt.Printf("%swarning:%s intermediate expires after the root; chains will fail once the root lapses\n",
			cli.ColorYellow, cli.ColorReset)
	}

	// The chain bundle is derived state, so rewriting it on every run keeps
	// it consistent with the certificates.
	if err := ca.WriteChain(interStore.ChainPath(), inter.Certificate(), root.Certificate()); err != nil {
		return err
	}
	fmt.Printf("CA chain written to %s\n", interStore.ChainPath())

	fmt.Println("Exporting Kubernetes manifests:")
	if err := runExport(cfg, layout); err != nil {
		return err
	}
	return nil
}

// initRootTier creates or loads the root CA. An inconsistent root is
// surfaced as a warning and returned as nil so the rest of the run can
// proceed with whatever tiers are healthy.
func initRootTier(cfg *config.Config, store *ca.Store, passphrase []byte) (*ca.CA, error) {
	root, created, err := ca.InitializeRoot(store, ca.CAConfig{
		Subject:      caSubject(cfg.RootCA),
		KeyBits:      cfg.RootCA.KeySize,
		ValidityDays: cfg.RootCA.ValidityDays,
		Passphrase:   passphrase,
	})
	if err != nil {
		var stateErr *ca.StateError
		if errors.As(err, &stateErr) {
			_ = audit.LogStateInconsistent(string(ca.TierRoot), store.Dir(), stateErr.Detail)
			fmt.Printf("%swarning:%s root CA skipped: %s\n", cli.ColorYellow, cli.ColorReset, stateErr.Detail)
			return nil, nil
		}
		_ = audit.LogCACreated(string(ca.TierRoot), store.Dir(), cfg.RootCA.Name, cfg.RootCA.KeySize, false)
		return nil, err
	}
	if created {
		_ = audit.LogCACreated(string(ca.TierRoot), store.Dir(), root.Certificate().Subject.String(), cfg.RootCA.KeySize, true)
		fmt.Printf("%sCreated%s root CA %s\n", cli.ColorGreen, cli.ColorReset, root.Certificate().Subject.CommonName)
	} else {
		_ = audit.LogCALoaded(string(ca.TierRoot), store.Dir(), root.Certificate().Subject.String())
		fmt.Printf("%sExists%s  root CA %s (skipped)\n", cli.ColorBlue, cli.ColorReset, root.Certificate().Subject.CommonName)
	}
	return root, nil
}

// initIntermediateTier creates or loads the intermediate CA. The root
// signer is unlocked only when the intermediate has to be created, so a
// re-run over a complete hierarchy never touches the root key. Like the
// root tier, an inconsistent intermediate warns and returns nil.
func initIntermediateTier(cfg *config.Config, root *ca.CA, store *ca.Store, passphrase []byte) (*ca.CA, error) {
	existing, err := store.CheckExisting()
	if err != nil {
		return nil, err
	}
	switch existing.State {
	case ca.StateInconsistent:
		_ = audit.LogStateInconsistent(string(ca.TierIntermediate), store.Dir(), existing.Detail)
		fmt.Printf("%swarning:%s intermediate CA skipped: %s\n", cli.ColorYellow, cli.ColorReset, existing.Detail)
		return nil, nil
	case ca.StatePresent:
		inter, err := ca.Load(store)
		if err != nil {
			return nil, err
		}
		_ = audit.LogCALoaded(string(ca.TierIntermediate), store.Dir(), inter.Certificate().Subject.String())
		fmt.Printf("%sExists%s  intermediate CA %s (skipped)\n", cli.ColorBlue, cli.ColorReset, inter.Certificate().Subject.CommonName)
		return inter, nil
	}

	if root == nil {
		fmt.Printf("%swarning:%s intermediate CA skipped: no usable root CA to sign it\n",
			cli.ColorYellow, cli.ColorReset)
		return nil, nil
	}
	if err := root.LoadSigner(passphrase); err != nil {
		_ = audit.LogAuthFailed(string(ca.TierRoot), root.Store().KeyPath(), "passphrase rejected")
		return nil, fmt.Errorf("failed to unlock root key: %w", err)
	}
	inter, _, err := ca.InitializeIntermediate(root, store, ca.CAConfig{
		Subject:      caSubject(cfg.IntermediateCA),
		KeyBits:      cfg.IntermediateCA.KeySize,
		ValidityDays: cfg.IntermediateCA.ValidityDays,
	})
	if err != nil {
		_ = audit.LogCACreated(string(ca.TierIntermediate), store.Dir(), cfg.IntermediateCA.Name, cfg.IntermediateCA.KeySize, false)
		return nil, err
	}
	_ = audit.LogCACreated(string(ca.TierIntermediate), store.Dir(), inter.Certificate().Subject.String(), cfg.IntermediateCA.KeySize, true)
	fmt.Printf("%sCreated%s intermediate CA %s\n", cli.ColorGreen, cli.ColorReset, inter.Certificate().Subject.CommonName)
	return inter, nil
}
