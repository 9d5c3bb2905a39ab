package ca

import (
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"math/big"
	"time"

	pkicrypto "github.com/clusterpki/clpki/internal/crypto"
	"github.com/clusterpki/clpki/internal/profile"
)

// CA is a loaded certificate authority tier. The signer is nil until
// LoadSigner is called; read-only operations never need it.
type CA struct {
	tier   Tier
	store  *Store
	ledger *Ledger
	cert   *x509.Certificate
	signer *pkicrypto.Signer
}

// Load opens an initialized tier. It fails with ErrNotInitialized when the
// tier certificate does not exist.
func Load(store *Store) (*CA, error) {
	if !store.HasCert() {
		return nil, fmt.Errorf("%s CA: %w", store.Tier(), ErrNotInitialized)
	}
	cert, err := store.LoadCert()
	if err != nil {
		return nil, err
	}
	return &CA{
		tier:   store.Tier(),
		store:  store,
		ledger: NewLedger(store.Dir()),
		cert:   cert,
	}, nil
}

// LoadSigner loads the tier private key and verifies it matches the
// certificate. The passphrase is required for encrypted keys and must be
// empty otherwise.
func (c *CA) LoadSigner(passphrase []byte) error {
	signer, err := pkicrypto.LoadPrivateKey(c.store.KeyPath(), passphrase)
	if err != nil {
		return err
	}
	if !signer.MatchesCertificate(c.cert) {
		return fmt.Errorf("%s CA: private key does not match certificate", c.tier)
	}
	c.signer = signer
	return nil
}

// Tier returns the hierarchy tier of this CA.
func (c *CA) Tier() Tier {
	return c.tier
}

// Certificate returns the CA certificate.
func (c *CA) Certificate() *x509.Certificate {
	return c.cert
}

// Store returns the backing file store.
func (c *CA) Store() *Store {
	return c.store
}

// Ledger returns the serial and issuance ledger of this tier.
func (c *CA) Ledger() *Ledger {
	return c.ledger
}

// newTemplate builds a certificate template for the given subject and
// profile. NotBefore/NotAfter are UTC and validity is counted in days.
func newTemplate(subject Subject, validityDays int, prof *profile.ExtensionProfile, serial *big.Int) *x509.Certificate {
	now := time.Now().UTC()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      subject.Name(),
		NotBefore:    now,
		NotAfter:     now.AddDate(0, 0, validityDays),
	}
	prof.Apply(template)
	return template
}

// subjectKeyID derives the key identifier from the PKIX encoding of the
// public key, truncated to 160 bits.
func subjectKeyID(pub any) ([]byte, error) {
	pubBytes, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	hash := sha256.Sum256(pubBytes)
	return hash[:20], nil
}
