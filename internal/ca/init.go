package ca

import (
	"crypto/rand"
	"crypto/x509"
	"fmt"
	"strings"

	pkicrypto "github.com/clusterpki/clpki/internal/crypto"
	"github.com/clusterpki/clpki/internal/profile"
)

// CAConfig holds the parameters for initializing a CA tier.
type CAConfig struct {
	Subject      Subject
	KeyBits      int
	ValidityDays int
	// Passphrase encrypts the private key at rest. Required for the root
	// tier, must be empty for the intermediate tier.
	Passphrase []byte
}

func (cfg CAConfig) validate(tier Tier) error {
	if strings.TrimSpace(cfg.Subject.CommonName) == "" {
		return &ValidationError{Field: "common name", Reason: "must not be empty"}
	}
	if cfg.ValidityDays < 1 {
		return &ValidationError{Field: "validity", Reason: "must be at least 1 day"}
	}
	if tier == TierRoot && len(cfg.Passphrase) == 0 {
		return &ValidationError{Field: "passphrase", Reason: "root CA key must be encrypted"}
	}
	return nil
}

// InitializeRoot creates the self-signed root CA. When the root already
// exists on disk it is loaded and returned with created=false; no file is
// touched. An inconsistent tier (key without certificate or the reverse)
// aborts with a StateError.
func InitializeRoot(store *Store, cfg CAConfig) (*CA, bool, error) {
	if store.Tier() != TierRoot {
		return nil, false, fmt.Errorf("store tier is %s, want %s", store.Tier(), TierRoot)
	}
	if err := cfg.validate(TierRoot); err != nil {
		return nil, false, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	existing, err := store.checkExistingLocked()
	if err != nil {
		return nil, false, err
	}
	switch existing.State {
	case StatePresent:
		ca, err := Load(store)
		if err != nil {
			return nil, false, err
		}
		return ca, false, nil
	case StateInconsistent:
		return nil, false, &StateError{Tier: TierRoot, Detail: existing.Detail}
	}

	if err := store.Init(); err != nil {
		return nil, false, err
	}
	ledger := NewLedger(store.Dir())
	if err := ledger.Init(); err != nil {
		return nil, false, err
	}

	signer, err := pkicrypto.Generate(cfg.KeyBits)
	if err != nil {
		return nil, false, err
	}

	serial, err := ledger.Next()
	if err != nil {
		return nil, false, err
	}

	template := newTemplate(cfg.Subject, cfg.ValidityDays, profile.RootCA(), serial)
	skid, err := subjectKeyID(signer.Public())
	if err != nil {
		return nil, false, signingErr("sign", err)
	}
	template.SubjectKeyId = skid

	der, err := x509.CreateCertificate(rand.Reader, template, template, signer.Public(), signer)
	if err != nil {
		return nil, false, signingErr("sign", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, false, signingErr("encode", err)
	}

	if err := signer.SavePrivateKey(store.KeyPath(), cfg.Passphrase); err != nil {
		return nil, false, err
	}
	if err := store.SaveCert(cert); err != nil {
		return nil, false, err
	}
	if err := ledger.Record(serial, cert.Subject.String(), cert.NotAfter); err != nil {
		return nil, false, err
	}

	return &CA{
		tier:   TierRoot,
		store:  store,
		ledger: ledger,
		cert:   cert,
		signer: signer,
	}, true, nil
}

// InitializeIntermediate creates the intermediate CA signed by the root.
// The flow mirrors a real subordinate enrollment: generate key, build a
// CSR, verify its signature, then sign a certificate from the CSR with
// the pathlen:0 profile. The CSR is kept on disk next to the certificate.
//
// Like InitializeRoot this is idempotent: an existing intermediate is
// loaded and returned with created=false.
func InitializeIntermediate(parent *CA, store *Store, cfg CAConfig) (*CA, bool, error) {
	if store.Tier() != TierIntermediate {
		return nil, false, fmt.Errorf("store tier is %s, want %s", store.Tier(), TierIntermediate)
	}
	if parent.tier != TierRoot {
		return nil, false, fmt.Errorf("issuer tier is %s, want %s", parent.tier, TierRoot)
	}
	if err := cfg.validate(TierIntermediate); err != nil {
		return nil, false, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	existing, err := store.checkExistingLocked()
	if err != nil {
		return nil, false, err
	}
	switch existing.State {
	case StatePresent:
		ca, err := Load(store)
		if err != nil {
			return nil, false, err
		}
		return ca, false, nil
	case StateInconsistent:
		return nil, false, &StateError{Tier: TierIntermediate, Detail: existing.Detail}
	}

	if parent.signer == nil {
		return nil, false, fmt.Errorf("root CA: %w", ErrSignerNotLoaded)
	}

	if err := store.Init(); err != nil {
		return nil, false, err
	}
	ledger := NewLedger(store.Dir())
	if err := ledger.Init(); err != nil {
		return nil, false, err
	}

	signer, err := pkicrypto.Generate(cfg.KeyBits)
	if err != nil {
		return nil, false, err
	}

	csr, csrDER, err := createCSR(cfg.Subject, nil, signer)
	if err != nil {
		return nil, false, err
	}

	cert, err := signFromCSR(parent, csr, profile.IntermediateCA(), cfg.ValidityDays)
	if err != nil {
		return nil, false, err
	}

	if err := signer.SavePrivateKey(store.KeyPath(), nil); err != nil {
		return nil, false, err
	}
	if err := store.SaveCSR(csrDER); err != nil {
		return nil, false, err
	}
	if err := store.SaveCert(cert); err != nil {
		return nil, false, err
	}
	// The intermediate serial comes from the root ledger; the root records
	// everything it signs.
	if err := parent.ledger.Record(cert.SerialNumber, cert.Subject.String(), cert.NotAfter); err != nil {
		return nil, false, err
	}

	return &CA{
		tier:   TierIntermediate,
		store:  store,
		ledger: ledger,
		cert:   cert,
		signer: signer,
	}, true, nil
}

// createCSR builds and signs a certificate request, then parses it back and
// checks its signature before anything downstream trusts it.
func createCSR(subject Subject, dnsNames []string, signer *pkicrypto.Signer) (*x509.CertificateRequest, []byte, error) {
	template := &x509.CertificateRequest{
		Subject:  subject.Name(),
		DNSNames: dnsNames,
	}
	der, err := x509.CreateCertificateRequest(rand.Reader, template, signer)
	if err != nil {
		return nil, nil, signingErr("create-csr", err)
	}
	csr, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, nil, signingErr("parse-csr", err)
	}
	if err := csr.CheckSignature(); err != nil {
		return nil, nil, signingErr("parse-csr", err)
	}
	return csr, der, nil
}

// signFromCSR issues a certificate from a verified CSR using the issuer key.
// The subject, SANs and public key come from the CSR; extensions come from
// the profile, never from the requester.
func signFromCSR(issuer *CA, csr *x509.CertificateRequest, prof *profile.ExtensionProfile, validityDays int) (*x509.Certificate, error) {
	if issuer.signer == nil {
		return nil, fmt.Errorf("%s CA: %w", issuer.tier, ErrSignerNotLoaded)
	}

	serial, err := issuer.ledger.Next()
	if err != nil {
		return nil, err
	}

	template := newTemplate(Subject{}, validityDays, prof, serial)
	template.Subject = csr.Subject
	template.DNSNames = csr.DNSNames

	skid, err := subjectKeyID(csr.PublicKey)
	if err != nil {
		return nil, signingErr("sign", err)
	}
	template.SubjectKeyId = skid

	der, err := x509.CreateCertificate(rand.Reader, template, issuer.cert, csr.PublicKey, issuer.signer)
	if err != nil {
		return nil, signingErr("sign", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, signingErr("encode", err)
	}
	return cert, nil
}
