package ca

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pkicrypto "github.com/clusterpki/clpki/internal/crypto"
	"github.com/clusterpki/clpki/internal/fsutil"
	"github.com/clusterpki/clpki/internal/profile"
)

// LeafRequest describes a server certificate to issue.
type LeafRequest struct {
	Subject      Subject
	DNSNames     []string
	KeyBits      int
	ValidityDays int
}

// Leaf is the result of a successful issuance.
type Leaf struct {
	Cert     *x509.Certificate
	CertPath string
	KeyPath  string
	CSRPath  string
}

// IssueLeaf issues a server certificate from the intermediate CA into its
// own directory under the layout certs tree. The request is validated
// before any file is created; a rejected request leaves no trace on disk.
//
// Re-issuing for an existing subject overwrites the previous key,
// request and certificate.
func (c *CA) IssueLeaf(layout Layout, req LeafRequest) (*Leaf, error) {
	if c.tier != TierIntermediate {
		return nil, fmt.Errorf("issuer tier is %s, want %s", c.tier, TierIntermediate)
	}
	if c.signer == nil {
		return nil, fmt.Errorf("%s CA: %w", c.tier, ErrSignerNotLoaded)
	}

	commonName := strings.TrimSpace(req.Subject.CommonName)
	if commonName == "" {
		return nil, &ValidationError{Field: "common name", Reason: "must not be empty"}
	}
	if len(req.DNSNames) == 0 {
		return nil, &ValidationError{Field: "subject alternative names", Reason: "at least one DNS name is required"}
	}
	for _, name := range req.DNSNames {
		if err := profile.ValidateDNSName(name); err != nil {
			return nil, &ValidationError{Field: "subject alternative names", Reason: err.Error()}
		}
	}
	if req.ValidityDays < 1 {
		return nil, &ValidationError{Field: "validity", Reason: "must be at least 1 day"}
	}

	dir := layout.LeafDir(commonName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	signer, err := pkicrypto.Generate(req.KeyBits)
	if err != nil {
		return nil, err
	}

	csr, csrDER, err := createCSR(req.Subject, req.DNSNames, signer)
	if err != nil {
		return nil, err
	}

	cert, err := signFromCSR(c, csr, profile.ServerLeaf(req.DNSNames), req.ValidityDays)
	if err != nil {
		return nil, err
	}

	leaf := &Leaf{
		Cert:     cert,
		CertPath: leafPath(dir, commonName, ".crt"),
		KeyPath:  leafPath(dir, commonName, ".key"),
		CSRPath:  leafPath(dir, commonName, ".csr"),
	}

	serial := cert.SerialNumber.String()
	if err := signer.SavePrivateKey(leaf.KeyPath, nil); err != nil {
		return nil, &PKIError{Op: "issue", Serial: serial, Err: err}
	}
	if err := saveCSRPEM(leaf.CSRPath, csrDER); err != nil {
		return nil, &PKIError{Op: "issue", Serial: serial, Err: err}
	}
	if err := writeCertPEM(leaf.CertPath, cert); err != nil {
		return nil, &PKIError{Op: "issue", Serial: serial, Err: err}
	}
	if err := c.ledger.Record(cert.SerialNumber, cert.Subject.String(), cert.NotAfter); err != nil {
		return nil, &PKIError{Op: "issue", Serial: serial, Err: err}
	}

	return leaf, nil
}

func leafPath(dir, commonName, ext string) string {
	return filepath.Join(dir, commonName+ext)
}

func saveCSRPEM(path string, der []byte) error {
	block := &pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}
	return fsutil.WriteFileAtomic(path, pem.EncodeToMemory(block), 0o644)
}
