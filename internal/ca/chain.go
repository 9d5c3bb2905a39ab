package ca

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/clusterpki/clpki/internal/fsutil"
)

// EncodeChainPEM concatenates certificates as PEM in the given order.
// Callers pass leaf first, then intermediates, then the root.
func EncodeChainPEM(certs ...*x509.Certificate) []byte {
	var out []byte
	for _, cert := range certs {
		block := &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}
		out = append(out, pem.EncodeToMemory(block)...)
	}
	return out
}

// WriteChain writes a certificate bundle atomically.
func WriteChain(path string, certs ...*x509.Certificate) error {
	if err := fsutil.WriteFileAtomic(path, EncodeChainPEM(certs...), 0o644); err != nil {
		return fmt.Errorf("failed to write chain %s: %w", path, err)
	}
	return nil
}

// LoadChain parses every certificate in a PEM bundle, preserving order.
func LoadChain(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain file: %w", err)
	}

	var certs []*x509.Certificate
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate in %s: %w", path, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("no certificate found in %s", path)
	}
	return certs, nil
}

// VerifyChain checks that the leaf chains to the root through the given
// intermediates, honoring basic constraints and path length.
func VerifyChain(leaf *x509.Certificate, intermediates []*x509.Certificate, root *x509.Certificate) error {
	roots := x509.NewCertPool()
	roots.AddCert(root)

	inters := x509.NewCertPool()
	for _, cert := range intermediates {
		inters.AddCert(cert)
	}

	_, err := leaf.Verify(x509.VerifyOptions{
		Roots:         roots,
		Intermediates: inters,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return fmt.Errorf("chain verification failed: %w", err)
	}
	return nil
}
