package ca

import (
	"crypto/x509"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
)

func testLeafRequest(name string) LeafRequest {
	return LeafRequest{
		Subject: Subject{
			CommonName:   name,
			Organization: "Test Org",
			Country:      "US",
		},
		DNSNames:     []string{name, "www." + name},
		KeyBits:      2048,
		ValidityDays: 365,
	}
}

func TestIssueLeaf(t *testing.T) {
	layout, _, inter := setupHierarchy(t)

	leaf, err := inter.IssueLeaf(layout, testLeafRequest("app.example.test"))
	if err != nil {
		t.Fatalf("IssueLeaf() error = %v", err)
	}
	cert := leaf.Cert

	if cert.IsCA {
		t.Error("leaf IsCA = true, want false")
	}
	if cert.Subject.CommonName != "app.example.test" {
		t.Errorf("CommonName = %q", cert.Subject.CommonName)
	}
	wantSANs := []string{"app.example.test", "www.app.example.test"}
	if len(cert.DNSNames) != len(wantSANs) {
		t.Fatalf("DNSNames = %v, want %v", cert.DNSNames, wantSANs)
	}
	for i, want := range wantSANs {
		if cert.DNSNames[i] != want {
			t.Errorf("DNSNames[%d] = %q, want %q", i, cert.DNSNames[i], want)
		}
	}

	hasServerAuth := false
	for _, eku := range cert.ExtKeyUsage {
		if eku == x509.ExtKeyUsageServerAuth {
			hasServerAuth = true
		}
	}
	if !hasServerAuth {
		t.Error("ExtKeyUsage missing serverAuth")
	}

	if err := cert.CheckSignatureFrom(inter.Certificate()); err != nil {
		t.Errorf("CheckSignatureFrom(intermediate) error = %v", err)
	}

	// The intermediate ledger starts fresh, so the first leaf gets the
	// initial serial.
	if cert.SerialNumber.Cmp(big.NewInt(FirstSerial)) != 0 {
		t.Errorf("SerialNumber = %s, want %d", cert.SerialNumber, FirstSerial)
	}

	for _, path := range []string{leaf.CertPath, leaf.KeyPath, leaf.CSRPath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing artifact %s: %v", path, err)
		}
	}
}

func TestIssueLeafSerialsMonotonic(t *testing.T) {
	layout, _, inter := setupHierarchy(t)

	names := []string{"a.test", "b.test", "c.test"}
	for i, name := range names {
		leaf, err := inter.IssueLeaf(layout, testLeafRequest(name))
		if err != nil {
			t.Fatalf("IssueLeaf(%s) error = %v", name, err)
		}
		want := big.NewInt(FirstSerial + int64(i))
		if leaf.Cert.SerialNumber.Cmp(want) != 0 {
			t.Errorf("serial for %s = %s, want %s", name, leaf.Cert.SerialNumber, want)
		}
	}

	entries, err := inter.Ledger().Entries()
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != len(names) {
		t.Fatalf("index entries = %d, want %d", len(entries), len(names))
	}
	for _, entry := range entries {
		if entry.Status != "V" {
			t.Errorf("entry status = %q, want V", entry.Status)
		}
	}
}

func TestIssueLeafChainVerifies(t *testing.T) {
	layout, root, inter := setupHierarchy(t)

	leaf, err := inter.IssueLeaf(layout, testLeafRequest("chain.example.test"))
	if err != nil {
		t.Fatalf("IssueLeaf() error = %v", err)
	}

	if err := VerifyChain(leaf.Cert, []*x509.Certificate{inter.Certificate()}, root.Certificate()); err != nil {
		t.Errorf("VerifyChain() error = %v", err)
	}

	// Without the intermediate the leaf must not verify against the root.
	if err := VerifyChain(leaf.Cert, nil, root.Certificate()); err == nil {
		t.Error("leaf verified against root alone, want failure")
	}
}

func TestIssueLeafRejectsInvalidRequests(t *testing.T) {
	layout, _, inter := setupHierarchy(t)

	tests := []struct {
		name string
		req  LeafRequest
	}{
		{
			name: "empty common name",
			req: LeafRequest{
				Subject:      Subject{CommonName: "   "},
				DNSNames:     []string{"a.test"},
				KeyBits:      2048,
				ValidityDays: 365,
			},
		},
		{
			name: "no SANs",
			req: LeafRequest{
				Subject:      Subject{CommonName: "nosan.test"},
				KeyBits:      2048,
				ValidityDays: 365,
			},
		},
		{
			name: "bad SAN",
			req: LeafRequest{
				Subject:      Subject{CommonName: "badsan.test"},
				DNSNames:     []string{"under_score.test"},
				KeyBits:      2048,
				ValidityDays: 365,
			},
		},
		{
			name: "zero validity",
			req: LeafRequest{
				Subject:      Subject{CommonName: "zerodays.test"},
				DNSNames:     []string{"zerodays.test"},
				KeyBits:      2048,
				ValidityDays: 0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := inter.IssueLeaf(layout, tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
		})
	}

	// Rejected requests leave nothing behind under the certs tree.
	matches, _ := filepath.Glob(filepath.Join(layout.CertsDir(), "*"))
	if len(matches) != 0 {
		t.Errorf("rejected requests created files: %v", matches)
	}
}

func TestIssueLeafOverwritesExisting(t *testing.T) {
	layout, _, inter := setupHierarchy(t)

	first, err := inter.IssueLeaf(layout, testLeafRequest("renew.test"))
	if err != nil {
		t.Fatalf("first IssueLeaf() error = %v", err)
	}
	second, err := inter.IssueLeaf(layout, testLeafRequest("renew.test"))
	if err != nil {
		t.Fatalf("second IssueLeaf() error = %v", err)
	}

	if second.Cert.SerialNumber.Cmp(first.Cert.SerialNumber) == 0 {
		t.Error("re-issue reused the serial number")
	}
	if second.CertPath != first.CertPath {
		t.Errorf("re-issue wrote to %s, want %s", second.CertPath, first.CertPath)
	}

	stored, err := readCertPEM(second.CertPath)
	if err != nil {
		t.Fatalf("readCertPEM() error = %v", err)
	}
	if stored.SerialNumber.Cmp(second.Cert.SerialNumber) != 0 {
		t.Error("stored certificate is not the latest issuance")
	}
}

func TestIssueLeafRequiresIntermediate(t *testing.T) {
	layout, root := setupRoot(t)

	_, err := root.IssueLeaf(layout, testLeafRequest("wrong-tier.test"))
	if err == nil {
		t.Fatal("IssueLeaf from root should fail")
	}
}
