package ca

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAndLoadChain(t *testing.T) {
	layout, root, inter := setupHierarchy(t)

	leaf, err := inter.IssueLeaf(layout, testLeafRequest("bundle.test"))
	if err != nil {
		t.Fatalf("IssueLeaf() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "fullchain.crt")
	if err := WriteChain(path, leaf.Cert, inter.Certificate(), root.Certificate()); err != nil {
		t.Fatalf("WriteChain() error = %v", err)
	}

	certs, err := LoadChain(path)
	if err != nil {
		t.Fatalf("LoadChain() error = %v", err)
	}
	if len(certs) != 3 {
		t.Fatalf("len(certs) = %d, want 3", len(certs))
	}

	// Leaf first, root last.
	if certs[0].Subject.CommonName != "bundle.test" {
		t.Errorf("certs[0] = %q, want leaf", certs[0].Subject.CommonName)
	}
	if certs[1].Subject.CommonName != "Test Intermediate CA" {
		t.Errorf("certs[1] = %q, want intermediate", certs[1].Subject.CommonName)
	}
	if certs[2].Subject.CommonName != "Test Root CA" {
		t.Errorf("certs[2] = %q, want root", certs[2].Subject.CommonName)
	}
}

func TestEncodeChainPEM(t *testing.T) {
	_, root, inter := setupHierarchy(t)

	pemData := string(EncodeChainPEM(inter.Certificate(), root.Certificate()))
	if got := strings.Count(pemData, "-----BEGIN CERTIFICATE-----"); got != 2 {
		t.Errorf("PEM block count = %d, want 2", got)
	}
	if !strings.HasSuffix(pemData, "-----END CERTIFICATE-----\n") {
		t.Error("bundle should end with a PEM trailer and newline")
	}
}

func TestLoadChainErrors(t *testing.T) {
	if _, err := LoadChain(filepath.Join(t.TempDir(), "missing.crt")); err == nil {
		t.Error("LoadChain(missing) should fail")
	}

	empty := filepath.Join(t.TempDir(), "empty.crt")
	if err := os.WriteFile(empty, []byte("not pem"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadChain(empty); err == nil {
		t.Error("LoadChain(no certificates) should fail")
	}
}
