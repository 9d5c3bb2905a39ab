package ca

import (
	"testing"
)

var testPassphrase = []byte("correct horse battery staple")

func testRootConfig() CAConfig {
	return CAConfig{
		Subject: Subject{
			CommonName:   "Test Root CA",
			Organization: "Test Org",
			Country:      "US",
		},
		KeyBits:      2048,
		ValidityDays: 3650,
		Passphrase:   testPassphrase,
	}
}

func testIntermediateConfig() CAConfig {
	return CAConfig{
		Subject: Subject{
			CommonName:   "Test Intermediate CA",
			Organization: "Test Org",
			Country:      "US",
		},
		KeyBits:      2048,
		ValidityDays: 1825,
	}
}

// setupRoot initializes a fresh root CA under a temp layout.
func setupRoot(t *testing.T) (Layout, *CA) {
	t.Helper()

	layout := Layout{Base: t.TempDir()}
	root, created, err := InitializeRoot(NewStore(layout, TierRoot), testRootConfig())
	if err != nil {
		t.Fatalf("InitializeRoot() error = %v", err)
	}
	if !created {
		t.Fatal("InitializeRoot() created = false, want true")
	}
	return layout, root
}

// setupHierarchy initializes root and intermediate under a temp layout.
func setupHierarchy(t *testing.T) (Layout, *CA, *CA) {
	t.Helper()

	layout, root := setupRoot(t)
	inter, created, err := InitializeIntermediate(root, NewStore(layout, TierIntermediate), testIntermediateConfig())
	if err != nil {
		t.Fatalf("InitializeIntermediate() error = %v", err)
	}
	if !created {
		t.Fatal("InitializeIntermediate() created = false, want true")
	}
	return layout, root, inter
}
