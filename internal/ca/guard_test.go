package ca

import (
	"os"
	"testing"
)

func TestCheckExisting(t *testing.T) {
	layout := Layout{Base: t.TempDir()}
	store := NewStore(layout, TierRoot)

	existing, err := store.CheckExisting()
	if err != nil {
		t.Fatalf("CheckExisting() error = %v", err)
	}
	if existing.State != StateAbsent {
		t.Errorf("state = %s, want absent", existing.State)
	}

	root, _, err := InitializeRoot(store, testRootConfig())
	if err != nil {
		t.Fatalf("InitializeRoot() error = %v", err)
	}

	existing, err = store.CheckExisting()
	if err != nil {
		t.Fatalf("CheckExisting() error = %v", err)
	}
	if existing.State != StatePresent {
		t.Errorf("state = %s, want present", existing.State)
	}
	if existing.Cert == nil || existing.Cert.Subject.CommonName != root.Certificate().Subject.CommonName {
		t.Error("present state should carry the loaded certificate")
	}

	if err := os.Remove(store.CertPath()); err != nil {
		t.Fatal(err)
	}
	existing, err = store.CheckExisting()
	if err != nil {
		t.Fatalf("CheckExisting() error = %v", err)
	}
	if existing.State != StateInconsistent {
		t.Errorf("state = %s, want inconsistent", existing.State)
	}
	if existing.Detail == "" {
		t.Error("inconsistent state should carry a detail message")
	}
}
