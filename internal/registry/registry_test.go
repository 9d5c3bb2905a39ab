package registry

import (
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"
)

func openTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func testRecord(subject string) *Record {
	now := time.Now().UTC().Truncate(time.Second)
	return &Record{
		Subject:   subject,
		Serial:    "1000",
		DNSNames:  []string{subject, "www." + subject},
		NotBefore: now,
		NotAfter:  now.AddDate(0, 0, 365),
		CertPath:  "pki/certs/" + subject + "/" + subject + ".crt",
		KeyPath:   "pki/certs/" + subject + "/" + subject + ".key",
		ChainPath: "pki/certs/" + subject + "/fullchain.crt",
		IssuedAt:  now,
	}
}

func TestPutGet(t *testing.T) {
	reg := openTestRegistry(t)

	want := testRecord("app.test")
	if err := reg.Put(want); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := reg.Get("app.test")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Subject != want.Subject || got.Serial != want.Serial {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
	if len(got.DNSNames) != 2 || got.DNSNames[1] != "www.app.test" {
		t.Errorf("DNSNames = %v", got.DNSNames)
	}
	if !got.NotAfter.Equal(want.NotAfter) {
		t.Errorf("NotAfter = %v, want %v", got.NotAfter, want.NotAfter)
	}

	serial, err := got.SerialNumber()
	if err != nil {
		t.Fatalf("SerialNumber() error = %v", err)
	}
	if serial.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("SerialNumber() = %s, want 1000", serial)
	}
}

func TestGetNotFound(t *testing.T) {
	reg := openTestRegistry(t)
	if _, err := reg.Get("missing.test"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestPutReplaces(t *testing.T) {
	reg := openTestRegistry(t)

	first := testRecord("renew.test")
	if err := reg.Put(first); err != nil {
		t.Fatal(err)
	}
	second := testRecord("renew.test")
	second.Serial = "1001"
	if err := reg.Put(second); err != nil {
		t.Fatal(err)
	}

	got, err := reg.Get("renew.test")
	if err != nil {
		t.Fatal(err)
	}
	if got.Serial != "1001" {
		t.Errorf("Serial = %s, want 1001", got.Serial)
	}

	records, err := reg.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Errorf("len(records) = %d, want 1", len(records))
	}
}

func TestListSorted(t *testing.T) {
	reg := openTestRegistry(t)

	for _, subject := range []string{"charlie.test", "alpha.test", "bravo.test"} {
		if err := reg.Put(testRecord(subject)); err != nil {
			t.Fatal(err)
		}
	}

	records, err := reg.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"alpha.test", "bravo.test", "charlie.test"}
	if len(records) != len(want) {
		t.Fatalf("len(records) = %d, want %d", len(records), len(want))
	}
	for i, subject := range want {
		if records[i].Subject != subject {
			t.Errorf("records[%d].Subject = %s, want %s", i, records[i].Subject, subject)
		}
	}
}

func TestDelete(t *testing.T) {
	reg := openTestRegistry(t)

	if err := reg.Put(testRecord("gone.test")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Delete("gone.test"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := reg.Get("gone.test"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if err := reg.Delete("gone.test"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.db")

	reg, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Put(testRecord("durable.test")); err != nil {
		t.Fatal(err)
	}
	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}

	reg, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = reg.Close() }()
	if _, err := reg.Get("durable.test"); err != nil {
		t.Errorf("Get() after reopen error = %v", err)
	}
}
