package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFirstOrEmpty(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{}, ""},
		{[]string{"a.test"}, "a.test"},
		{[]string{"a.test", "b.test"}, "a.test"},
	}
	for _, tt := range tests {
		if got := FirstOrEmpty(tt.in); got != tt.want {
			t.Errorf("FirstOrEmpty(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadCertFromPathRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-cert.crt")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCertFromPath(path); err == nil {
		t.Error("LoadCertFromPath() on non-PEM data should fail")
	}
	if _, err := LoadCertFromPath(filepath.Join(t.TempDir(), "missing.crt")); err == nil {
		t.Error("LoadCertFromPath() on missing file should fail")
	}
}
