package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileWriter_HashChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}

	if w.LastHash() != GenesisHash {
		t.Errorf("LastHash() = %q, want genesis", w.LastHash())
	}

	e1 := NewEvent(EventCACreated, ResultSuccess).
		WithObject(Object{Type: "ca", Tier: "root", Subject: "CN=Test Root"})
	if err := w.Write(e1); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if e1.HashPrev != GenesisHash {
		t.Errorf("first event HashPrev = %q, want genesis", e1.HashPrev)
	}

	e2 := NewEvent(EventCertIssued, ResultSuccess).
		WithObject(Object{Type: "certificate", Serial: "1000"})
	if err := w.Write(e2); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if e2.HashPrev != e1.Hash {
		t.Error("second event should chain to first event's hash")
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	count, err := VerifyChain(path)
	if err != nil {
		t.Fatalf("VerifyChain() error = %v", err)
	}
	if count != 2 {
		t.Errorf("VerifyChain() count = %d, want 2", count)
	}
}

func TestFileWriter_ChainContinuesAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	if err := w.Write(NewEvent(EventCACreated, ResultSuccess)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	firstHash := w.LastHash()
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	w2, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter() reopen error = %v", err)
	}
	if w2.LastHash() != firstHash {
		t.Errorf("reopened LastHash() = %q, want %q", w2.LastHash(), firstHash)
	}

	e := NewEvent(EventCALoaded, ResultSuccess)
	if err := w2.Write(e); err != nil {
		t.Fatalf("Write() after reopen error = %v", err)
	}
	if e.HashPrev != firstHash {
		t.Error("event after reopen should chain to previous run")
	}
	_ = w2.Close()

	if count, err := VerifyChain(path); err != nil || count != 2 {
		t.Errorf("VerifyChain() = %d, %v; want 2, nil", count, err)
	}
}

func TestVerifyChain_DetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	w, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := w.Write(NewEvent(EventCertIssued, ResultSuccess)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	_ = w.Close()

	// Tamper with the second event's subject.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var event map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &event); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	event["result"] = "failure"
	tampered, _ := json.Marshal(event)
	lines[1] = string(tampered)
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := VerifyChain(path); err == nil {
		t.Error("VerifyChain() should detect a tampered event")
	}
}

func TestNopWriter(t *testing.T) {
	var w NopWriter
	if err := w.Write(NewEvent(EventCACreated, ResultSuccess)); err != nil {
		t.Errorf("NopWriter.Write() error = %v", err)
	}
	if w.LastHash() != GenesisHash {
		t.Errorf("NopWriter.LastHash() = %q", w.LastHash())
	}
}

func TestEvent_Validate(t *testing.T) {
	e := NewEvent(EventCACreated, ResultSuccess)
	if err := e.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	bad := &Event{}
	if err := bad.Validate(); err == nil {
		t.Error("Validate() should reject empty event")
	}
}
