package audit

import (
	"fmt"
	"sync"
)

var (
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex
)

// Init installs the global audit writer. A nil writer disables auditing.
func Init(w Writer) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter = NopWriter{}
		return
	}
	globalWriter = w
}

// InitFile installs a file-based global audit writer. An empty path
// disables auditing.
func InitFile(path string) error {
	if path == "" {
		Init(nil)
		return nil
	}

	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}
	Init(w)
	return nil
}

// Close closes the global audit writer.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	err := globalWriter.Close()
	globalWriter = NopWriter{}
	return err
}

// Log writes an audit event to the global writer. If auditing is
// enabled and the write fails, the calling operation must fail too.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()

	if err := w.Write(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

// LogCACreated records creation of a CA tier.
func LogCACreated(tier, path, subject string, keyBits int, success bool) error {
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}

	return Log(NewEvent(EventCACreated, result).
		WithObject(Object{Type: "ca", Tier: tier, Subject: subject, Path: path}).
		WithContext(Context{KeyBits: keyBits}))
}

// LogCALoaded records that an existing CA was loaded instead of created.
func LogCALoaded(tier, path, subject string) error {
	return Log(NewEvent(EventCALoaded, ResultSuccess).
		WithObject(Object{Type: "ca", Tier: tier, Subject: subject, Path: path}))
}

// LogCertIssued records an issued certificate.
func LogCertIssued(tier, serial, subject string, dnsNames []string, notAfter string, success bool) error {
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}

	return Log(NewEvent(EventCertIssued, result).
		WithObject(Object{Type: "certificate", Tier: tier, Serial: serial, Subject: subject}).
		WithContext(Context{DNSNames: dnsNames, NotAfter: notAfter}))
}

// LogStateInconsistent records a cert-without-key or key-without-cert
// condition detected by the hierarchy guard.
func LogStateInconsistent(tier, path, reason string) error {
	return Log(NewEvent(EventStateInconsistent, ResultFailure).
		WithObject(Object{Type: "ca", Tier: tier, Path: path}).
		WithContext(Context{Reason: reason}))
}

// LogExportWritten records a cluster export.
func LogExportWritten(path string, success bool) error {
	result := ResultSuccess
	if !success {
		result = ResultFailure
	}

	return Log(NewEvent(EventExportWritten, result).
		WithObject(Object{Type: "export", Path: path}))
}

// LogAuthFailed records a failed key access (bad passphrase or
// unreadable key file).
func LogAuthFailed(tier, path, reason string) error {
	return Log(NewEvent(EventAuthFailed, ResultFailure).
		WithObject(Object{Type: "ca", Tier: tier, Path: path}).
		WithContext(Context{Reason: reason}))
}
