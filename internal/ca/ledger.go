package ca

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/clusterpki/clpki/internal/fsutil"
)

// FirstSerial is the value a freshly initialized serial counter starts at.
const FirstSerial = 1000

const indexTimeFormat = "060102150405Z"

// Ledger tracks the serial counter and the issuance index of one CA tier.
// The serial file holds the next unused serial as a decimal integer; the
// index file records one line per issued certificate in the OpenSSL
// index.txt format.
//
// Next and Record are serialized through the ledger mutex so concurrent
// issuance within a process cannot hand out the same serial twice.
type Ledger struct {
	mu         sync.Mutex
	serialPath string
	indexPath  string
}

// NewLedger creates a ledger for the tier directory.
func NewLedger(dir string) *Ledger {
	return &Ledger{
		serialPath: filepath.Join(dir, "serial"),
		indexPath:  filepath.Join(dir, "index.txt"),
	}
}

// Init creates the serial and index files if they do not exist.
func (l *Ledger) Init() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !fsutil.Exists(l.serialPath) {
		data := []byte(fmt.Sprintf("%d\n", FirstSerial))
		if err := fsutil.WriteFileAtomic(l.serialPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to create serial file: %w", err)
		}
	}
	if !fsutil.Exists(l.indexPath) {
		if err := fsutil.WriteFileAtomic(l.indexPath, []byte(""), 0o644); err != nil {
			return fmt.Errorf("failed to create index file: %w", err)
		}
	}
	return nil
}

// Next returns the current serial and advances the counter by one. The new
// counter value is written back atomically before the serial is handed out.
func (l *Ledger) Next() (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.serialPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read serial file: %w", err)
	}

	serial, ok := new(big.Int).SetString(strings.TrimSpace(string(data)), 10)
	if !ok {
		return nil, fmt.Errorf("failed to parse serial file %s", l.serialPath)
	}

	next := new(big.Int).Add(serial, big.NewInt(1))
	if err := fsutil.WriteFileAtomic(l.serialPath, []byte(next.String()+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("failed to update serial file: %w", err)
	}

	return serial, nil
}

// Record appends an issuance entry to the index file.
// Format: status\texpiry\trevocation\tserial\tfilename\tsubject
func (l *Ledger) Record(serial *big.Int, subject string, notAfter time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.indexPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open index file: %w", err)
	}
	defer func() { _ = f.Close() }()

	entry := fmt.Sprintf("V\t%s\t\t%s\tunknown\t%s\n",
		notAfter.UTC().Format(indexTimeFormat),
		serial.String(),
		subject,
	)
	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to write index entry: %w", err)
	}
	return nil
}

// IndexEntry is one parsed line of the issuance index.
type IndexEntry struct {
	Status  string
	Expiry  time.Time
	Serial  *big.Int
	Subject string
}

// Entries reads and parses the full index. Malformed lines are skipped.
func (l *Ledger) Entries() ([]IndexEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.indexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read index file: %w", err)
	}

	var entries []IndexEntry
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := parseIndexLine(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseIndexLine(line string) (IndexEntry, error) {
	var entry IndexEntry
	parts := strings.Split(line, "\t")
	if len(parts) < 6 {
		return entry, fmt.Errorf("malformed index line")
	}

	entry.Status = parts[0]
	if parts[1] != "" {
		if t, err := time.Parse(indexTimeFormat, parts[1]); err == nil {
			entry.Expiry = t
		}
	}
	serial, ok := new(big.Int).SetString(parts[3], 10)
	if !ok {
		return entry, fmt.Errorf("malformed serial %q", parts[3])
	}
	entry.Serial = serial
	entry.Subject = parts[5]
	return entry, nil
}
