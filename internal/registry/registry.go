// Package registry persists issuance records for server certificates in a
// bbolt database keyed by subject name. Re-issuing for a subject replaces
// its record, so the registry always describes the artifacts currently on
// disk.
package registry

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned when no record exists for a subject.
var ErrNotFound = errors.New("certificate record not found")

var bucketCertificates = []byte("certificates")

// Record describes one issued server certificate.
type Record struct {
	Subject   string    `cbor:"1,keyasint"`
	Serial    string    `cbor:"2,keyasint"`
	DNSNames  []string  `cbor:"3,keyasint"`
	NotBefore time.Time `cbor:"4,keyasint"`
	NotAfter  time.Time `cbor:"5,keyasint"`
	CertPath  string    `cbor:"6,keyasint"`
	KeyPath   string    `cbor:"7,keyasint"`
	ChainPath string    `cbor:"8,keyasint"`
	IssuedAt  time.Time `cbor:"9,keyasint"`
}

// SerialNumber parses the stored decimal serial.
func (r *Record) SerialNumber() (*big.Int, error) {
	serial, ok := new(big.Int).SetString(r.Serial, 10)
	if !ok {
		return nil, fmt.Errorf("malformed serial %q for %s", r.Serial, r.Subject)
	}
	return serial, nil
}

// Registry is a bbolt-backed record store.
type Registry struct {
	db *bbolt.DB
}

// Open opens or creates the registry database at path.
func Open(path string) (*Registry, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening registry db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCertificates)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing registry db: %w", err)
	}
	return &Registry{db: db}, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Put stores a record under its subject name, replacing any previous one.
func (r *Registry) Put(record *Record) error {
	if record.Subject == "" {
		return fmt.Errorf("record subject must not be empty")
	}
	data, err := cbor.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record for %s: %w", record.Subject, err)
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCertificates).Put([]byte(record.Subject), data)
	})
}

// Get loads the record for a subject.
func (r *Registry) Get(subject string) (*Record, error) {
	var record Record
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCertificates).Get([]byte(subject))
		if data == nil {
			return fmt.Errorf("%s: %w", subject, ErrNotFound)
		}
		return cbor.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete removes the record for a subject.
func (r *Registry) Delete(subject string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketCertificates)
		if b.Get([]byte(subject)) == nil {
			return fmt.Errorf("%s: %w", subject, ErrNotFound)
		}
		return b.Delete([]byte(subject))
	})
}

// List returns all records ordered by subject name. Bolt iterates keys in
// byte order, so the listing is already sorted.
func (r *Registry) List() ([]*Record, error) {
	var records []*Record
	err := r.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCertificates).ForEach(func(k, v []byte) error {
			var record Record
			if err := cbor.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("decoding record for %s: %w", k, err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
