// Package ca implements the certificate hierarchy engine: file-backed tier
// stores, the serial and issuance ledger, root and intermediate
// initialization, leaf issuance, chain assembly and certificate inspection.
package ca

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/clusterpki/clpki/internal/fsutil"
)

// Layout maps the output directory structure:
//
//	{base}/
//	  ├── root/
//	  │   ├── root.crt
//	  │   ├── private/root.key
//	  │   ├── serial
//	  │   └── index.txt
//	  ├── intermediate/
//	  │   ├── intermediate.crt
//	  │   ├── intermediate.csr
//	  │   ├── ca-chain.crt
//	  │   ├── private/intermediate.key
//	  │   ├── serial
//	  │   └── index.txt
//	  ├── certs/
//	  │   ├── registry.db
//	  │   └── {subject}/
//	  └── k8s/
type Layout struct {
	Base string
}

func (l Layout) TierDir(tier Tier) string {
	return filepath.Join(l.Base, string(tier))
}

func (l Layout) CertsDir() string {
	return filepath.Join(l.Base, "certs")
}

func (l Layout) LeafDir(subject string) string {
	return filepath.Join(l.CertsDir(), subject)
}

func (l Layout) RegistryPath() string {
	return filepath.Join(l.CertsDir(), "registry.db")
}

func (l Layout) ExportDir() string {
	return filepath.Join(l.Base, "k8s")
}

// Store manages the on-disk artifacts of a single CA tier. All methods that
// mutate state are serialized through the store mutex so a check-then-create
// sequence cannot race within the process.
type Store struct {
	mu       sync.Mutex
	tier     Tier
	basePath string
}

// NewStore creates a store for the given tier under the layout base.
func NewStore(layout Layout, tier Tier) *Store {
	return &Store{tier: tier, basePath: layout.TierDir(tier)}
}

// Tier returns the tier this store manages.
func (s *Store) Tier() Tier {
	return s.tier
}

// Dir returns the tier directory.
func (s *Store) Dir() string {
	return s.basePath
}

// Init creates the tier directory structure. The private directory is
// restricted to the owner.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", s.basePath, err)
	}
	privDir := filepath.Join(s.basePath, "private")
	if err := os.MkdirAll(privDir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", privDir, err)
	}
	return nil
}

// CertPath returns the path to the tier certificate.
func (s *Store) CertPath() string {
	return filepath.Join(s.basePath, string(s.tier)+".crt")
}

// KeyPath returns the path to the tier private key.
func (s *Store) KeyPath() string {
	return filepath.Join(s.basePath, "private", string(s.tier)+".key")
}

// CSRPath returns the path to the tier certificate request.
func (s *Store) CSRPath() string {
	return filepath.Join(s.basePath, string(s.tier)+".csr")
}

// ChainPath returns the path to the CA chain bundle of this tier.
func (s *Store) ChainPath() string {
	return filepath.Join(s.basePath, "ca-chain.crt")
}

// HasCert reports whether the tier certificate exists.
func (s *Store) HasCert() bool {
	return fsutil.Exists(s.CertPath())
}

// HasKey reports whether the tier private key exists.
func (s *Store) HasKey() bool {
	return fsutil.Exists(s.KeyPath())
}

// SaveCert writes the tier certificate as PEM.
func (s *Store) SaveCert(cert *x509.Certificate) error {
	return writeCertPEM(s.CertPath(), cert)
}

// LoadCert loads the tier certificate.
func (s *Store) LoadCert() (*x509.Certificate, error) {
	return readCertPEM(s.CertPath())
}

// SaveCSR writes a DER certificate request as PEM.
func (s *Store) SaveCSR(der []byte) error {
	block := &pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der}
	return fsutil.WriteFileAtomic(s.CSRPath(), pem.EncodeToMemory(block), 0o644)
}

func writeCertPEM(path string, cert *x509.Certificate) error {
	block := &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}
	if err := fsutil.WriteFileAtomic(path, pem.EncodeToMemory(block), 0o644); err != nil {
		return fmt.Errorf("failed to write certificate %s: %w", path, err)
	}
	return nil
}

func readCertPEM(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("no certificate found in %s", path)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return cert, nil
}
