// Package crypto provides key generation and private key storage for
// the certificate hierarchy.
//
// Only RSA is supported; the modulus size comes from configuration and
// must be one of the supported sizes. Keys at rest are PKCS#8 PEM.
// When a passphrase is given the key is encrypted
// (AES-256, scrypt-derived key); the root CA key must always be
// encrypted, while intermediate and leaf keys are written in the clear
// so automated signing and servers can use them unattended.
package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"os"

	"github.com/youmark/pkcs8"

	"github.com/clusterpki/clpki/internal/fsutil"
)

// SupportedKeySizes lists the accepted RSA modulus sizes in bits.
var SupportedKeySizes = []int{2048, 3072, 4096}

// PEM block types for private keys at rest.
const (
	pemTypePrivateKey          = "PRIVATE KEY"
	pemTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
)

// keyFileMode is owner-read-only, applied once the key is in place.
const keyFileMode = 0o400

// Signer wraps an RSA private key for certificate signing.
type Signer struct {
	priv *rsa.PrivateKey
}

var _ crypto.Signer = (*Signer)(nil)

// Generate creates a new RSA key pair of the given modulus size.
// Unsupported sizes are rejected before any key material is produced.
func Generate(bits int) (*Signer, error) {
	if !IsSupportedKeySize(bits) {
		return nil, fmt.Errorf("unsupported RSA key size %d (supported: %v)", bits, SupportedKeySizes)
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA-%d key: %w", bits, err)
	}

	return &Signer{priv: priv}, nil
}

// IsSupportedKeySize reports whether bits is an accepted RSA modulus size.
func IsSupportedKeySize(bits int) bool {
	for _, s := range SupportedKeySizes {
		if s == bits {
			return true
		}
	}
	return false
}

// Public returns the public key.
func (s *Signer) Public() crypto.PublicKey {
	return &s.priv.PublicKey
}

// Sign signs digest with the private key.
func (s *Signer) Sign(random io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return s.priv.Sign(random, digest, opts)
}

// KeySize returns the modulus size in bits.
func (s *Signer) KeySize() int {
	return s.priv.N.BitLen()
}

// MatchesCertificate reports whether the signer key pairs with the
// certificate public key.
func (s *Signer) MatchesCertificate(cert *x509.Certificate) bool {
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return false
	}
	return pub.Equal(&s.priv.PublicKey)
}

// SavePrivateKey writes the private key to path as PKCS#8 PEM,
// encrypted when a passphrase is given. The file lands atomically with
// owner-read-only permissions so a crash never leaves a half-written
// key that an existence probe would mistake for a usable one.
func (s *Signer) SavePrivateKey(path string, passphrase []byte) error {
	var block *pem.Block

	if len(passphrase) > 0 {
		der, err := pkcs8.MarshalPrivateKey(s.priv, passphrase, nil)
		if err != nil {
			return fmt.Errorf("failed to encrypt private key: %w", err)
		}
		block = &pem.Block{Type: pemTypeEncryptedPrivateKey, Bytes: der}
	} else {
		der, err := x509.MarshalPKCS8PrivateKey(s.priv)
		if err != nil {
			return fmt.Errorf("failed to marshal private key: %w", err)
		}
		block = &pem.Block{Type: pemTypePrivateKey, Bytes: der}
	}

	return fsutil.WriteFileAtomic(path, pem.EncodeToMemory(block), keyFileMode)
}

// LoadPrivateKey loads an RSA private key from a PKCS#8 PEM file,
// decrypting it when it is stored encrypted.
func LoadPrivateKey(path string, passphrase []byte) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}

	var priv *rsa.PrivateKey

	switch block.Type {
	case pemTypeEncryptedPrivateKey:
		if len(passphrase) == 0 {
			return nil, fmt.Errorf("private key %s is encrypted but no passphrase provided", path)
		}
		priv, err = pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, passphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt private key: %w", err)
		}

	case pemTypePrivateKey:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS#8 key: %w", err)
		}
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("unexpected key type %T in %s, want RSA", key, path)
		}
		priv = rsaKey

	default:
		return nil, fmt.Errorf("unknown PEM type %q in %s", block.Type, path)
	}

	return &Signer{priv: priv}, nil
}
