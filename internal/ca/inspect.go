package ca

import (
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
)

// Band classifies how close a certificate is to expiry.
type Band string

const (
	BandExpired  Band = "expired"
	BandCritical Band = "critical"
	BandWarning  Band = "warning"
	BandHealthy  Band = "healthy"
)

// Classify maps remaining days to an expiry band. Boundaries: below 0 is
// expired, under 30 critical, under 90 warning, 90 and above healthy.
func Classify(daysRemaining int) Band {
	switch {
	case daysRemaining < 0:
		return BandExpired
	case daysRemaining < 30:
		return BandCritical
	case daysRemaining < 90:
		return BandWarning
	default:
		return BandHealthy
	}
}

// Info is a human-oriented summary of a certificate.
type Info struct {
	Subject           string
	Issuer            string
	SerialNumber      *big.Int
	NotBefore         time.Time
	NotAfter          time.Time
	DNSNames          []string
	IsCA              bool
	SHA256Fingerprint string
	DaysRemaining     int
}

// Band returns the expiry band for the remaining lifetime.
func (i Info) Band() Band {
	return Classify(i.DaysRemaining)
}

// Inspect summarizes a certificate. DaysRemaining is the floor of the time
// left in whole days, so a certificate expiring later today reports 0 and an
// expired one reports a negative count.
func Inspect(cert *x509.Certificate, now time.Time) Info {
	sum := sha256.Sum256(cert.Raw)
	remaining := cert.NotAfter.Sub(now).Seconds() / 86400

	return Info{
		Subject:           cert.Subject.String(),
		Issuer:            cert.Issuer.String(),
		SerialNumber:      cert.SerialNumber,
		NotBefore:         cert.NotBefore,
		NotAfter:          cert.NotAfter,
		DNSNames:          append([]string(nil), cert.DNSNames...),
		IsCA:              cert.IsCA,
		SHA256Fingerprint: fingerprint(sum[:]),
		DaysRemaining:     int(math.Floor(remaining)),
	}
}

// ExceedsIssuerValidity reports whether the certificate outlives its issuer.
// Verifiers reject such a chain after the issuer expires even though the
// leaf itself is still within its window.
func ExceedsIssuerValidity(cert, issuer *x509.Certificate) bool {
	return cert.NotAfter.After(issuer.NotAfter)
}

func fingerprint(sum []byte) string {
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}
