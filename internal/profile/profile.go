// Package profile provides typed X.509 extension profiles for the three
// tiers of the hierarchy.
//
// A profile is a fixed set of extension values applied to a certificate
// template at signing time. Criticality follows RFC 5280: key usage and
// basic constraints are critical, extended key usage and subject
// alternative names are not.
package profile

import (
	"crypto/x509"
)

// ExtensionProfile holds the X.509 extensions applied to a certificate
// at signing time. Values are typed; there is no string templating.
type ExtensionProfile struct {
	// KeyUsage is the key usage bitmask (critical).
	KeyUsage x509.KeyUsage

	// ExtKeyUsage lists extended key usages (non-critical).
	ExtKeyUsage []x509.ExtKeyUsage

	// IsCA marks the certificate as a CA (basic constraints, critical).
	IsCA bool

	// MaxPathLen restricts how many CA certificates may follow in a
	// chain. -1 means no pathlen constraint.
	MaxPathLen int

	// MaxPathLenZero distinguishes an explicit pathlen:0 from an
	// absent constraint when MaxPathLen is 0.
	MaxPathLenZero bool

	// DNSNames is the ordered subject alternative name list.
	// Only set for leaf profiles.
	DNSNames []string
}

// RootCA returns the extension profile for a self-signed root CA:
// CA:true with no path length constraint, certSign+crlSign+digitalSignature.
func RootCA() *ExtensionProfile {
	return &ExtensionProfile{
		KeyUsage:   x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		IsCA:       true,
		MaxPathLen: -1,
	}
}

// IntermediateCA returns the extension profile for the intermediate CA.
// pathlen:0 is a hard invariant: the intermediate may sign leaves only,
// never another CA.
func IntermediateCA() *ExtensionProfile {
	return &ExtensionProfile{
		KeyUsage:       x509.KeyUsageCertSign | x509.KeyUsageCRLSign | x509.KeyUsageDigitalSignature,
		IsCA:           true,
		MaxPathLen:     0,
		MaxPathLenZero: true,
	}
}

// ServerLeaf returns the extension profile for a TLS server certificate
// carrying the given SAN list. Callers must validate the list first; an
// empty list is rejected at issuance, never silently replaced by the CN.
func ServerLeaf(dnsNames []string) *ExtensionProfile {
	return &ExtensionProfile{
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageContentCommitment,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:    dnsNames,
	}
}

// Apply copies the profile's extension values onto a certificate template.
func (p *ExtensionProfile) Apply(template *x509.Certificate) {
	template.KeyUsage = p.KeyUsage
	template.ExtKeyUsage = p.ExtKeyUsage
	template.BasicConstraintsValid = true
	template.IsCA = p.IsCA

	if p.IsCA {
		if p.MaxPathLen >= 0 {
			template.MaxPathLen = p.MaxPathLen
			template.MaxPathLenZero = p.MaxPathLen == 0 && p.MaxPathLenZero
		} else {
			template.MaxPathLen = -1
		}
	}

	if len(p.DNSNames) > 0 {
		template.DNSNames = append([]string(nil), p.DNSNames...)
	}
}
