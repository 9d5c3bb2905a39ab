package ca

import (
	"crypto/x509/pkix"
	"encoding/asn1"
)

// Tier identifies a level of the certificate hierarchy.
type Tier string

const (
	TierRoot         Tier = "root"
	TierIntermediate Tier = "intermediate"
	TierLeaf         Tier = "leaf"
)

// oidEmailAddress is the PKCS#9 emailAddress attribute (1.2.840.113549.1.9.1).
var oidEmailAddress = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

// Subject holds the distinguished name components for a certificate.
// Empty fields are omitted from the encoded name.
type Subject struct {
	CommonName   string
	Organization string
	Country      string
	State        string
	Locality     string
	Email        string
}

// Name builds the pkix.Name for the subject. The email address is encoded
// as an IA5String per RFC 5280; the default UTF8String encoding breaks
// strict verifiers.
func (s Subject) Name() pkix.Name {
	name := pkix.Name{CommonName: s.CommonName}
	if s.Organization != "" {
		name.Organization = []string{s.Organization}
	}
	if s.Country != "" {
		name.Country = []string{s.Country}
	}
	if s.State != "" {
		name.Province = []string{s.State}
	}
	if s.Locality != "" {
		name.Locality = []string{s.Locality}
	}
	if s.Email != "" {
		name.ExtraNames = append(name.ExtraNames, pkix.AttributeTypeAndValue{
			Type: oidEmailAddress,
			Value: asn1.RawValue{
				Tag:   asn1.TagIA5String,
				Class: asn1.ClassUniversal,
				Bytes: []byte(s.Email),
			},
		})
	}
	return name
}
