package profile

import (
	"fmt"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ParseSANList parses a comma-separated DNS name list into an ordered,
// whitespace-trimmed slice. Empty entries are dropped; the remaining
// names are validated per RFC 1035/1123. Order is preserved and no
// deduplication is performed beyond dropping exact empties.
func ParseSANList(input string) ([]string, error) {
	var names []string
	for _, part := range strings.Split(input, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if err := ValidateDNSName(name); err != nil {
			return nil, fmt.Errorf("invalid SAN entry %q: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}

// NormalizeDNSName lowercases a DNS name (RFC 4343) and strips the
// trailing dot of the absolute form.
func NormalizeDNSName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".")
}

// ValidateDNSName validates a DNS name according to RFC 1035/1123:
// total length ≤ 253, labels ≤ 63 characters, alphanumeric plus hyphen,
// no hyphen at label edges. A wildcard is accepted in the leftmost
// label only. Single-label names like "localhost" are allowed since
// cluster-internal services commonly use them.
func ValidateDNSName(name string) error {
	if name == "" {
		return fmt.Errorf("DNS name cannot be empty")
	}

	name = NormalizeDNSName(name)

	// RFC 1035: total DNS name ≤ 253 characters
	if len(name) > 253 {
		return fmt.Errorf("DNS name too long: %d > 253 characters", len(name))
	}

	for i, label := range strings.Split(name, ".") {
		if label == "" {
			return fmt.Errorf("empty label in DNS name (double dot or leading dot)")
		}
		if len(label) > 63 {
			return fmt.Errorf("label too long: %q (%d > 63 characters)", label, len(label))
		}
		if label == "*" {
			if i != 0 {
				return fmt.Errorf("wildcard (*) must be leftmost label")
			}
			continue
		}
		if !isValidDNSLabel(label) {
			return fmt.Errorf("invalid DNS label %q: must contain only alphanumeric characters and hyphens, and not start or end with a hyphen", label)
		}
	}

	return nil
}

// isValidDNSLabel checks a DNS label per RFC 1123.
func isValidDNSLabel(label string) bool {
	if len(label) == 0 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, c := range label {
		isLower := c >= 'a' && c <= 'z'
		isUpper := c >= 'A' && c <= 'Z'
		isDigit := c >= '0' && c <= '9'
		if !isLower && !isUpper && !isDigit && c != '-' {
			return false
		}
	}
	return true
}

// PublicSuffixWarnings returns a warning per SAN entry whose base domain
// is an ICANN public suffix (e.g. "*.co.uk" or a bare "com"). Such names
// are almost certainly configuration mistakes but are not rejected.
func PublicSuffixWarnings(names []string) []string {
	var warnings []string
	for _, name := range names {
		base := NormalizeDNSName(name)
		base = strings.TrimPrefix(base, "*.")

		suffix, icann := publicsuffix.PublicSuffix(base)
		if icann && suffix == base {
			warnings = append(warnings, fmt.Sprintf("SAN %q covers the public suffix %q", name, suffix))
		}
	}
	return warnings
}
