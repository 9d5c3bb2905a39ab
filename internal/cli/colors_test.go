package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/clusterpki/clpki/internal/ca"
)

func TestFormatBand(t *testing.T) {
	tests := []struct {
		band  ca.Band
		color string
	}{
		{ca.BandExpired, ColorRed},
		{ca.BandCritical, ColorRed},
		{ca.BandWarning, ColorYellow},
		{ca.BandHealthy, ColorGreen},
	}
	for _, tt := range tests {
		got := FormatBand(tt.band)
		if !strings.HasPrefix(got, tt.color) || !strings.HasSuffix(got, ColorReset) {
			t.Errorf("FormatBand(%s) = %q, want %s wrapped", tt.band, got, tt.color)
		}
		if !strings.Contains(got, string(tt.band)) {
			t.Errorf("FormatBand(%s) = %q, missing band name", tt.band, got)
		}
	}
}

func TestFormatExpiry(t *testing.T) {
	notAfter := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)

	if got := FormatExpiry(notAfter, 120); got != "2027-06-01 (120 days)" {
		t.Errorf("FormatExpiry() = %q", got)
	}
	if got := FormatExpiry(notAfter, 0); got != "2027-06-01 (expires today)" {
		t.Errorf("FormatExpiry() = %q", got)
	}
	if got := FormatExpiry(notAfter, -3); got != "2027-06-01 (expired 3 days ago)" {
		t.Errorf("FormatExpiry() = %q", got)
	}
}
