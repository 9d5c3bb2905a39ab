// Package cli holds terminal presentation helpers shared by the commands.
package cli

import (
	"fmt"
	"time"

	"github.com/clusterpki/clpki/internal/ca"
)

// ANSI color codes for terminal output.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

// FormatBand returns the expiry band colored for the terminal.
func FormatBand(band ca.Band) string {
	switch band {
	case ca.BandExpired, ca.BandCritical:
		return ColorRed + string(band) + ColorReset
	case ca.BandWarning:
		return ColorYellow + string(band) + ColorReset
	case ca.BandHealthy:
		return ColorGreen + string(band) + ColorReset
	default:
		return string(band)
	}
}

// FormatExpiry renders an expiry timestamp with the remaining days.
func FormatExpiry(notAfter time.Time, daysRemaining int) string {
	switch {
	case daysRemaining < 0:
		return fmt.Sprintf("%s (expired %d days ago)", notAfter.Format("2006-01-02"), -daysRemaining)
	case daysRemaining == 0:
		return fmt.Sprintf("%s (expires today)", notAfter.Format("2006-01-02"))
	default:
		return fmt.Sprintf("%s (%d days)", notAfter.Format("2006-01-02"), daysRemaining)
	}
}
