// Package validate holds the pure, in-memory format validators shared by
// the registration and ingest request paths: MAC address, UUID v4, reading
// timestamp bounds, and batch id charset.
package validate

import (
	"regexp"

	"github.com/R3E-Network/envsensor-gateway/internal/idgen"
)

var macRegexp = regexp.MustCompile(`^([0-9A-F]{2}:){5}[0-9A-F]{2}$`)

// IsValidMAC reports whether s is an uppercase colon-separated MAC address.
func IsValidMAC(s string) bool {
	return macRegexp.MatchString(s)
}

// IsValidUUIDv4 reports whether s is a valid UUID version 4 string.
func IsValidUUIDv4(s string) bool {
	return idgen.IsValidV4(s)
}

// Timestamp bounds: years 2000-2100 inclusive, expressed as epoch
// milliseconds.
const (
	MinTimestampMs = 946_684_800_000
	MaxTimestampMs = 4_102_444_800_000
)

// IsValidTimestampMs reports whether ms falls within the accepted range.
func IsValidTimestampMs(ms int64) bool {
	return ms >= MinTimestampMs && ms <= MaxTimestampMs
}

// IsValidBatchID reports whether s is 1-256 characters of printable ASCII.
func IsValidBatchID(s string) bool {
	if len(s) < 1 || len(s) > 256 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return false
		}
	}
	return true
}
