package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxDeviceNameLength is the longest local name a BLE advertisement can carry.
const maxDeviceNameLength = 29

// deviceNamePrefixRegex matches printable advertisement name prefixes.
var deviceNamePrefixRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.-]*$`)

// ValidateDeviceNamePrefix validates a BLE device name prefix used to filter
// discovery results.
//
// The validation rules are intentionally conservative:
//   - No empty prefixes (they would match every advertiser in range)
//   - No control characters
//   - Maximum length of 29 characters
func ValidateDeviceNamePrefix(prefix string) error {
	if prefix == "" {
		return New(ErrCodeInvalidConfig, "device name prefix cannot be empty")
	}

	if len(prefix) > maxDeviceNameLength {
		return New(ErrCodeInvalidConfig, "device name prefix too long (max %d characters)", maxDeviceNameLength)
	}

	for _, r := range prefix {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidConfig, "device name prefix contains control characters")
		}
	}

	if !deviceNamePrefixRegex.MatchString(prefix) {
		return New(ErrCodeInvalidConfig, "invalid device name prefix: %q", prefix)
	}

	return nil
}

// ValidateRange checks that value lies within [lo, hi].
func ValidateRange(field string, value, lo, hi float64) error {
	if value < lo || value > hi {
		return New(ErrCodeInvalidConfig, "%s must be between %g and %g, got %g", field, lo, hi, value)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidateListenAddr validates a host:port listen address. An empty address
// is valid and disables the listener.
func ValidateListenAddr(addr string) error {
	if addr == "" {
		return nil
	}
	i := strings.LastIndex(addr, ":")
	if i < 0 || i == len(addr)-1 {
		return New(ErrCodeInvalidConfig, "listen address %q must be host:port", addr)
	}
	for _, r := range addr[i+1:] {
		if r < '0' || r > '9' {
			return New(ErrCodeInvalidConfig, "listen address %q has a non-numeric port", addr)
		}
	}
	return nil
}
