package utils

import (
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)

// FormatPhoneNumber strips formatting characters and ensures a country code.
// Numbers without one are assumed domestic (+7).
func FormatPhoneNumber(phoneNumber string) string {
	digits := nonDigits.ReplaceAllString(phoneNumber, "")

	if len(digits) == 11 && strings.HasPrefix(digits, "8") {
		digits = "7" + digits[1:]
	}
	if len(digits) == 10 {
		digits = "7" + digits
	}

	return digits
}

// ValidatePhoneNumber reports whether the value looks like a full
// international subscriber number.
func ValidatePhoneNumber(phoneNumber string) bool {
	digits := nonDigits.ReplaceAllString(phoneNumber, "")
	return len(digits) >= 10 && len(digits) <= 15
}

// NormalizePhoneNumber normalizes a phone number for storage and lookups.
func NormalizePhoneNumber(phoneNumber string) string {
	return "+" + FormatPhoneNumber(phoneNumber)
}
