package services

import (
	"fmt"
	"regexp"
	"strings"
)

var nonDigitRe = regexp.MustCompile(`\D`)

// NormalizePhone coerces a Russian phone number to the canonical 11-digit
// "7XXXXXXXXXX" form. Accepts 11 digits starting with 7 or 8, or a bare
// 10-digit subscriber number. Anything else is rejected rather than
// guessed at.
func NormalizePhone(phone string) (string, error) {
	digits := nonDigitRe.ReplaceAllString(phone, "")

	switch {
	case len(digits) == 11 && (digits[0] == '7' || digits[0] == '8'):
		return "7" + digits[1:], nil
	case len(digits) == 10:
		return "7" + digits, nil
	default:
		return "", fmt.Errorf("%w: phone %q does not resolve to 11 digits", ErrValidation, phone)
	}
}

var fullNameRe = regexp.MustCompile(`^[а-яА-ЯёЁ\s\-]{5,60}$`)

// ValidFullName reports whether the name looks like a real Cyrillic full
// name (5–60 letters, spaces, hyphens).
func ValidFullName(name string) bool {
	return fullNameRe.MatchString(strings.TrimSpace(name))
}
