// internal/domain/phone.go
package domain

import (
	"regexp"
	"strings"
)

var msisdnPattern = regexp.MustCompile(`^254[17]\d{8}$`)

// NormalizePhone converts the phone formats users actually type into the
// canonical M-Pesa MSISDN (254XXXXXXXXX). Accepted inputs: 0712345678,
// 712345678, 112345678, 254712345678, with any spacing or punctuation.
// Normalizing an already-normalized number is a no-op.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()

	switch {
	case strings.HasPrefix(cleaned, "0"):
		cleaned = "254" + cleaned[1:]
	case len(cleaned) == 9 && (cleaned[0] == '7' || cleaned[0] == '1'):
		cleaned = "254" + cleaned
	case !strings.HasPrefix(cleaned, "254"):
		cleaned = "254" + cleaned
	}

	if !msisdnPattern.MatchString(cleaned) {
		return "", &ValidationError{
			Field:  "phone_number",
			Reason: "invalid phone number format, expected 254XXXXXXXXX, 07XXXXXXXX or 7XXXXXXXX",
		}
	}

	return cleaned, nil
}
