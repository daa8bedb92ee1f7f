package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhoneAcceptedFormats(t *testing.T) {
	cases := map[string]string{
		"0712345678":     "254712345678",
		"712345678":      "254712345678",
		"254712345678":   "254712345678",
		"0112345678":     "254112345678",
		"112345678":      "254112345678",
		"+254712345678":  "254712345678",
		"0712 345 678":   "254712345678",
		"0712-345-678":   "254712345678",
		"(0712) 345678":  "254712345678",
		"254 712345678 ": "254712345678",
	}

	for input, want := range cases {
		got, err := NormalizePhone(input)
		require.NoError(t, err, "input %q", input)
		require.Equal(t, want, got, "input %q", input)
	}
}

func TestNormalizePhoneIdempotent(t *testing.T) {
	normalized, err := NormalizePhone("0712345678")
	require.NoError(t, err)

	again, err := NormalizePhone(normalized)
	require.NoError(t, err)
	require.Equal(t, normalized, again)
}

func TestNormalizePhoneRejectsInvalid(t *testing.T) {
	invalid := []string{
		"",
		"12345",
		"0812345678",   // not a 7/1 prefix
		"25471234567",  // too short
		"2547123456789", // too long
		"hello",
	}

	for _, input := range invalid {
		_, err := NormalizePhone(input)
		require.Error(t, err, "input %q", input)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "input %q", input)
	}
}
