package code

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

// NewNumeric generates a cryptographically random fixed-length numeric code,
// zero-padded (e.g. "042917" for length 6).
func NewNumeric(length int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < length; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}

// Extract returns the first 6-digit substring found in s, or "".
func Extract(s string) string {
	return sixDigits.FindString(s)
}
