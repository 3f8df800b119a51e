package invite

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

// Code alphabet excludes 0/O/1/I/L to keep codes readable when shared.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	MinCodeLength     = 8
	MaxCodeLength     = 12
	DefaultCodeLength = 10
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{8,12}$`)

// GenerateCode draws a random uppercase alphanumeric code of the given length.
func GenerateCode(length int) (string, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return "", fmt.Errorf("code length %d out of range [%d, %d]", length, MinCodeLength, MaxCodeLength)
	}

	max := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}

	return string(code), nil
}

// ValidCodeFormat reports whether a submitted string even looks like a code.
func ValidCodeFormat(code string) bool {
	return codePattern.MatchString(code)
}
