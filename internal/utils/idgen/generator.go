package idgen

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const charset = "0123456789abcdefghijklmnopqrstuvwxyz"

var charsetLen = big.NewInt(int64(len(charset)))

// GenerateSecureID returns prefix + "_" + length random base36 characters.
// An empty prefix yields just the random part.
func GenerateSecureID(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("id length must be positive, got %d", length)
	}

	var sb strings.Builder
	sb.Grow(len(prefix) + 1 + length)
	if prefix != "" {
		sb.WriteString(prefix)
		sb.WriteByte('_')
	}
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		sb.WriteByte(charset[n.Int64()])
	}
	return sb.String(), nil
}
