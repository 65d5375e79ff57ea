package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// GenerateToken returns an unguessable URL-safe token of n random
// bytes.
func GenerateToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 digest of a token. Sessions and
// one-time codes store only this digest; lookups match on it exactly.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// GenerateNumericCode returns a code of n decimal digits for
// out-of-band delivery. Bytes outside the largest multiple of 10 are
// rejected so every digit is equally likely.
func GenerateNumericCode(n int) (string, error) {
	const digits = "0123456789"
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			out = append(out, digits[int(b)%len(digits)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

func constantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
