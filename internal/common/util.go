package common

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter specifies the number of random bytes, so the result is
// twice as long.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites the contents of b with zeros.
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	if b == nil {
		return
	}
	for i := range b {
		b[i] = 0
	}
}

// Expired reports whether a token with the given expiry is no longer usable
// at now. A zero expiry is treated as expired.
func Expired(expiresAt, now time.Time) bool {
	if expiresAt.IsZero() {
		return true
	}
	return !now.Before(expiresAt)
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// Initial returns the first rune of s upper-cased, or "" for an empty string.
func Initial(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.ToUpper(string([]rune(s)[0]))
}
