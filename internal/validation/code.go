package validation

import (
	"crypto/rand"
	"fmt"
)

const (
	orderCodeLength   = 8
	orderCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateOrderCode returns a random human-readable order code of 8
// characters from A-Z and 0-9.
func GenerateOrderCode() string {
	buf := make([]byte, orderCodeLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = orderCodeAlphabet[int(b)%len(orderCodeAlphabet)]
	}
	return string(buf)
}
