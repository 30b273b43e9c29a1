package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandomHex returns n cryptographically-random bytes encoded
// as hex. Used for credential access keys; collision probability is
// effectively zero.
func GenerateRandomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
