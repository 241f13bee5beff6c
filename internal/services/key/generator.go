package key

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

const (
	// KeyPrefix identifies engine-issued keys on the wire.
	KeyPrefix = "dynamo-sk-"

	// PrefixDisplayLen is how much of the raw key survives for display.
	PrefixDisplayLen = 12

	randomBytes = 24
)

var keyFormat = regexp.MustCompile(`^dynamo-sk-[a-f0-9]{48}$`)

// GenerateRawKey returns a fresh raw key: the fixed prefix followed by 48
// lowercase hex characters.
func GenerateRawKey() (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate key material: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(buf), nil
}

// HashKey returns the hex SHA-256 digest of a raw key. Only hashes are
// persisted.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IsValidKeyFormat reports whether raw matches the exact issued-key shape.
func IsValidKeyFormat(raw string) bool {
	return keyFormat.MatchString(raw)
}

// DisplayPrefix returns the stored display hint for a raw key.
func DisplayPrefix(raw string) string {
	if len(raw) < PrefixDisplayLen {
		return raw
	}
	return raw[:PrefixDisplayLen]
}
