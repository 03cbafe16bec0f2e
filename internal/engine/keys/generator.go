// Package keys issues, validates and revokes API keys for the public API.
package keys

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// SecretBytes is the length of the random part of a key.
	SecretBytes = 32

	// PrefixLength is how many leading characters are stored in clear for
	// display and lookup.
	PrefixLength = 12

	DefaultPrefix = "tg_live"

	// bcrypt ignores input past 72 bytes.
	maxSecretLength = 72
)

// Generate returns the full secret (shown once), its bcrypt hash and the
// display prefix.
func Generate(prefix string, cost int) (secret, hash, displayPrefix string, err error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	random := make([]byte, SecretBytes)
	if _, err = rand.Read(random); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	secret = prefix + "_" + base64.RawURLEncoding.EncodeToString(random)
	if len(secret) > maxSecretLength {
		return "", "", "", fmt.Errorf("key prefix %q too long", prefix)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash API key: %w", err)
	}

	return secret, string(hashed), DisplayPrefix(secret), nil
}

func DisplayPrefix(secret string) string {
	if len(secret) <= PrefixLength {
		return secret
	}
	return secret[:PrefixLength]
}

// Matches compares in constant time via bcrypt.
func Matches(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
