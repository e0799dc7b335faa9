package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret generates a cryptographically secure random hex secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateEnvSecrets returns fresh values for every locally generated secret,
// keyed by environment variable name
func GenerateEnvSecrets() (map[string]string, error) {
	keys := []string{"JWT_SECRET", "JWT_REFRESH_SECRET"}
	secrets := make(map[string]string, len(keys))
	for _, key := range keys {
		secret, err := GenerateSecret(32) // 256-bit
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", key, err)
		}
		secrets[key] = secret
	}
	return secrets, nil
}
