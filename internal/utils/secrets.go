package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSecret generates a random hex secret of the given byte length
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateAdminSecret generates a 256-bit signing secret for admin tokens
func GenerateAdminSecret() (string, error) {
	secret, err := GenerateSecret(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate admin secret: %w", err)
	}
	return secret, nil
}

// GenerateWebhookSecret generates a local webhook signing secret in the gateway's whsec_ format
func GenerateWebhookSecret() (string, error) {
	secret, err := GenerateSecret(24)
	if err != nil {
		return "", fmt.Errorf("failed to generate webhook secret: %w", err)
	}
	return "whsec_" + secret, nil
}
