package config

import "context"

// SecretProvider resolves secret references (file paths for mounted
// secrets, or any equivalent identifier) into plaintext values.
type SecretProvider interface {
	// GetSecrets returns key -> plaintext for every key it could resolve.
	// Keys it cannot find are omitted from the result.
	GetSecrets(ctx context.Context, keys []string) (map[string]string, error)
}
