package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// FileSecretProvider implements SecretProvider by reading mounted secret
// files (Kubernetes secrets, Docker secrets). Each key is a file path.
type FileSecretProvider struct {
	readFile func(name string) ([]byte, error)
}

// NewFileSecretProvider creates a provider backed by the OS filesystem.
func NewFileSecretProvider() *FileSecretProvider {
	return &FileSecretProvider{readFile: os.ReadFile}
}

// GetSecrets reads each path and trims the trailing newline most secret
// mounts carry. Missing files are omitted; other read errors fail the call.
func (p *FileSecretProvider) GetSecrets(ctx context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := p.readFile(key)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read secret %s: %w", key, err)
		}
		result[key] = strings.TrimRight(string(data), "\r\n")
	}
	return result, nil
}
