// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of
// plain-text files. The filename is the key name and the trimmed file
// contents are the value.
//
// Recognized keys: openai-api-key, cohere-api-key, zotero-api-key,
// smtp-password. A key missing from the directory falls back to the
// environment variable of the same name in upper case with underscores
// (openai-api-key reads OPENAI_API_KEY).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Key names.
const (
	OpenAIAPIKey = "openai-api-key"
	CohereAPIKey = "cohere-api-key"
	ZoteroAPIKey = "zotero-api-key"
	SMTPPassword = "smtp-password"
)

// Store holds loaded secrets.
type Store map[string]string

// Load reads all files in dir. A missing directory is not an error and
// yields an empty Store. Unreadable files are logged and skipped.
func Load(dir string, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	store := make(Store)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			store[name] = value
		}
	}
	return store, nil
}

// Get returns the secret for key, falling back to the environment.
func (s Store) Get(key string) string {
	if v, ok := s[key]; ok {
		return v
	}
	return strings.TrimSpace(os.Getenv(EnvName(key)))
}

// EnvName maps a key file name to its environment variable name.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}
