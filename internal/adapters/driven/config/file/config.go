// Package file provides the TOML-backed configuration for the
// Bindery CLI, stored at ~/.bindery/config.toml.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// EmbeddingConfig selects and tunes an embedding provider.
type EmbeddingConfig struct {
	// Provider is the default embedding type for new books
	// ("local", "ollama" or "openai").
	Provider string `toml:"provider"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// BaseURL overrides the provider's API base URL.
	BaseURL string `toml:"base_url"`

	// APIKey authenticates remote providers.
	APIKey string `toml:"api_key"`

	// Dimensions overrides the model's vector size.
	Dimensions int `toml:"dimensions"`

	// RequestsPerSecond rate-limits remote providers. Zero disables
	// the limiter.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// StructurerConfig tunes the delegated chunking provider.
type StructurerConfig struct {
	// Enabled turns delegated chunking on. When off, uploads with a
	// non-zero intensity fall back to the rule-based splitter.
	Enabled bool `toml:"enabled"`

	// BaseURL is the Ollama API base URL.
	BaseURL string `toml:"base_url"`

	// Model is the generation model used for structuring.
	Model string `toml:"model"`
}

// Config is the persisted CLI configuration.
type Config struct {
	// DataDir holds the SQLite database. Empty selects the default
	// under ~/.bindery.
	DataDir string `toml:"data_dir"`

	// ChunkSize is the rule-based splitter threshold in characters.
	// Zero selects the default.
	ChunkSize int `toml:"chunk_size"`

	Embedding  EmbeddingConfig  `toml:"embedding"`
	Structurer StructurerConfig `toml:"structurer"`
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".bindery", "config.toml"), nil
}

// Load reads the config at path. A missing file yields the zero
// config (all defaults), not an error.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
