// Package config provides configuration loading and structs for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RateLimitRequests per RateLimitWindowSeconds per client IP.
	RateLimitRequests      int `yaml:"rate_limit_requests"`
	RateLimitWindowSeconds int `yaml:"rate_limit_window_seconds"`
}

// StorageConfig holds the storage root for the index and metadata artifacts.
type StorageConfig struct {
	Root string `yaml:"root"`
}

// CorpusConfig holds the source document settings.
type CorpusConfig struct {
	Path  string `yaml:"path"`
	DocID string `yaml:"doc_id"`
	Watch bool   `yaml:"watch"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "openai" or "mock"
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`
}

// ChatConfig holds the answer-synthesis model settings.
type ChatConfig struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// SearchConfig holds chunking, retrieval, and confidence settings.
type SearchConfig struct {
	ChunkSize       int     `yaml:"chunk_size"`
	ChunkOverlap    int     `yaml:"chunk_overlap"`
	TopK            int     `yaml:"top_k"`
	MaxSources      int     `yaml:"max_sources"`
	SnippetLength   int     `yaml:"snippet_length"`
	HighThreshold   float64 `yaml:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.Root = expandPath(cfg.Storage.Root, configDir)
	if cfg.Corpus.Path != "" {
		cfg.Corpus.Path = expandPath(cfg.Corpus.Path, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
