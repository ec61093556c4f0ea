// Package config provides configuration loading and structs for the manabu server and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	UploadDir string `yaml:"upload_dir"`
}

// StorageConfig selects the record store and holds paths for the database and vector index.
type StorageConfig struct {
	Backend         string `yaml:"backend"` // "sqlite" or "mongo"
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
	MongoURI        string `yaml:"-"`
	MongoDatabase   string `yaml:"mongo_database"`
}

// EmbeddingConfig selects and configures the embedder.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "hash", "onnx", "ollama" or "openai"
	ModelPath  string `yaml:"model_path"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// LLMConfig configures the chat model used for answers, summaries and quizzes.
type LLMConfig struct {
	Provider          string  `yaml:"provider"` // "openai" (any compatible endpoint) or "ollama"
	Model             string  `yaml:"model"`
	BaseURL           string  `yaml:"base_url"`
	APIKey            string  `yaml:"-"`
	Temperature       float32 `yaml:"temperature"`
	RequestsPerMinute int     `yaml:"requests_per_minute"`
}

// KnowledgeConfig configures the external knowledge service.
type KnowledgeConfig struct {
	BaseURL string `yaml:"base_url"`
	// TimeoutSeconds caps each lookup; 0 leaves it to the caller's context.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ChunkingConfig holds splitter and indexing batch settings.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	BatchSize    int `yaml:"batch_size"`
}

// RetrievalConfig holds how many passages each operation retrieves.
type RetrievalConfig struct {
	AskTopK       int `yaml:"ask_top_k"`
	SummaryTopK   int `yaml:"summary_top_k"`
	QuizTopK      int `yaml:"quiz_top_k"`
	QuizQuestions int `yaml:"quiz_questions"`
	HistoryLimit  int `yaml:"history_limit"`
}

// WatchConfig holds the tenant inbox settings. Files dropped into <inbox_dir>/<tenant>/
// are ingested for that tenant.
type WatchConfig struct {
	InboxDir string `yaml:"inbox_dir"`
	Enabled  *bool  `yaml:"enabled"`
}

// EnabledOrDefault returns whether the inbox watcher runs; defaults to true when an inbox is set.
func (w *WatchConfig) EnabledOrDefault() bool {
	if w.Enabled != nil {
		return *w.Enabled
	}
	return w.InboxDir != ""
}

// Load reads and parses the config file at path, applies environment secrets,
// expands paths, and applies defaults.
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
	ApplyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Server.UploadDir = expandPath(cfg.Server.UploadDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Watch.InboxDir != "" {
		cfg.Watch.InboxDir = expandPath(cfg.Watch.InboxDir, configDir)
	}

	return &cfg, nil
}

// Default returns a config with every default applied and secrets read from the environment.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	ApplyEnv(cfg)
	return cfg
}

// LoadDotEnv loads variables from the given .env files into the process environment.
// Missing files are ignored; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv fills secrets from the environment. GROQ_API_KEY takes precedence over
// OPENAI_API_KEY for the chat model.
func ApplyEnv(cfg *Config) {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		cfg.Storage.MongoURI = uri
	}
}

// Validate reports settings that would make the application misbehave.
func (c *Config) Validate() error {
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	switch c.Storage.Backend {
	case BackendSQLite:
	case BackendMongo:
		if c.Storage.MongoURI == "" {
			return errors.New("storage backend mongo requires MONGO_URI")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// Save writes the config to path. Secrets are never written.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
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
