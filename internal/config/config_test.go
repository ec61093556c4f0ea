package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func TestLoad(t *testing.T) {
	_, path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
chunking:
  chunk_size: 800
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Chunking.ChunkSize != 800 || cfg.Chunking.ChunkOverlap != 200 {
		t.Errorf("chunking = %+v", cfg.Chunking)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir, path := writeConfig(t, `
storage:
  database_path: "./data/db/manabu.db"
watch:
  inbox_dir: "./inbox"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "manabu.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	if cfg.Watch.InboxDir != filepath.Join(dir, "inbox") {
		t.Errorf("inbox_dir = %s", cfg.Watch.InboxDir)
	}
	if !cfg.Watch.EnabledOrDefault() {
		t.Error("watcher should be enabled when an inbox is configured")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults: %+v", cfg.Server)
	}
	if cfg.Chunking.ChunkSize != 1200 || cfg.Chunking.ChunkOverlap != 200 || cfg.Chunking.BatchSize != 100 {
		t.Errorf("chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Retrieval.AskTopK != 4 || cfg.Retrieval.SummaryTopK != 5 || cfg.Retrieval.QuizTopK != 5 {
		t.Errorf("retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.LLM.Model != "llama-3.3-70b-versatile" || cfg.LLM.Temperature != 0.3 {
		t.Errorf("llm defaults: %+v", cfg.LLM)
	}
	if cfg.LLM.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("llm base url: %s", cfg.LLM.BaseURL)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("storage backend: %s", cfg.Storage.Backend)
	}
	if cfg.Watch.EnabledOrDefault() {
		t.Error("watcher should be disabled without an inbox")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	cfg := &Config{}
	ApplyEnv(cfg)
	if cfg.LLM.APIKey != "groq-key" {
		t.Errorf("api key = %q, want groq key first", cfg.LLM.APIKey)
	}
	if cfg.Storage.MongoURI != "mongodb://localhost:27017" {
		t.Errorf("mongo uri = %q", cfg.Storage.MongoURI)
	}

	t.Setenv("GROQ_API_KEY", "")
	cfg = &Config{}
	ApplyEnv(cfg)
	if cfg.LLM.APIKey != "openai-key" {
		t.Errorf("api key = %q, want openai key fallback", cfg.LLM.APIKey)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("MANABU_TEST_DOTENV=loaded\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MANABU_TEST_DOTENV", "")
	os.Unsetenv("MANABU_TEST_DOTENV")
	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("MANABU_TEST_DOTENV"); got != "loaded" {
		t.Errorf("MANABU_TEST_DOTENV = %q", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Chunking.ChunkOverlap = cfg.Chunking.ChunkSize
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when overlap >= size")
	}
	cfg.Chunking.ChunkOverlap = 10
	cfg.Storage.Backend = BackendMongo
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for mongo without MONGO_URI")
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
		LLM:     LLMConfig{APIKey: "secret"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "" || strings.Contains(string(data), "secret") {
		t.Errorf("saved config should not contain secrets:\n%s", data)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
}
