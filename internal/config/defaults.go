package config

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = "/usr/local/var/manabu/data/uploads"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendSQLite
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/manabu/data/db/manabu.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/manabu/data/indices/vectors.bin"
	}
	if cfg.Storage.MongoDatabase == "" {
		cfg.Storage.MongoDatabase = "study_assistant"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "hash"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/manabu/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama-3.3-70b-versatile"
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == "openai" {
		cfg.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.RequestsPerMinute == 0 {
		cfg.LLM.RequestsPerMinute = 30
	}
	if cfg.Knowledge.BaseURL == "" {
		cfg.Knowledge.BaseURL = "https://en.wikipedia.org"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1200
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}
	if cfg.Chunking.BatchSize == 0 {
		cfg.Chunking.BatchSize = 100
	}
	if cfg.Retrieval.AskTopK == 0 {
		cfg.Retrieval.AskTopK = 4
	}
	if cfg.Retrieval.SummaryTopK == 0 {
		cfg.Retrieval.SummaryTopK = 5
	}
	if cfg.Retrieval.QuizTopK == 0 {
		cfg.Retrieval.QuizTopK = 5
	}
	if cfg.Retrieval.QuizQuestions == 0 {
		cfg.Retrieval.QuizQuestions = 5
	}
	if cfg.Retrieval.HistoryLimit == 0 {
		cfg.Retrieval.HistoryLimit = 10
	}
}
