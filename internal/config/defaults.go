package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitRequests == 0 {
		cfg.Server.RateLimitRequests = 30
	}
	if cfg.Server.RateLimitWindowSeconds == 0 {
		cfg.Server.RateLimitWindowSeconds = 60
	}
	if cfg.Storage.Root == "" {
		cfg.Storage.Root = "/usr/local/var/kotae/storage"
	}
	if cfg.Corpus.DocID == "" {
		cfg.Corpus.DocID = "knowledge_base_v1"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "gpt-4o-mini"
	}
	if cfg.Chat.Temperature == 0 {
		cfg.Chat.Temperature = 0.1
	}
	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = 400
	}
	if cfg.Search.ChunkSize == 0 {
		cfg.Search.ChunkSize = 600
	}
	if cfg.Search.ChunkOverlap == 0 {
		cfg.Search.ChunkOverlap = 100
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 4
	}
	if cfg.Search.MaxSources == 0 {
		cfg.Search.MaxSources = 3
	}
	if cfg.Search.SnippetLength == 0 {
		cfg.Search.SnippetLength = 200
	}
	if cfg.Search.HighThreshold == 0 {
		cfg.Search.HighThreshold = 0.75
	}
	if cfg.Search.MediumThreshold == 0 {
		cfg.Search.MediumThreshold = 0.55
	}
}
