package config

// DefaultConfigFile is the config path used when --config is not given.
const DefaultConfigFile = ".helpdesk.yml"

// defaultModels maps each provider to its chat and embedding models.
var defaultModels = map[ProviderType]struct {
	Model          string
	EmbeddingModel string
}{
	ProviderOpenAI: {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama: {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:            ProviderOpenAI,
		Model:               "gpt-4o-mini",
		EmbeddingProvider:   ProviderOpenAI,
		EmbeddingModel:      "text-embedding-3-small",
		DataDir:             "data",
		KBFile:              "data/kb_entries.txt",
		SimilarityThreshold: 0.35,
		IgnorePolicy:        IgnoreClose,
		CollaboratorTimeout: 20,
		LLMRequestsPerMin:   60,
		UseLLMPhrasing:      false,
		LogLevel:            "info",
		Server: ServerConfig{
			Port:            8000,
			AllowAllOrigins: true,
		},
	}
}

// DefaultModels returns the chat and embedding model for a provider.
// Unknown providers get the OpenAI pair.
func DefaultModels(p ProviderType) (model, embeddingModel string) {
	m, ok := defaultModels[p]
	if !ok {
		m = defaultModels[ProviderOpenAI]
	}
	return m.Model, m.EmbeddingModel
}
