package config

import "time"

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
	// ProviderNone disables the LLM collaborators; the bot then runs on
	// keyword classification and templated wording only.
	ProviderNone ProviderType = "none"
)

// IgnorePolicy decides what happens to the active incidents when a user
// answers IGNORE to the keep/ignore prompt.
type IgnorePolicy string

const (
	IgnoreClose  IgnorePolicy = "close"
	IgnoreDelete IgnorePolicy = "delete"
)

// Config is the top-level helpdesk configuration, corresponding to .helpdesk.yml.
type Config struct {
	Provider            ProviderType `yaml:"provider" koanf:"provider"`
	Model               string       `yaml:"model" koanf:"model"`
	EmbeddingProvider   ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel      string       `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir             string       `yaml:"data_dir" koanf:"data_dir"`
	KBFile              string       `yaml:"kb_file" koanf:"kb_file"`
	SimilarityThreshold float64      `yaml:"similarity_threshold" koanf:"similarity_threshold"`
	IgnorePolicy        IgnorePolicy `yaml:"ignore_policy" koanf:"ignore_policy"`
	CollaboratorTimeout int          `yaml:"collaborator_timeout" koanf:"collaborator_timeout"` // seconds
	LLMRequestsPerMin   int          `yaml:"llm_rpm" koanf:"llm_rpm"`
	UseLLMPhrasing      bool         `yaml:"use_llm_phrasing" koanf:"use_llm_phrasing"`
	LogLevel            string       `yaml:"log_level" koanf:"log_level"`
	Server              ServerConfig `yaml:"server" koanf:"server"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port            int    `yaml:"port" koanf:"port"`
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	AdminToken      string `yaml:"admin_token" koanf:"admin_token"`
}

// Timeout returns the per-call bound for external collaborators.
func (c *Config) Timeout() time.Duration {
	if c.CollaboratorTimeout <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.CollaboratorTimeout) * time.Second
}
