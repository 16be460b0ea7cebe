package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard asks for the handful of settings a new deployment needs and
// saves the result to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to helpdesk! Let's configure the assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "ollama", "none (keyword rules only)"},
	}
	idx, _, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = []ProviderType{ProviderOpenAI, ProviderOllama, ProviderNone}[idx]
	cfg.Model, cfg.EmbeddingModel = DefaultModels(cfg.Provider)
	cfg.EmbeddingProvider = cfg.Provider
	if cfg.Provider == ProviderNone {
		cfg.EmbeddingProvider = ProviderNone
	}

	dataPrompt := promptui.Prompt{
		Label:   "Data directory (database and KB index)",
		Default: cfg.DataDir,
	}
	if cfg.DataDir, err = dataPrompt.Run(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.KBFile = filepath.Join(cfg.DataDir, "kb_entries.txt")

	thresholdPrompt := promptui.Prompt{
		Label:   "KB similarity threshold (0-1)",
		Default: strconv.FormatFloat(cfg.SimilarityThreshold, 'f', 2, 64),
		Validate: func(s string) error {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil || v < 0 || v > 1 {
				return fmt.Errorf("enter a number between 0 and 1")
			}
			return nil
		},
	}
	thresholdStr, err := thresholdPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("similarity threshold: %w", err)
	}
	cfg.SimilarityThreshold, _ = strconv.ParseFloat(thresholdStr, 64)

	policyPrompt := promptui.Select{
		Label: "When a user ignores their previous incident",
		Items: []string{
			"close  - keep the record, mark it closed",
			"delete - remove the record",
		},
	}
	policyIdx, _, err := policyPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("ignore policy: %w", err)
	}
	cfg.IgnorePolicy = []IgnorePolicy{IgnoreClose, IgnoreDelete}[policyIdx]

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before running helpdesk serve.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}
