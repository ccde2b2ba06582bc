package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL       string  `yaml:"base_url"`
		Model         string  `yaml:"model"`
		FallbackModel string  `yaml:"fallback_model"`
		MaxTokens     int     `yaml:"max_tokens"`
		RateLimit     float64 `yaml:"rate_limit"`
	} `yaml:"llm"`

	Embedding struct {
		Model     string `yaml:"model"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"embedding"`

	Database struct {
		URL        string `yaml:"url"`
		Collection string `yaml:"collection"`
	} `yaml:"database"`

	Verify struct {
		Threshold    float64 `yaml:"threshold"`
		TopK         int     `yaml:"top_k"`
		MaxSentences int     `yaml:"max_sentences"`
	} `yaml:"verify"`

	Layout struct {
		MinColumnBlocks int     `yaml:"min_column_blocks"`
		GapFraction     float64 `yaml:"gap_fraction"`
	} `yaml:"layout"`

	Refs struct {
		File string `yaml:"file"`
		URL  string `yaml:"url"`
	} `yaml:"refs"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ackaudit/config.yaml"),
			"/etc/ackaudit/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "llama3"
	}
	if config.LLM.FallbackModel == "" {
		config.LLM.FallbackModel = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 512
	}
	if config.LLM.RateLimit == 0 {
		config.LLM.RateLimit = 2.0
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}
	if config.Embedding.VectorDim == 0 {
		config.Embedding.VectorDim = 768
	}

	if config.Database.Collection == "" {
		config.Database.Collection = "reference_phrases"
	}

	if config.Verify.Threshold == 0 {
		config.Verify.Threshold = 0.70
	}
	if config.Verify.TopK == 0 {
		config.Verify.TopK = 3
	}
	if config.Verify.MaxSentences == 0 {
		config.Verify.MaxSentences = 7
	}

	if config.Layout.MinColumnBlocks == 0 {
		config.Layout.MinColumnBlocks = 4
	}
	if config.Layout.GapFraction == 0 {
		config.Layout.GapFraction = 0.18
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
