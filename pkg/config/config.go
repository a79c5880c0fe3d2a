package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Database DatabaseConfig `yaml:"database"`
	Chunker  ChunkerConfig  `yaml:"chunker"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Search   SearchConfig   `yaml:"search"`
	Server   ServerConfig   `yaml:"server"`
}

type LLMConfig struct {
	// Provider selects the generation backend at construction time:
	// "openai" (any OpenAI-compatible endpoint, OpenRouter included) or
	// "ollama" for a local server.
	Provider       string  `yaml:"provider"`
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	ChatModel      string  `yaml:"chat_model"`
	EmbeddingModel string  `yaml:"embedding_model"`
	SummaryModel   string  `yaml:"summary_model"`
	QuizModel      string  `yaml:"quiz_model"`
	ExamModel      string  `yaml:"exam_model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimit      float64 `yaml:"rate_limit"` // outbound embedding calls per second
}

type DatabaseConfig struct {
	URL       string `yaml:"url"`
	VectorDim int    `yaml:"vector_dim"`
	BatchSize int    `yaml:"batch_size"`
}

type ChunkerConfig struct {
	TargetWords       int `yaml:"target_words"`
	OverlapWords      int `yaml:"overlap_words"`
	WordsPerParagraph int `yaml:"words_per_paragraph"`
}

type IngestConfig struct {
	Workers int `yaml:"workers"`
}

type SearchConfig struct {
	Limit           int     `yaml:"limit"`
	MinSimilarity   float64 `yaml:"min_similarity"`
	MaxContextChars int     `yaml:"max_context_chars"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/firmai/config.yaml"),
			"/etc/firmai/config.yaml",
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

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.LLM.BaseURL == "" {
		switch config.LLM.Provider {
		case "ollama":
			config.LLM.BaseURL = "http://localhost:11434"
		default:
			config.LLM.BaseURL = "https://openrouter.ai/api/v1"
		}
	}
	if config.LLM.ChatModel == "" {
		config.LLM.ChatModel = "google/gemini-2.0-flash-exp"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "openai/text-embedding-3-small"
	}
	if config.LLM.QuizModel == "" {
		config.LLM.QuizModel = "anthropic/claude-3.5-sonnet"
	}
	if config.LLM.ExamModel == "" {
		config.LLM.ExamModel = "anthropic/claude-3.5-sonnet"
	}
	if config.LLM.TimeoutSeconds == 0 {
		config.LLM.TimeoutSeconds = 30
	}
	if config.LLM.RateLimit == 0 {
		config.LLM.RateLimit = 5.0
	}

	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 50
	}

	if config.Chunker.TargetWords == 0 {
		config.Chunker.TargetWords = 500
	}
	if config.Chunker.OverlapWords == 0 {
		config.Chunker.OverlapWords = 200
	}
	if config.Chunker.WordsPerParagraph == 0 {
		config.Chunker.WordsPerParagraph = 200
	}

	if config.Ingest.Workers == 0 {
		config.Ingest.Workers = 4
	}

	if config.Search.Limit == 0 {
		config.Search.Limit = 5
	}
	if config.Search.MinSimilarity == 0 {
		config.Search.MinSimilarity = 0.3
	}
	if config.Search.MaxContextChars == 0 {
		config.Search.MaxContextChars = 8000
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
}

func mergeWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENROUTER_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}
	if baseURL := os.Getenv("LLM_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
