package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.LLM.Provider != "openai" && c.LLM.Provider != "ollama" {
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("provider must be 'openai' or 'ollama', got %q", c.LLM.Provider),
		})
	}

	if c.LLM.Provider == "openai" && c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.api_key",
			Message: "API key is required for the openai provider",
		})
	}

	if _, err := url.Parse(c.LLM.BaseURL); err != nil || c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid base URL",
		})
	}

	if c.LLM.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "llm.timeout_seconds",
			Message: "timeout_seconds must be positive",
		})
	}

	if c.LLM.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Chunker.TargetWords < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.target_words",
			Message: "target_words must be positive",
		})
	}

	if c.Chunker.OverlapWords < 0 || c.Chunker.OverlapWords >= c.Chunker.TargetWords {
		errors = append(errors, ValidationError{
			Field:   "chunker.overlap_words",
			Message: "overlap_words must be non-negative and less than target_words",
		})
	}

	if c.Chunker.WordsPerParagraph < 1 {
		errors = append(errors, ValidationError{
			Field:   "chunker.words_per_paragraph",
			Message: "words_per_paragraph must be positive",
		})
	}

	if c.Ingest.Workers < 1 {
		errors = append(errors, ValidationError{
			Field:   "ingest.workers",
			Message: "workers must be positive",
		})
	}

	if c.Search.Limit < 1 {
		errors = append(errors, ValidationError{
			Field:   "search.limit",
			Message: "limit must be positive",
		})
	}

	if c.Search.MinSimilarity < 0 || c.Search.MinSimilarity > 1 {
		errors = append(errors, ValidationError{
			Field:   "search.min_similarity",
			Message: "min_similarity must be between 0 and 1",
		})
	}

	return errors
}
