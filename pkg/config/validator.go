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

	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "llm.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Embedding.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.vector_dim",
			Message: "vector_dim must be positive",
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

	if c.Verify.Threshold < -1 || c.Verify.Threshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "verify.threshold",
			Message: "threshold must be a cosine similarity between -1 and 1",
		})
	}

	if c.Verify.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "verify.top_k",
			Message: "top_k must be positive",
		})
	}

	if c.Verify.MaxSentences < 1 {
		errors = append(errors, ValidationError{
			Field:   "verify.max_sentences",
			Message: "max_sentences must be positive",
		})
	}

	if c.Layout.MinColumnBlocks < 1 {
		errors = append(errors, ValidationError{
			Field:   "layout.min_column_blocks",
			Message: "min_column_blocks must be positive",
		})
	}

	if c.Layout.GapFraction <= 0 || c.Layout.GapFraction >= 1 {
		errors = append(errors, ValidationError{
			Field:   "layout.gap_fraction",
			Message: "gap_fraction must be between 0 and 1",
		})
	}

	return errors
}
