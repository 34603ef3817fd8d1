package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings a command mode depends on. Modes: "scrape",
// "batch", "extract", "runs". The AI credential is not required here: the
// extractor reports it only when AI extraction is actually needed.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "scrape", "batch":
		errs = append(errs, c.validatePagination()...)
		errs = append(errs, c.validateAI()...)
		errs = append(errs, c.validateStore()...)
		errs = append(errs, c.validateOutput()...)
		if mode == "batch" && (c.Batch.Concurrency < 1 || c.Batch.Concurrency > 50) {
			errs = append(errs, "batch.concurrency must be between 1 and 50")
		}
	case "extract":
		errs = append(errs, c.validateAI()...)
	case "runs":
		errs = append(errs, c.validateStore()...)
		if c.Store.Driver == "none" {
			errs = append(errs, "store.driver must not be none")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validatePagination() []string {
	var errs []string
	if c.Pagination.MaxPages < 1 {
		errs = append(errs, "pagination.max_pages must be >= 1")
	}
	if c.Pagination.MaxEmptyPages < 1 {
		errs = append(errs, "pagination.max_empty_pages must be >= 1")
	}
	if c.Pagination.MinDelayMs < 0 || c.Pagination.MaxDelayMs < c.Pagination.MinDelayMs {
		errs = append(errs, "pagination delays must satisfy 0 <= min_delay_ms <= max_delay_ms")
	}
	return errs
}

func (c *Config) validateAI() []string {
	var errs []string
	if c.AI.MaxRetries < 1 {
		errs = append(errs, "ai.max_retries must be >= 1")
	}
	if c.AI.BackoffBaseMs < 0 || c.AI.BackoffMaxMs < c.AI.BackoffBaseMs {
		errs = append(errs, "ai backoff must satisfy 0 <= backoff_base_ms <= backoff_max_ms")
	}
	if c.AI.MaxContentBytes < 1 {
		errs = append(errs, "ai.max_content_bytes must be >= 1")
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
	case "none":
	default:
		return []string{"store.driver must be sqlite, postgres or none"}
	}
	return nil
}

func (c *Config) validateOutput() []string {
	switch c.Output.Format {
	case "json", "xlsx":
		return nil
	default:
		return []string{"output.format must be json or xlsx"}
	}
}
