package config

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Validate fails fast on configuration that would break a run.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("no categories configured")
	}

	seen := make(map[string]struct{}, len(c.Categories))
	for _, name := range c.Categories {
		if name == "" {
			return fmt.Errorf("empty category name in vocabulary")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate category %q in vocabulary", name)
		}
		seen[name] = struct{}{}
	}
	if len(c.Categories) > 20 {
		log.Warnf("large vocabulary (%d categories) may reduce accuracy", len(c.Categories))
	}

	if c.Fallback == "" {
		return fmt.Errorf("fallback category must be set")
	}

	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OpenAI API key not set (OPENAI_API_KEY)")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %.2f", c.OpenAI.Temperature)
	}

	if c.Gmail.MaxMessages <= 0 {
		return fmt.Errorf("gmail.max_messages must be positive")
	}
	if c.Processing.MaxConcurrent < 1 {
		return fmt.Errorf("processing.max_concurrent must be at least 1")
	}

	return nil
}
