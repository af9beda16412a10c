// Package app wires the configured collaborators into a processor.
package app

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"gmailcat/internal/config"
	"gmailcat/internal/gmail"
	"gmailcat/internal/processor"
	"gmailcat/pkg/categorizer"
)

type App struct {
	Config      *config.Config
	Gmail       *gmail.Client
	Vocabulary  categorizer.Vocabulary
	Categorizer *categorizer.LLMCategorizer
	Processor   *processor.Processor
}

// New validates the configuration and builds the full pipeline. The
// Gmail client may trigger an interactive OAuth flow on first use.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	gm, err := gmail.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gmail client: %w", err)
	}

	vocab := categorizer.NewVocabulary(cfg.Categories, cfg.Fallback)

	client := openai.NewClient(cfg.OpenAI.APIKey)
	cat := categorizer.NewLLMCategorizer(client, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature, vocab)
	log.Infof("categorizer initialized with model %s, %d categories", cfg.OpenAI.Model, len(vocab.Categories))

	return &App{
		Config:      cfg,
		Gmail:       gm,
		Vocabulary:  vocab,
		Categorizer: cat,
		Processor:   processor.New(cfg, gm, cat, vocab),
	}, nil
}
