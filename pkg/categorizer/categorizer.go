// Package categorizer classifies email messages into a fixed category
// vocabulary.
package categorizer

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"gmailcat/internal/models"
)

// EmailCategorizer produces one Category per message. Implementations
// must be total: a message always gets a usable category, degrading to
// the vocabulary fallback instead of failing the batch. The error, when
// set, reports the underlying hard failure (e.g. an exhausted retry
// budget) alongside the fallback category so callers can record the
// outcome as failed without aborting.
type EmailCategorizer interface {
	CategorizeEmail(ctx context.Context, msg *models.EmailMessage) (models.Category, error)
	CategorizeBatch(ctx context.Context, msgs []*models.EmailMessage) []models.Category
}

// Vocabulary is the fixed, operator-configured category list plus the
// designated fallback member.
type Vocabulary struct {
	Categories []string
	Fallback   string
}

// NewVocabulary builds a vocabulary, appending the fallback when the
// operator left it out so parsing stays total.
func NewVocabulary(categories []string, fallback string) Vocabulary {
	v := Vocabulary{
		Categories: append([]string(nil), categories...),
		Fallback:   fallback,
	}
	if !v.Contains(fallback) {
		v.Categories = append(v.Categories, fallback)
	}
	return v
}

// Contains reports exact membership.
func (v Vocabulary) Contains(name string) bool {
	for _, c := range v.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Canonical resolves a case-insensitive match to the configured
// spelling.
func (v Vocabulary) Canonical(name string) (string, bool) {
	for _, c := range v.Categories {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// Validate checks the vocabulary is usable for classification.
func (v Vocabulary) Validate() error {
	if len(v.Categories) == 0 {
		return fmt.Errorf("no categories configured")
	}
	seen := make(map[string]struct{}, len(v.Categories))
	for _, c := range v.Categories {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("duplicate category %q", c)
		}
		seen[c] = struct{}{}
	}
	if len(v.Categories) > 20 {
		log.Warnf("large number of categories (%d) may reduce accuracy", len(v.Categories))
	}
	log.Infof("category validation passed: %d unique categories", len(v.Categories))
	return nil
}
