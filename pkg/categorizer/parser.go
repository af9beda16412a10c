package categorizer

import (
	"encoding/json"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"gmailcat/internal/models"
)

const (
	// invalidCategoryPenalty is subtracted from the reported confidence
	// when the model answers with a name outside the vocabulary.
	invalidCategoryPenalty = 0.3
	// neutralConfidence replaces a missing or unusable confidence value.
	neutralConfidence = 0.5
	// extractedConfidence is assigned when the category had to be
	// scanned out of free-form text.
	extractedConfidence = 0.3
)

// ParseResponse turns a raw completion reply into a validated
// Category. It is a total function: any input, including empty or
// garbage text, yields a Category whose name is a vocabulary member
// and whose confidence lies in [0,1].
func ParseResponse(raw string, vocab Vocabulary) models.Category {
	raw = strings.TrimSpace(raw)

	var parsed struct {
		Category   string      `json:"category"`
		Confidence interface{} `json:"confidence"`
		Reasoning  string      `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return scanForCategory(raw, vocab)
	}

	name := parsed.Category
	conf, confValid := toConfidence(parsed.Confidence)

	if canonical, ok := vocab.Canonical(name); ok {
		name = canonical
	} else {
		log.Warnf("invalid category %q in response, using %q", name, vocab.Fallback)
		name = vocab.Fallback
		if confValid {
			conf -= invalidCategoryPenalty
			if conf < 0 {
				conf = 0
			}
		}
	}

	if !confValid {
		log.Warnf("invalid confidence %v in response, setting to %.1f", parsed.Confidence, neutralConfidence)
		conf = neutralConfidence
	}

	reasoning := parsed.Reasoning
	if reasoning == "" {
		reasoning = "No reasoning provided"
	}

	return models.Category{Name: name, Confidence: conf, Reasoning: reasoning}
}

// toConfidence extracts a usable confidence from the decoded JSON
// value. Numeric strings are accepted; ok is false for missing,
// non-numeric, or out-of-range values.
func toConfidence(v interface{}) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if f < 0 || f > 1 {
		return 0, false
	}
	return f, true
}

// scanForCategory falls back to a case-insensitive vocabulary-term
// scan over non-JSON text; the earliest occurrence wins, ties broken
// by vocabulary order.
func scanForCategory(raw string, vocab Vocabulary) models.Category {
	log.Warnf("failed to parse JSON response: %s", raw)

	lower := strings.ToLower(raw)
	best := -1
	var bestName string
	for _, c := range vocab.Categories {
		idx := strings.Index(lower, strings.ToLower(c))
		if idx >= 0 && (best < 0 || idx < best) {
			best = idx
			bestName = c
		}
	}
	if best >= 0 {
		return models.Category{
			Name:       bestName,
			Confidence: extractedConfidence,
			Reasoning:  "Extracted from non-JSON response",
		}
	}

	return models.Category{
		Name:       vocab.Fallback,
		Confidence: 0,
		Reasoning:  "Could not parse response",
	}
}
