// Package processor orchestrates one categorization run: list, fetch,
// classify, label, report.
package processor

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"gmailcat/internal/config"
	"gmailcat/internal/labelcache"
	"gmailcat/internal/models"
	"gmailcat/pkg/categorizer"
)

// minLabelConfidence is the labeling-time threshold: outcomes below it
// are skipped when applying labels, without counting as failures.
const minLabelConfidence = 0.3

// MailService is the full mail-side collaborator surface the
// orchestrator needs.
type MailService interface {
	GetMessageIDs(ctx context.Context, query string, maxResults int) ([]string, error)
	GetMessage(ctx context.Context, id string) (*models.EmailMessage, error)
	GetLabels(ctx context.Context) ([]models.GmailLabel, error)
	CreateLabel(ctx context.Context, name, description string) (*models.GmailLabel, error)
	AddLabelToMessage(ctx context.Context, messageID, labelID string) bool
	RemoveLabelFromMessage(ctx context.Context, messageID, labelID string) bool
	SetupPushNotifications(ctx context.Context, topicName string) bool
	StopPushNotifications(ctx context.Context) bool
}

// Options control one run. Zero values fall back to configuration.
type Options struct {
	Query         string
	MaxMessages   int
	ApplyLabels   bool
	Concurrent    bool
	MaxConcurrent int
}

// Processor drives categorization runs. It owns no cross-run state:
// stats and the label cache are created per run and frozen into the
// returned BatchResult.
type Processor struct {
	cfg         *config.Config
	mail        MailService
	categorizer categorizer.EmailCategorizer
	vocab       categorizer.Vocabulary
}

func New(cfg *config.Config, mail MailService, cat categorizer.EmailCategorizer, vocab categorizer.Vocabulary) *Processor {
	return &Processor{cfg: cfg, mail: mail, categorizer: cat, vocab: vocab}
}

// ProcessEmails runs the whole pipeline. Per-item failures are
// recorded in the report and never abort the run; the returned error
// is non-nil only when the initial listing fails outright, and even
// then a report reflecting zero processing is returned alongside it.
func (p *Processor) ProcessEmails(ctx context.Context, opts Options) (*models.BatchResult, error) {
	start := time.Now()
	stats := models.NewProcessingStats()
	cache := labelcache.New(p.mail, stats)

	query := opts.Query
	if query == "" {
		query = p.cfg.Gmail.Query
	}
	maxMessages := opts.MaxMessages
	if maxMessages <= 0 {
		maxMessages = p.cfg.Gmail.MaxMessages
	}

	runLog := log.WithField("run_id", stats.RunID())
	runLog.Infof("starting email processing: query=%q max_messages=%d concurrent=%v",
		query, maxMessages, opts.Concurrent)

	// The reverse map lets original categories resolve without one
	// labels call per message. A failure here is not fatal.
	if err := cache.Refresh(ctx); err != nil {
		runLog.Errorf("failed to build label lookup cache: %v", err)
		stats.RecordError(fmt.Sprintf("failed to build label lookup cache: %v", err))
	}

	messageIDs, err := p.mail.GetMessageIDs(ctx, query, maxMessages)
	stats.IncrGmailCalls()
	if err != nil {
		runLog.Errorf("message listing failed: %v", err)
		stats.RecordError(fmt.Sprintf("message listing failed: %v", err))
		return p.buildResult(nil, stats, start), fmt.Errorf("message listing failed: %w", err)
	}

	if len(messageIDs) == 0 {
		runLog.Info("no messages found matching query")
		return p.buildResult(nil, stats, start), nil
	}

	emails := p.fetchMessages(ctx, messageIDs, stats, runLog)
	stats.AddProcessed(len(emails))
	if len(emails) == 0 {
		runLog.Warn("no emails successfully fetched")
		return p.buildResult(nil, stats, start), nil
	}

	var results []models.CategorizationResult
	if opts.Concurrent {
		maxConcurrent := opts.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = p.cfg.Processing.MaxConcurrent
		}
		results = p.classifyConcurrent(ctx, emails, cache, stats, maxConcurrent)
	} else {
		results = p.classifySequential(ctx, emails, cache, stats)
	}

	for _, res := range results {
		if res.Success {
			stats.IncrCategorized()
		} else {
			stats.IncrFailed()
			msg := res.ErrorMessage
			if msg == "" {
				msg = "unknown categorization error"
			}
			stats.RecordError(msg)
		}
	}

	if opts.ApplyLabels {
		runLog.Info("applying category labels")
		p.applyLabels(ctx, results, cache, stats)
	}

	result := p.buildResult(results, stats, start)
	runLog.Infof("email processing completed in %s: %d/%d successful",
		result.ProcessingTime.Round(time.Millisecond),
		result.SuccessfulCategorizations, result.TotalMessages)
	return result, nil
}

// fetchMessages pulls full content for each id, dropping ids whose
// fetch fails after retries and recording the failure.
func (p *Processor) fetchMessages(ctx context.Context, ids []string, stats *models.ProcessingStats, runLog *log.Entry) []*models.EmailMessage {
	runLog.Infof("fetching details for %d messages", len(ids))

	emails := make([]*models.EmailMessage, 0, len(ids))
	for _, id := range ids {
		msg, err := p.mail.GetMessage(ctx, id)
		stats.IncrGmailCalls()
		if err != nil {
			runLog.Errorf("failed to fetch message %s: %v", id, err)
			stats.RecordError(fmt.Sprintf("failed to fetch %s: %v", id, err))
			continue
		}
		emails = append(emails, msg)
	}

	runLog.Infof("successfully fetched %d email messages", len(emails))
	return emails
}

// categorizeOne produces exactly one outcome for one message. Panics
// from the categorizer are converted to failed outcomes so concurrent
// workers can never drop a message.
func (p *Processor) categorizeOne(ctx context.Context, msg *models.EmailMessage, cache *labelcache.Cache, stats *models.ProcessingStats) (result models.CategorizationResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("categorization panicked for message %s: %v", msg.ID, r)
			result = models.CategorizationResult{
				MessageID:         msg.ID,
				PredictedCategory: models.Category{Name: p.vocab.Fallback, Confidence: 0},
				ProcessingTime:    time.Since(start),
				Success:           false,
				ErrorMessage:      fmt.Sprintf("categorization panicked: %v", r),
			}
		}
	}()

	original := p.originalCategory(msg, cache)

	predicted, err := p.categorizer.CategorizeEmail(ctx, msg)
	stats.IncrOpenAICalls()

	result = models.CategorizationResult{
		MessageID:         msg.ID,
		OriginalCategory:  original,
		PredictedCategory: predicted,
		ProcessingTime:    time.Since(start),
		Success:           err == nil,
	}
	if err != nil {
		result.ErrorMessage = err.Error()
	}
	return result
}

// originalCategory derives a message's pre-existing category from its
// label ids via the cached reverse map.
func (p *Processor) originalCategory(msg *models.EmailMessage, cache *labelcache.Cache) string {
	for _, labelID := range msg.LabelIDs {
		if name, ok := cache.LookupName(labelID); ok && p.vocab.Contains(name) {
			return name
		}
	}
	return ""
}

func (p *Processor) classifySequential(ctx context.Context, emails []*models.EmailMessage, cache *labelcache.Cache, stats *models.ProcessingStats) []models.CategorizationResult {
	log.Infof("categorizing %d emails sequentially", len(emails))

	results := make([]models.CategorizationResult, 0, len(emails))
	for _, msg := range emails {
		results = append(results, p.categorizeOne(ctx, msg, cache, stats))
	}
	return results
}

// applyLabels groups successful, confident outcomes by predicted
// category, provisions each label once, and applies it to every
// message in the group. Apply failures are warnings, not run failures.
func (p *Processor) applyLabels(ctx context.Context, results []models.CategorizationResult, cache *labelcache.Cache, stats *models.ProcessingStats) {
	groups := make(map[string][]models.CategorizationResult)
	for _, res := range results {
		if !res.Success {
			continue
		}
		if res.PredictedCategory.Confidence < minLabelConfidence {
			log.Debugf("skipping label application for %s due to low confidence", res.MessageID)
			continue
		}
		name := res.PredictedCategory.Name
		groups[name] = append(groups[name], res)
	}

	for name, group := range groups {
		labelID, err := cache.GetOrCreate(ctx, name)
		if err != nil {
			log.Warnf("could not get or create label for category %q: %v", name, err)
			stats.RecordError(fmt.Sprintf("could not get or create label for category %q: %v", name, err))
			continue
		}

		for _, res := range group {
			if p.mail.AddLabelToMessage(ctx, res.MessageID, labelID) {
				log.Debugf("applied label %q to message %s", name, res.MessageID)
				stats.IncrGmailCalls()
			} else {
				log.Warnf("failed to apply label %q to message %s", name, res.MessageID)
			}
		}
	}
}

func (p *Processor) buildResult(results []models.CategorizationResult, stats *models.ProcessingStats, start time.Time) *models.BatchResult {
	stats.Finish()
	snap := stats.Snapshot()

	var successful, failed int
	for _, res := range results {
		if res.Success {
			successful++
		} else {
			failed++
		}
	}

	return &models.BatchResult{
		RunID:                     snap.RunID,
		TotalMessages:             len(results),
		SuccessfulCategorizations: successful,
		FailedCategorizations:     failed,
		ProcessingTime:            time.Since(start),
		Results:                   results,
		Errors:                    snap.Errors,
		Stats:                     snap,
	}
}
