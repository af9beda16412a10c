package processor

import (
	"context"
	"sync"

	"github.com/go-pkgz/pool"
	log "github.com/sirupsen/logrus"

	"gmailcat/internal/labelcache"
	"gmailcat/internal/models"
)

// classifyWorker adapts a closure to the pool.Worker interface.
type classifyWorker struct {
	run func(ctx context.Context, msg *models.EmailMessage) error
}

func (w *classifyWorker) Do(ctx context.Context, msg *models.EmailMessage) error {
	return w.run(ctx, msg)
}

// classifyConcurrent fans classification out over a bounded worker
// group. Fetching and labeling stay sequential; only the external
// classification calls run in parallel. Every submitted message yields
// exactly one outcome: the worker appends a result for both success
// and failure paths, and panics are absorbed inside categorizeOne.
func (p *Processor) classifyConcurrent(ctx context.Context, emails []*models.EmailMessage, cache *labelcache.Cache, stats *models.ProcessingStats, maxConcurrent int) []models.CategorizationResult {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if len(emails) < maxConcurrent {
		maxConcurrent = len(emails)
	}
	log.Infof("categorizing %d emails with %d concurrent workers", len(emails), maxConcurrent)

	var mu sync.Mutex
	results := make([]models.CategorizationResult, 0, len(emails))

	worker := &classifyWorker{run: func(ctx context.Context, msg *models.EmailMessage) error {
		res := p.categorizeOne(ctx, msg, cache, stats)
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
		return nil
	}}

	grp := pool.New[*models.EmailMessage](maxConcurrent, worker).WithContinueOnError()
	if err := grp.Go(ctx); err != nil {
		log.Errorf("failed to start worker pool, falling back to sequential: %v", err)
		return p.classifySequential(ctx, emails, cache, stats)
	}

	for _, msg := range emails {
		grp.Submit(msg)
	}
	if err := grp.Close(ctx); err != nil {
		log.Errorf("worker pool close reported error: %v", err)
	}

	return results
}
