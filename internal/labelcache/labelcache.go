// Package labelcache maps category names to Gmail label ids for one
// run, creating labels on first use without duplicating them across
// concurrent creators.
package labelcache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"gmailcat/internal/gmail"
	"gmailcat/internal/models"
)

// LabelService is the slice of the mail client the cache depends on.
type LabelService interface {
	GetLabels(ctx context.Context) ([]models.GmailLabel, error)
	CreateLabel(ctx context.Context, name, description string) (*models.GmailLabel, error)
}

// Cache holds the bidirectional name<->id maps for a single run. All
// access is serialized behind one mutex; GetOrCreate holds it across
// the whole check-refresh-create protocol so concurrent workers
// resolving the same new category trigger exactly one create call.
type Cache struct {
	mu     sync.Mutex
	svc    LabelService
	stats  *models.ProcessingStats
	byName map[string]string
	byID   map[string]string
}

// New builds an empty cache. stats may be nil.
func New(svc LabelService, stats *models.ProcessingStats) *Cache {
	return &Cache{
		svc:    svc,
		stats:  stats,
		byName: make(map[string]string),
		byID:   make(map[string]string),
	}
}

// Refresh rebuilds both maps from a full label listing. It covers
// labels created by previous runs or by other processes.
func (c *Cache) Refresh(ctx context.Context) error {
	labels, err := c.svc.GetLabels(ctx)
	if err != nil {
		return fmt.Errorf("refreshing label cache: %w", err)
	}
	c.countGmailCall()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebuildLocked(labels)
	log.Debugf("label cache refreshed with %d labels", len(labels))
	return nil
}

func (c *Cache) rebuildLocked(labels []models.GmailLabel) {
	c.byName = make(map[string]string, len(labels))
	c.byID = make(map[string]string, len(labels))
	for _, l := range labels {
		c.byName[l.Name] = l.ID
		c.byID[l.ID] = l.Name
	}
}

// refreshLocked is Refresh for callers already holding the mutex.
func (c *Cache) refreshLocked(ctx context.Context) error {
	labels, err := c.svc.GetLabels(ctx)
	if err != nil {
		return fmt.Errorf("refreshing label cache: %w", err)
	}
	c.countGmailCall()
	c.rebuildLocked(labels)
	return nil
}

// GetOrCreate resolves a category name to a label id, creating the
// label at most once per name per run: local cache, then a fresh
// listing, then creation, then one more listing when creation reports
// a name conflict.
func (c *Cache) GetOrCreate(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.byName[name]; ok {
		return id, nil
	}

	// Another run or process may have created it already.
	if err := c.refreshLocked(ctx); err != nil {
		return "", err
	}
	if id, ok := c.byName[name]; ok {
		return id, nil
	}

	label, err := c.svc.CreateLabel(ctx, name, fmt.Sprintf("Auto-generated label for %s emails", name))
	if err == nil {
		c.countGmailCall()
		c.byName[label.Name] = label.ID
		c.byID[label.ID] = label.Name
		if c.stats != nil {
			c.stats.IncrLabelsCreated()
		}
		log.Infof("created new label %q", name)
		return label.ID, nil
	}

	if errors.Is(err, gmail.ErrLabelExists) {
		// Lost the race to a concurrent creator; the listing must have
		// it now.
		log.Infof("label %q already exists, refreshing cache", name)
		if refreshErr := c.refreshLocked(ctx); refreshErr != nil {
			return "", refreshErr
		}
		if id, ok := c.byName[name]; ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("get or create label %q: %w", name, err)
}

// LookupName resolves a label id to its name from the cached reverse
// map, avoiding a mail-service round trip per message.
func (c *Cache) LookupName(labelID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.byID[labelID]
	return name, ok
}

// Size returns the number of cached labels.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byName)
}

func (c *Cache) countGmailCall() {
	if c.stats != nil {
		c.stats.IncrGmailCalls()
	}
}
