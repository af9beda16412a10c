package processor

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"gmailcat/internal/models"
)

// ValidateSetup fails fast before a run: vocabulary sanity, a Gmail
// listing round trip, and one test classification.
func (p *Processor) ValidateSetup(ctx context.Context) error {
	log.Info("validating setup")

	if err := p.vocab.Validate(); err != nil {
		return fmt.Errorf("vocabulary validation failed: %w", err)
	}

	if _, err := p.mail.GetLabels(ctx); err != nil {
		return fmt.Errorf("gmail connection failed: %w", err)
	}
	log.Info("Gmail connection validated")

	testMsg := &models.EmailMessage{
		ID:       "test",
		ThreadID: "test",
		Subject:  "Test email",
		Snippet:  "This is a test email for validation",
	}
	if _, err := p.categorizer.CategorizeEmail(ctx, testMsg); err != nil {
		return fmt.Errorf("classification service connection failed: %w", err)
	}
	log.Info("classification service connection validated")

	log.Info("setup validation completed successfully")
	return nil
}

// SetupPushNotifications enables Gmail push notifications when a topic
// is configured.
func (p *Processor) SetupPushNotifications(ctx context.Context) bool {
	if p.cfg.PubSub.TopicName == "" {
		log.Info("Pub/Sub topic not configured, skipping push notifications")
		return false
	}
	return p.mail.SetupPushNotifications(ctx, p.cfg.PubSub.TopicName)
}

// StopPushNotifications disables Gmail push notifications.
func (p *Processor) StopPushNotifications(ctx context.Context) bool {
	return p.mail.StopPushNotifications(ctx)
}
