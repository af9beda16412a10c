package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmailcat/internal/models"
)

func TestValidateSetup_OK(t *testing.T) {
	mail := newFakeMailService()
	cat := &fakeCategorizer{
		fallback: "Other",
		byID:     map[string]models.Category{"test": {Name: "Other", Confidence: 0.5}},
	}
	p := newTestProcessor(mail, cat)

	err := p.ValidateSetup(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, cat.calls, "validation should make one test classification call")
}

func TestSetupPushNotifications_SkipsWithoutTopic(t *testing.T) {
	p := newTestProcessor(newFakeMailService(), &fakeCategorizer{fallback: "Other"})

	assert.False(t, p.SetupPushNotifications(context.Background()))
}

func TestSetupPushNotifications_WithTopic(t *testing.T) {
	p := newTestProcessor(newFakeMailService(), &fakeCategorizer{fallback: "Other"})
	p.cfg.PubSub.TopicName = "gmail-notifications"

	assert.True(t, p.SetupPushNotifications(context.Background()))
	assert.True(t, p.StopPushNotifications(context.Background()))
}
