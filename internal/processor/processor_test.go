package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmailcat/internal/config"
	"gmailcat/internal/models"
	"gmailcat/pkg/categorizer"
)

// fakeMailService is an in-memory MailService recording label
// applications.
type fakeMailService struct {
	mu sync.Mutex

	messages map[string]*models.EmailMessage
	order    []string
	labels   []models.GmailLabel
	nextID   int

	listErr  error
	fetchErr map[string]error

	applied map[string][]string // labelID -> messageIDs
}

func newFakeMailService(msgs ...*models.EmailMessage) *fakeMailService {
	f := &fakeMailService{
		messages: make(map[string]*models.EmailMessage),
		fetchErr: make(map[string]error),
		applied:  make(map[string][]string),
	}
	for _, m := range msgs {
		f.messages[m.ID] = m
		f.order = append(f.order, m.ID)
	}
	return f
}

func (f *fakeMailService) GetMessageIDs(ctx context.Context, query string, maxResults int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := append([]string(nil), f.order...)
	if maxResults > 0 && len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

func (f *fakeMailService) GetMessage(ctx context.Context, id string) (*models.EmailMessage, error) {
	if err, ok := f.fetchErr[id]; ok {
		return nil, err
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return msg, nil
}

func (f *fakeMailService) GetLabels(ctx context.Context) ([]models.GmailLabel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.GmailLabel(nil), f.labels...), nil
}

func (f *fakeMailService) CreateLabel(ctx context.Context, name, description string) (*models.GmailLabel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	label := models.GmailLabel{ID: fmt.Sprintf("Label_%d", f.nextID), Name: name, Type: models.LabelTypeUser}
	f.labels = append(f.labels, label)
	return &label, nil
}

func (f *fakeMailService) AddLabelToMessage(ctx context.Context, messageID, labelID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied[labelID] = append(f.applied[labelID], messageID)
	return true
}

func (f *fakeMailService) RemoveLabelFromMessage(ctx context.Context, messageID, labelID string) bool {
	return true
}

func (f *fakeMailService) SetupPushNotifications(ctx context.Context, topicName string) bool { return true }
func (f *fakeMailService) StopPushNotifications(ctx context.Context) bool                    { return true }

func (f *fakeMailService) appliedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, msgs := range f.applied {
		n += len(msgs)
	}
	return n
}

// fakeCategorizer returns scripted outcomes per message id.
type fakeCategorizer struct {
	mu       sync.Mutex
	byID     map[string]models.Category
	errByID  map[string]error
	fallback string
	calls    int
	panicOn  string
}

func (f *fakeCategorizer) CategorizeEmail(ctx context.Context, msg *models.EmailMessage) (models.Category, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if msg.ID == f.panicOn {
		panic("scripted categorizer panic")
	}
	if err, ok := f.errByID[msg.ID]; ok {
		return models.Category{Name: f.fallback, Confidence: 0, Reasoning: "Categorization failed"}, err
	}
	if cat, ok := f.byID[msg.ID]; ok {
		return cat, nil
	}
	return models.Category{Name: f.fallback, Confidence: 0.5}, nil
}

func (f *fakeCategorizer) CategorizeBatch(ctx context.Context, msgs []*models.EmailMessage) []models.Category {
	out := make([]models.Category, len(msgs))
	for i, m := range msgs {
		out[i], _ = f.CategorizeEmail(ctx, m)
	}
	return out
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Gmail.Query = "in:inbox"
	cfg.Gmail.MaxMessages = 50
	cfg.Categories = []string{"Work", "Personal", "Finance", "Newsletter", "Other"}
	cfg.Fallback = "Other"
	cfg.Processing.MaxConcurrent = 5
	return cfg
}

func newTestProcessor(mail MailService, cat categorizer.EmailCategorizer) *Processor {
	cfg := testConfig()
	vocab := categorizer.NewVocabulary(cfg.Categories, cfg.Fallback)
	return New(cfg, mail, cat, vocab)
}

func msg(id, subject string) *models.EmailMessage {
	return &models.EmailMessage{ID: id, ThreadID: id, Subject: subject}
}

func TestProcessEmails_AllSuccessful(t *testing.T) {
	mail := newFakeMailService(msg("a", "Standup"), msg("b", "Dinner"), msg("c", "Invoice"))
	cat := &fakeCategorizer{
		fallback: "Other",
		byID: map[string]models.Category{
			"a": {Name: "Work", Confidence: 0.9},
			"b": {Name: "Personal", Confidence: 0.8},
			"c": {Name: "Finance", Confidence: 0.7},
		},
	}
	p := newTestProcessor(mail, cat)

	result, err := p.ProcessEmails(context.Background(), Options{ApplyLabels: true})

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalMessages)
	assert.Equal(t, 3, result.SuccessfulCategorizations)
	assert.Equal(t, 0, result.FailedCategorizations)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 3, mail.appliedCount())
	assert.Equal(t, map[string]int{"Work": 1, "Personal": 1, "Finance": 1}, result.CategoryDistribution())
	assert.Equal(t, 3, result.Stats.APICallsOpenAI)
	assert.Equal(t, 3, result.Stats.MessagesCategorized)
}

func TestProcessEmails_HardFailureRecordedNotFatal(t *testing.T) {
	mail := newFakeMailService(msg("a", "Standup"), msg("b", "Garbled"))
	cat := &fakeCategorizer{
		fallback: "Other",
		byID:     map[string]models.Category{"a": {Name: "Work", Confidence: 0.9}},
		errByID:  map[string]error{"b": errors.New("categorization failed for message b: rate limit")},
	}
	p := newTestProcessor(mail, cat)

	result, err := p.ProcessEmails(context.Background(), Options{ApplyLabels: true})

	require.NoError(t, err, "per-message failures must not abort the run")
	assert.Equal(t, 2, result.TotalMessages)
	assert.Equal(t, 1, result.SuccessfulCategorizations)
	assert.Equal(t, 1, result.FailedCategorizations)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "rate limit")
	assert.Equal(t, 1, mail.appliedCount(), "failed outcomes must not be labeled")
}

func TestProcessEmails_LowConfidenceSkipsLabeling(t *testing.T) {
	mail := newFakeMailService(msg("a", "Maybe work"), msg("b", "Surely work"))
	cat := &fakeCategorizer{
		fallback: "Other",
		byID: map[string]models.Category{
			"a": {Name: "Work", Confidence: 0.2},
			"b": {Name: "Work", Confidence: 0.9},
		},
	}
	p := newTestProcessor(mail, cat)

	result, err := p.ProcessEmails(context.Background(), Options{ApplyLabels: true})

	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessfulCategorizations, "low confidence is still a successful outcome")
	assert.Equal(t, 1, mail.appliedCount(), "only the confident outcome gets a label")
}

func TestProcessEmails_NoApplyLabels(t *testing.T) {
	mail := newFakeMailService(msg("a", "Standup"))
	cat := &fakeCategorizer{
		fallback: "Other",
		byID:     map[string]models.Category{"a": {Name: "Work", Confidence: 0.9}},
	}
	p := newTestProcessor(mail, cat)

	result, err := p.ProcessEmails(context.Background(), Options{ApplyLabels: false})

	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessfulCategorizations)
	assert.Equal(t, 0, mail.appliedCount())
}

func TestProcessEmails_EmptyListing(t *testing.T) {
	mail := newFakeMailService()
	p := newTestProcessor(mail, &fakeCategorizer{fallback: "Other"})

	result, err := p.ProcessEmails(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalMessages)
	assert.Empty(t, result.Results)
}

func TestProcessEmails_ListingFailureReturnsError(t *testing.T) {
	mail := newFakeMailService(msg("a", "Standup"))
	mail.listErr = errors.New("gmail unavailable")
	p := newTestProcessor(mail, &fakeCategorizer{fallback: "Other"})

	result, err := p.ProcessEmails(context.Background(), Options{})

	require.Error(t, err)
	require.NotNil(t, result, "a report is still produced for the aborted run")
	assert.Equal(t, 0, result.TotalMessages)
	assert.NotEmpty(t, result.Errors)
}

func TestProcessEmails_FetchFailureDropsMessage(t *testing.T) {
	mail := newFakeMailService(msg("a", "Standup"), msg("b", "Broken"))
	mail.fetchErr["b"] = errors.New("message fetch timed out")
	cat := &fakeCategorizer{
		fallback: "Other",
		byID:     map[string]models.Category{"a": {Name: "Work", Confidence: 0.9}},
	}
	p := newTestProcessor(mail, cat)

	result, err := p.ProcessEmails(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalMessages, "unfetchable messages are dropped from the batch")
	assert.Equal(t, 1, result.SuccessfulCategorizations)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[len(result.Errors)-1], "timed out")
}

func TestProcessEmails_PanicBecomesFailedOutcome(t *testing.T) {
	mail := newFakeMailService(msg("a", "Standup"), msg("b", "Cursed"))
	cat := &fakeCategorizer{
		fallback: "Other",
		byID:     map[string]models.Category{"a": {Name: "Work", Confidence: 0.9}},
		panicOn:  "b",
	}
	p := newTestProcessor(mail, cat)

	result, err := p.ProcessEmails(context.Background(), Options{})

	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalMessages)
	assert.Equal(t, 1, result.SuccessfulCategorizations)
	assert.Equal(t, 1, result.FailedCategorizations)

	var failed *models.CategorizationResult
	for i := range result.Results {
		if !result.Results[i].Success {
			failed = &result.Results[i]
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, "b", failed.MessageID)
	assert.Contains(t, failed.ErrorMessage, "panicked")
	assert.Equal(t, "Other", failed.PredictedCategory.Name)
}

func TestProcessEmails_ConcurrentProducesOneOutcomePerMessage(t *testing.T) {
	const n = 50
	msgs := make([]*models.EmailMessage, n)
	byID := make(map[string]models.Category, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("msg-%02d", i)
		msgs[i] = msg(id, "Subject "+id)
		byID[id] = models.Category{Name: "Work", Confidence: 0.9}
	}
	mail := newFakeMailService(msgs...)
	cat := &fakeCategorizer{fallback: "Other", byID: byID}
	p := newTestProcessor(mail, cat)

	result, err := p.ProcessEmails(context.Background(), Options{
		Concurrent:    true,
		MaxConcurrent: 5,
		ApplyLabels:   true,
	})

	require.NoError(t, err)
	assert.Equal(t, n, result.TotalMessages)
	assert.Equal(t, n, result.SuccessfulCategorizations)
	assert.Equal(t, n, cat.calls)

	seen := make(map[string]bool, n)
	for _, res := range result.Results {
		assert.False(t, seen[res.MessageID], "message %s must have exactly one outcome", res.MessageID)
		seen[res.MessageID] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, mail.appliedCount())
}

func TestProcessEmails_ConcurrentMixedOutcomes(t *testing.T) {
	mail := newFakeMailService(msg("a", "OK"), msg("b", "Fails"), msg("c", "Panics"))
	cat := &fakeCategorizer{
		fallback: "Other",
		byID:     map[string]models.Category{"a": {Name: "Work", Confidence: 0.9}},
		errByID:  map[string]error{"b": errors.New("hard failure")},
		panicOn:  "c",
	}
	p := newTestProcessor(mail, cat)

	result, err := p.ProcessEmails(context.Background(), Options{Concurrent: true, MaxConcurrent: 3})

	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalMessages)
	assert.Equal(t, 1, result.SuccessfulCategorizations)
	assert.Equal(t, 2, result.FailedCategorizations)
}

func TestProcessEmails_OriginalCategoryFromLabels(t *testing.T) {
	m := msg("a", "Standup")
	m.LabelIDs = []string{"Label_1", "INBOX"}
	mail := newFakeMailService(m)
	mail.labels = []models.GmailLabel{{ID: "Label_1", Name: "Work", Type: models.LabelTypeUser}}
	cat := &fakeCategorizer{
		fallback: "Other",
		byID:     map[string]models.Category{"a": {Name: "Personal", Confidence: 0.8}},
	}
	p := newTestProcessor(mail, cat)

	result, err := p.ProcessEmails(context.Background(), Options{})

	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "Work", result.Results[0].OriginalCategory)
	assert.Equal(t, "Personal", result.Results[0].PredictedCategory.Name)
}

func TestProcessEmails_MaxMessagesLimit(t *testing.T) {
	mail := newFakeMailService(msg("a", "1"), msg("b", "2"), msg("c", "3"))
	cat := &fakeCategorizer{fallback: "Other"}
	p := newTestProcessor(mail, cat)

	result, err := p.ProcessEmails(context.Background(), Options{MaxMessages: 2})

	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalMessages)
}
