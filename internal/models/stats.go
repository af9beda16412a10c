package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ProcessingStats holds one run's mutable counters. All increments go
// through methods so concurrent classification workers stay safe; the
// struct is frozen into a StatsSnapshot at run end.
type ProcessingStats struct {
	mu sync.Mutex

	runID             string
	startTime         time.Time
	endTime           time.Time
	messagesProcessed int
	messagesCategorized int
	messagesFailed    int
	labelsCreated     int
	apiCallsGmail     int
	apiCallsOpenAI    int
	errors            []string
}

// NewProcessingStats starts a fresh run-scoped counter set.
func NewProcessingStats() *ProcessingStats {
	return &ProcessingStats{
		runID:     uuid.NewString(),
		startTime: time.Now(),
	}
}

// RunID returns the run identifier stamped on reports and log fields.
func (s *ProcessingStats) RunID() string { return s.runID }

func (s *ProcessingStats) AddProcessed(n int) {
	s.mu.Lock()
	s.messagesProcessed += n
	s.mu.Unlock()
}

func (s *ProcessingStats) IncrCategorized() {
	s.mu.Lock()
	s.messagesCategorized++
	s.mu.Unlock()
}

func (s *ProcessingStats) IncrFailed() {
	s.mu.Lock()
	s.messagesFailed++
	s.mu.Unlock()
}

func (s *ProcessingStats) IncrLabelsCreated() {
	s.mu.Lock()
	s.labelsCreated++
	s.mu.Unlock()
}

func (s *ProcessingStats) IncrGmailCalls() {
	s.mu.Lock()
	s.apiCallsGmail++
	s.mu.Unlock()
}

func (s *ProcessingStats) IncrOpenAICalls() {
	s.mu.Lock()
	s.apiCallsOpenAI++
	s.mu.Unlock()
}

func (s *ProcessingStats) RecordError(msg string) {
	s.mu.Lock()
	s.errors = append(s.errors, msg)
	s.mu.Unlock()
}

// Finish marks the run's end time.
func (s *ProcessingStats) Finish() {
	s.mu.Lock()
	s.endTime = time.Now()
	s.mu.Unlock()
}

// StatsSnapshot is an immutable copy of the counters.
type StatsSnapshot struct {
	RunID               string        `json:"run_id"`
	StartTime           time.Time     `json:"start_time"`
	EndTime             time.Time     `json:"end_time,omitempty"`
	MessagesProcessed   int           `json:"messages_processed"`
	MessagesCategorized int           `json:"messages_categorized"`
	MessagesFailed      int           `json:"messages_failed"`
	LabelsCreated       int           `json:"labels_created"`
	APICallsGmail       int           `json:"api_calls_gmail"`
	APICallsOpenAI      int           `json:"api_calls_openai"`
	Duration            time.Duration `json:"duration"`
	Errors              []string      `json:"errors,omitempty"`
}

// SuccessRate is the categorized/processed percentage.
func (s StatsSnapshot) SuccessRate() float64 {
	if s.MessagesProcessed == 0 {
		return 0
	}
	return float64(s.MessagesCategorized) / float64(s.MessagesProcessed) * 100
}

// Snapshot copies the current counters.
func (s *ProcessingStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		RunID:               s.runID,
		StartTime:           s.startTime,
		EndTime:             s.endTime,
		MessagesProcessed:   s.messagesProcessed,
		MessagesCategorized: s.messagesCategorized,
		MessagesFailed:      s.messagesFailed,
		LabelsCreated:       s.labelsCreated,
		APICallsGmail:       s.apiCallsGmail,
		APICallsOpenAI:      s.apiCallsOpenAI,
		Errors:              append([]string(nil), s.errors...),
	}
	if !s.endTime.IsZero() {
		snap.Duration = s.endTime.Sub(s.startTime)
	} else {
		snap.Duration = time.Since(s.startTime)
	}
	return snap
}
