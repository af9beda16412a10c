package models

import (
	"fmt"
	"strings"
	"time"
)

// maxBodyLength caps stored body content; anything longer is truncated
// with an ellipsis marker rather than dropped.
const maxBodyLength = 10000

// maxCategorizationBodyLength caps the body portion handed to the
// categorizer prompt.
const maxCategorizationBodyLength = 2000

// EmailHeader is a single message header in original order.
type EmailHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// EmailMessage is one fetched Gmail message. Instances are built once
// by the gmail client and treated as read-only for the rest of a run.
type EmailMessage struct {
	ID          string        `json:"id"`
	ThreadID    string        `json:"thread_id"`
	Subject     string        `json:"subject"`
	Sender      string        `json:"sender"`
	Recipient   string        `json:"recipient"`
	Date        *time.Time    `json:"date,omitempty"`
	BodyText    string        `json:"body_text"`
	BodyHTML    string        `json:"body_html"`
	Snippet     string        `json:"snippet"`
	LabelIDs    []string      `json:"label_ids"`
	Headers     []EmailHeader `json:"headers"`
	Attachments []string      `json:"attachments"`
}

// CleanBodyContent trims and truncates a body field to maxBodyLength.
func CleanBodyContent(body string) string {
	if body == "" {
		return ""
	}
	if len(body) > maxBodyLength {
		body = body[:maxBodyLength] + "..."
	}
	return strings.TrimSpace(body)
}

// ContentForCategorization renders the subject, sender and a capped
// body into the text block sent to the classifier.
func (m *EmailMessage) ContentForCategorization() string {
	var parts []string

	if m.Subject != "" {
		parts = append(parts, "Subject: "+m.Subject)
	}
	if m.Sender != "" {
		parts = append(parts, "From: "+m.Sender)
	}

	body := m.BodyText
	if body == "" {
		body = m.Snippet
	}
	if body != "" {
		if len(body) > maxCategorizationBodyLength {
			body = body[:maxCategorizationBodyLength] + "..."
		}
		parts = append(parts, "Content: "+body)
	}

	return strings.Join(parts, "\n")
}

// Category is a classification decision. Name is always a member of
// the run's vocabulary; Confidence is kept inside [0,1] by producers.
type Category struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// ClampConfidence forces a confidence value into [0,1].
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Label types as reported by the Gmail API.
const (
	LabelTypeUser   = "user"
	LabelTypeSystem = "system"
)

// GmailLabel is a Gmail label. Identity is ID; Name is the stable
// human-facing join key used by the label cache.
type GmailLabel struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	MessagesTotal  int64  `json:"messages_total,omitempty"`
	MessagesUnread int64  `json:"messages_unread,omitempty"`
}

// CategorizationResult records one message's classification attempt.
type CategorizationResult struct {
	MessageID         string        `json:"message_id"`
	OriginalCategory  string        `json:"original_category,omitempty"`
	PredictedCategory Category      `json:"predicted_category"`
	ProcessingTime    time.Duration `json:"processing_time"`
	Success           bool          `json:"success"`
	ErrorMessage      string        `json:"error_message,omitempty"`
}

// BatchResult is the final report of one run, read-only once built.
type BatchResult struct {
	RunID                     string                 `json:"run_id"`
	TotalMessages             int                    `json:"total_messages"`
	SuccessfulCategorizations int                    `json:"successful_categorizations"`
	FailedCategorizations     int                    `json:"failed_categorizations"`
	ProcessingTime            time.Duration          `json:"processing_time"`
	Results                   []CategorizationResult `json:"results"`
	Errors                    []string               `json:"errors"`
	Stats                     StatsSnapshot          `json:"stats"`
}

// CategoryDistribution counts successful results per predicted name.
func (r *BatchResult) CategoryDistribution() map[string]int {
	dist := make(map[string]int)
	for _, res := range r.Results {
		if res.Success {
			dist[res.PredictedCategory.Name]++
		}
	}
	return dist
}

// AverageConfidence averages confidence over successful results,
// returning 0 when there are none.
func (r *BatchResult) AverageConfidence() float64 {
	var sum float64
	var n int
	for _, res := range r.Results {
		if res.Success {
			sum += res.PredictedCategory.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func (r *BatchResult) String() string {
	return fmt.Sprintf("run %s: %d/%d categorized in %s",
		r.RunID, r.SuccessfulCategorizations, r.TotalMessages, r.ProcessingTime.Round(time.Millisecond))
}
