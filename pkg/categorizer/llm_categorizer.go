package categorizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"gmailcat/internal/models"
	"gmailcat/internal/retry"
)

// maxPromptContentLength caps the message content carried in the user
// prompt, keeping requests inside token limits.
const maxPromptContentLength = 3000

// CompletionClient is the minimal chat-completion surface the
// categorizer needs from an OpenAI-compatible client.
type CompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMCategorizer implements EmailCategorizer against a chat-completion
// API. One external call per message, wrapped in the retry policy; an
// exhausted retry budget yields a zero-confidence fallback category,
// never an aborted batch.
type LLMCategorizer struct {
	client      CompletionClient
	model       string
	maxTokens   int
	temperature float32
	vocab       Vocabulary
	policy      retry.Policy
}

// NewLLMCategorizer creates a categorizer using an OpenAI-compatible
// client and the default retry policy.
func NewLLMCategorizer(client CompletionClient, model string, maxTokens int, temperature float32, vocab Vocabulary) *LLMCategorizer {
	return &LLMCategorizer{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		vocab:       vocab,
		policy:      retry.DefaultPolicy(),
	}
}

// WithRetryPolicy overrides the per-call retry policy.
func (c *LLMCategorizer) WithRetryPolicy(p retry.Policy) *LLMCategorizer {
	c.policy = p
	return c
}

func (c *LLMCategorizer) buildSystemPrompt() string {
	categories := strings.Join(c.vocab.Categories, ", ")

	return fmt.Sprintf(`You are an expert email categorization assistant. Your task is to categorize emails into one of the following categories:

Categories: %s

Instructions:
1. Analyze the email subject, sender, and content
2. Choose the MOST appropriate category from the list above
3. Provide a confidence score between 0 and 1
4. Give a brief reasoning for your choice
5. Respond ONLY with a valid JSON object in this exact format:

{
    "category": "CategoryName",
    "confidence": 0.85,
    "reasoning": "Brief explanation of why this category was chosen"
}

Rules:
- Always use one of the provided categories exactly as listed
- Confidence should reflect how certain you are (0.0 to 1.0)
- Keep reasoning concise (1-2 sentences)
- If unsure, use %q category with lower confidence
- Focus on the primary purpose/content of the email`, categories, c.vocab.Fallback)
}

func (c *LLMCategorizer) buildUserPrompt(msg *models.EmailMessage) string {
	content := msg.ContentForCategorization()
	if len(content) > maxPromptContentLength {
		content = content[:maxPromptContentLength] + "..."
	}
	return "Please categorize this email:\n\n" + content
}

// complete performs one completion call. Structured (JSON object)
// response mode is tried first; when the model rejects that mode the
// call is repeated once in plain-text mode within the same attempt.
func (c *LLMCategorizer) complete(ctx context.Context, systemPrompt, userPrompt string, structured bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if structured {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if structured && isStructuredModeUnsupported(err) {
			log.Warnf("model %s does not support JSON response format, using text mode", c.model)
			return c.complete(ctx, systemPrompt, userPrompt, false)
		}
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from completion API")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// isStructuredModeUnsupported detects the API's rejection of the JSON
// response_format request mode.
func isStructuredModeUnsupported(err error) bool {
	return strings.Contains(err.Error(), "response_format")
}

// CategorizeEmail classifies one message. Transient failures are
// retried with backoff; an exhausted budget degrades to the fallback
// category with zero confidence, returned together with the cause so
// the caller can record a failed outcome without aborting the batch.
func (c *LLMCategorizer) CategorizeEmail(ctx context.Context, msg *models.EmailMessage) (models.Category, error) {
	start := time.Now()
	log.Debugf("categorizing email %s - %.50s", msg.ID, msg.Subject)

	systemPrompt := c.buildSystemPrompt()
	userPrompt := c.buildUserPrompt(msg)

	var raw string
	err := c.policy.Do(ctx, func() error {
		var callErr error
		raw, callErr = c.complete(ctx, systemPrompt, userPrompt, true)
		return callErr
	})
	if err != nil {
		log.Errorf("failed to categorize email %s: %v", msg.ID, err)
		return models.Category{
			Name:       c.vocab.Fallback,
			Confidence: 0,
			Reasoning:  fmt.Sprintf("Categorization failed: %v", err),
		}, fmt.Errorf("categorization failed for message %s: %w", msg.ID, err)
	}

	result := ParseResponse(raw, c.vocab)
	log.Debugf("categorized email %s as %q (confidence %.2f) in %s",
		msg.ID, result.Name, result.Confidence, time.Since(start).Round(time.Millisecond))
	return result, nil
}

// CategorizeBatch classifies messages sequentially, returning one
// category per input message in input order.
func (c *LLMCategorizer) CategorizeBatch(ctx context.Context, msgs []*models.EmailMessage) []models.Category {
	log.Infof("starting batch categorization of %d emails", len(msgs))
	start := time.Now()

	categories := make([]models.Category, len(msgs))
	for i, msg := range msgs {
		categories[i], _ = c.CategorizeEmail(ctx, msg)
		if (i+1)%10 == 0 {
			log.Infof("processed %d/%d emails", i+1, len(msgs))
		}
	}

	log.Infof("batch categorization completed: %d emails in %s",
		len(categories), time.Since(start).Round(time.Millisecond))
	return categories
}

var _ EmailCategorizer = (*LLMCategorizer)(nil)
