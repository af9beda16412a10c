package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	gmail "google.golang.org/api/gmail/v1"

	"gmailcat/internal/models"
)

// GetMessageIDs lists message ids matching query, up to maxResults,
// following pagination. Retried with backoff on failure.
func (c *Client) GetMessageIDs(ctx context.Context, query string, maxResults int) ([]string, error) {
	log.Infof("fetching message ids: query=%q max=%d", query, maxResults)

	var ids []string
	err := c.policy.Do(ctx, func() error {
		ids = ids[:0]
		pageToken := ""
		for {
			remaining := maxResults - len(ids)
			if remaining <= 0 {
				break
			}
			pageSize := int64(remaining)
			if pageSize > 100 {
				pageSize = 100
			}

			req := c.svc.Users.Messages.List(userID).Q(query).MaxResults(pageSize)
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			res, err := req.Context(ctx).Do()
			if err != nil {
				return fmt.Errorf("listing messages: %w", err)
			}

			for _, m := range res.Messages {
				ids = append(ids, m.Id)
			}
			if res.NextPageToken == "" {
				break
			}
			pageToken = res.NextPageToken
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("found %d messages", len(ids))
	return ids, nil
}

// GetMessage fetches one message in full format and parses it into a
// typed EmailMessage.
func (c *Client) GetMessage(ctx context.Context, id string) (*models.EmailMessage, error) {
	log.Debugf("fetching message %s", id)

	var raw *gmail.Message
	err := c.policy.Do(ctx, func() error {
		var callErr error
		raw, callErr = c.svc.Users.Messages.Get(userID, id).Format("full").Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetching message %s: %w", id, err)
	}

	return parseMessage(raw), nil
}

func parseMessage(raw *gmail.Message) *models.EmailMessage {
	msg := &models.EmailMessage{
		ID:       raw.Id,
		ThreadID: raw.ThreadId,
		Snippet:  raw.Snippet,
		LabelIDs: raw.LabelIds,
	}

	if raw.Payload == nil {
		return msg
	}

	for _, h := range raw.Payload.Headers {
		msg.Headers = append(msg.Headers, models.EmailHeader{Name: h.Name, Value: h.Value})
		switch strings.ToLower(h.Name) {
		case "subject":
			msg.Subject = h.Value
		case "from":
			msg.Sender = h.Value
		case "to":
			msg.Recipient = h.Value
		case "date":
			if t, ok := parseDate(h.Value); ok {
				msg.Date = &t
			}
		}
	}

	var bodyText, bodyHTML string
	extractParts(raw.Payload, &bodyText, &bodyHTML, &msg.Attachments)
	msg.BodyText = models.CleanBodyContent(bodyText)
	msg.BodyHTML = models.CleanBodyContent(bodyHTML)

	return msg
}

// extractParts walks the MIME tree collecting text bodies and
// attachment filenames.
func extractParts(part *gmail.MessagePart, bodyText, bodyHTML *string, attachments *[]string) {
	switch {
	case part.MimeType == "text/plain":
		if s, ok := decodeBody(part.Body); ok {
			*bodyText = s
		}
	case part.MimeType == "text/html":
		if s, ok := decodeBody(part.Body); ok {
			*bodyHTML = s
		}
	case strings.HasPrefix(part.MimeType, "multipart/"):
		for _, sub := range part.Parts {
			extractParts(sub, bodyText, bodyHTML, attachments)
		}
	case part.Filename != "":
		*attachments = append(*attachments, part.Filename)
	}
}

func decodeBody(body *gmail.MessagePartBody) (string, bool) {
	if body == nil || body.Data == "" {
		return "", false
	}
	data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(body.Data, "="))
	if err != nil {
		log.Warnf("failed to decode message body: %v", err)
		return "", false
	}
	return string(data), true
}

var dateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

func parseDate(value string) (time.Time, bool) {
	// Strip a trailing "(TZ)" comment first.
	if idx := strings.LastIndex(value, " ("); idx != -1 {
		value = value[:idx]
	}
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	log.Warnf("failed to parse date: %q", value)
	return time.Time{}, false
}
