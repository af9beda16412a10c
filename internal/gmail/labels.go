package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"gmailcat/internal/models"
)

// ErrLabelExists signals a create-label name conflict; callers recover
// by refreshing their listing instead of treating it as fatal.
var ErrLabelExists = errors.New("label already exists")

// GetLabels lists all labels in the mailbox.
func (c *Client) GetLabels(ctx context.Context) ([]models.GmailLabel, error) {
	log.Debug("fetching Gmail labels")

	var res *gmail.ListLabelsResponse
	err := c.policy.Do(ctx, func() error {
		var callErr error
		res, callErr = c.svc.Users.Labels.List(userID).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("listing labels: %w", err)
	}

	labels := make([]models.GmailLabel, 0, len(res.Labels))
	for _, l := range res.Labels {
		labels = append(labels, models.GmailLabel{
			ID:             l.Id,
			Name:           l.Name,
			Type:           l.Type,
			MessagesTotal:  l.MessagesTotal,
			MessagesUnread: l.MessagesUnread,
		})
	}

	log.Debugf("found %d labels", len(labels))
	return labels, nil
}

// CreateLabel creates a user label. Returns ErrLabelExists when the
// name is already taken, letting the label cache close its race. The
// description is advisory only; the Gmail label resource does not
// carry one.
func (c *Client) CreateLabel(ctx context.Context, name, description string) (*models.GmailLabel, error) {
	log.Infof("creating label %q (%s)", name, description)

	var created *gmail.Label
	var conflict bool
	err := c.policy.Do(ctx, func() error {
		var callErr error
		created, callErr = c.svc.Users.Labels.Create(userID, &gmail.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
		if isConflict(callErr) {
			// A name conflict is deterministic; stop retrying and let
			// the caller recover via a cache refresh.
			conflict = true
			return nil
		}
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("creating label %q: %w", name, err)
	}
	if conflict {
		return nil, fmt.Errorf("creating label %q: %w", name, ErrLabelExists)
	}

	log.Infof("created label %q with id %s", name, created.Id)
	return &models.GmailLabel{ID: created.Id, Name: created.Name, Type: created.Type}, nil
}

func isConflict(err error) bool {
	if err == nil {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusConflict
	}
	return strings.Contains(strings.ToLower(err.Error()), "exists")
}

// AddLabelToMessage applies a label to one message. A failure is
// reported as false so callers can count it as a warning.
func (c *Client) AddLabelToMessage(ctx context.Context, messageID, labelID string) bool {
	err := c.policy.Do(ctx, func() error {
		_, callErr := c.svc.Users.Messages.Modify(userID, messageID, &gmail.ModifyMessageRequest{
			AddLabelIds: []string{labelID},
		}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		log.Errorf("failed to add label %s to message %s: %v", labelID, messageID, err)
		return false
	}
	return true
}

// RemoveLabelFromMessage removes a label from one message.
func (c *Client) RemoveLabelFromMessage(ctx context.Context, messageID, labelID string) bool {
	err := c.policy.Do(ctx, func() error {
		_, callErr := c.svc.Users.Messages.Modify(userID, messageID, &gmail.ModifyMessageRequest{
			RemoveLabelIds: []string{labelID},
		}).Context(ctx).Do()
		return callErr
	})
	if err != nil {
		log.Errorf("failed to remove label %s from message %s: %v", labelID, messageID, err)
		return false
	}
	return true
}
