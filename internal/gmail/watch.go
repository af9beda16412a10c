package gmail

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	gmail "google.golang.org/api/gmail/v1"
)

// SetupPushNotifications registers a Gmail watch publishing to the
// configured Pub/Sub topic.
func (c *Client) SetupPushNotifications(ctx context.Context, topicName string) bool {
	if c.cfg.PubSub.ProjectID == "" {
		log.Warn("Google Cloud project id not configured for Pub/Sub")
		return false
	}

	topic := fmt.Sprintf("projects/%s/topics/%s", c.cfg.PubSub.ProjectID, topicName)
	log.Infof("setting up push notifications for topic %s", topic)

	res, err := c.svc.Users.Watch(userID, &gmail.WatchRequest{TopicName: topic}).Context(ctx).Do()
	if err != nil {
		log.Errorf("failed to set up push notifications: %v", err)
		return false
	}

	log.Infof("push notifications set up, history id %d", res.HistoryId)
	return true
}

// StopPushNotifications cancels the active Gmail watch.
func (c *Client) StopPushNotifications(ctx context.Context) bool {
	log.Info("stopping push notifications")

	if err := c.svc.Users.Stop(userID).Context(ctx).Do(); err != nil {
		log.Errorf("failed to stop push notifications: %v", err)
		return false
	}

	log.Info("push notifications stopped")
	return true
}
