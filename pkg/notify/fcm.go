package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const fcmEndpoint = "https://fcm.googleapis.com/fcm/send"

// FCMChannel sends push notifications through Firebase Cloud Messaging.
type FCMChannel struct {
	endpoint  string
	serverKey string
	client    *http.Client
}

// NewFCM creates an FCM channel. An empty endpoint selects the production
// send endpoint.
func NewFCM(endpoint, serverKey string) *FCMChannel {
	if endpoint == "" {
		endpoint = fcmEndpoint
	}
	return &FCMChannel{
		endpoint:  endpoint,
		serverKey: serverKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (f *FCMChannel) Name() string { return "fcm" }

func (f *FCMChannel) Push(ctx context.Context, token string, n Notification) error {
	payload := fcmMessage{
		To: token,
		Notification: fcmNotification{
			Title:    n.Title,
			Body:     n.Body,
			Priority: n.Priority,
		},
		Data: fcmData{
			UserID:    n.UserID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal fcm payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create fcm request: %w", err)
	}
	req.Header.Set("Authorization", "key="+f.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("send fcm notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fcm returned status %d", resp.StatusCode)
	}
	return nil
}

type fcmMessage struct {
	To           string          `json:"to"`
	Notification fcmNotification `json:"notification"`
	Data         fcmData         `json:"data"`
}

type fcmNotification struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Priority string `json:"priority"`
}

type fcmData struct {
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
}
