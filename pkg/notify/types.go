package notify

import "context"

// Priority of a push notification, mapped from alert severity.
const (
	PriorityHigh   = "high"
	PriorityNormal = "normal"
)

// Notification is one logical push message for one user.
type Notification struct {
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Priority string `json:"priority"`
}

// Channel delivers notifications to one push backend. Implementations must
// be safe for concurrent use.
type Channel interface {
	// Name returns the channel identifier (e.g., "fcm", "webhook").
	Name() string

	// Push delivers a notification to the device or endpoint identified
	// by the user's registered token.
	Push(ctx context.Context, token string, n Notification) error
}
