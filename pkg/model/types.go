package model

import "time"

// ProviderType identifies which adapter polls a provider subscription.
type ProviderType string

const (
	ProviderOpenAI     ProviderType = "openai"
	ProviderAnthropic  ProviderType = "anthropic"
	ProviderOpenRouter ProviderType = "openrouter"
)

// Valid reports whether the provider type is one of the known variants.
func (p ProviderType) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter:
		return true
	}
	return false
}

// ProviderConfig is one provider subscription for one user. Configs are
// created and updated externally; the poller treats them as read-only.
type ProviderConfig struct {
	UserID       string       `json:"user_id" yaml:"user_id"`
	ProviderID   string       `json:"provider_id" yaml:"provider_id"`
	ProviderType ProviderType `json:"provider_type" yaml:"provider_type"`
	Credential   string       `json:"credential" yaml:"credential"`
	SoftLimit    *float64     `json:"soft_limit,omitempty" yaml:"soft_limit,omitempty"`
	HardLimit    *float64     `json:"hard_limit,omitempty" yaml:"hard_limit,omitempty"`
	Disabled     bool         `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// UsageSnapshot is a point-in-time usage and cost measurement for one
// provider subscription. Today and month-to-date windows are calendar-based
// in UTC. Credits-based providers report zero token and today figures and
// populate Balance/Credits instead; their MTDCost is credits consumed since
// account inception, not bounded to the calendar month.
type UsageSnapshot struct {
	ProviderType ProviderType `json:"provider_type"`
	TodayTokens  int64        `json:"today_tokens"`
	MTDTokens    int64        `json:"mtd_tokens"`
	TodayCost    float64      `json:"today_cost"`
	MTDCost      float64      `json:"mtd_cost"`
	Balance      *float64     `json:"balance,omitempty"`
	Credits      *float64     `json:"credits,omitempty"`

	// LastUpdated is assigned by the orchestrator at persistence time,
	// never by an adapter.
	LastUpdated time.Time `json:"last_updated,omitzero"`
}

// PushTokens holds a user's registered notification channel tokens.
// A user with no stored tokens receives no notifications.
type PushTokens struct {
	FCM     string `json:"fcm,omitempty"`
	Webhook string `json:"webhook,omitempty"`
}

// For returns the token registered for the named channel, or "".
func (t *PushTokens) For(channel string) string {
	if t == nil {
		return ""
	}
	switch channel {
	case "fcm":
		return t.FCM
	case "webhook":
		return t.Webhook
	}
	return ""
}

// MonthStart returns midnight on the first day of t's month, in t's location.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date in UTC.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
