// Package alert decides when a freshly polled snapshot should raise a
// budget notification. Detection is by crossing, not level: an alert fires
// when month-to-date spend moves from below a configured limit to at or
// above it, relative to the previously stored snapshot.
package alert

import (
	"fmt"

	"github.com/yapay-ai/spendwatch/pkg/model"
)

// Severity ranks a budget alert.
type Severity string

const (
	SeveritySoft Severity = "soft"
	SeverityHard Severity = "hard"
)

// Event is an ephemeral alert decision. It is produced by Detect, handed to
// the notification dispatcher, and never persisted.
type Event struct {
	UserID       string
	ProviderType model.ProviderType
	Severity     Severity
	CurrentSpend float64
	Limit        float64
	Title        string
	Body         string
}

// Detect compares the current snapshot against the previous one and the
// configured limits, returning at most one event. It is a pure function.
//
// Hard takes priority: a jump from below the soft limit straight past the
// hard limit produces a single hard event, never a soft one. A nil previous
// snapshot counts as below all limits, so a first-ever poll that already
// exceeds a limit fires immediately. Once a limit has been crossed, no
// further event fires for it until spend drops back below and crosses again.
func Detect(cfg model.ProviderConfig, current, previous *model.UsageSnapshot) *Event {
	if cfg.SoftLimit == nil && cfg.HardLimit == nil {
		return nil
	}

	spend := current.MTDCost

	if cfg.HardLimit != nil && spend >= *cfg.HardLimit &&
		(previous == nil || previous.MTDCost < *cfg.HardLimit) {
		return &Event{
			UserID:       cfg.UserID,
			ProviderType: cfg.ProviderType,
			Severity:     SeverityHard,
			CurrentSpend: spend,
			Limit:        *cfg.HardLimit,
			Title:        "Critical: Budget Exceeded",
			Body:         fmt.Sprintf("%s has exceeded hard limit: $%.2f / $%.2f", cfg.ProviderType, spend, *cfg.HardLimit),
		}
	}

	if cfg.SoftLimit != nil && spend >= *cfg.SoftLimit &&
		(previous == nil || previous.MTDCost < *cfg.SoftLimit) {
		return &Event{
			UserID:       cfg.UserID,
			ProviderType: cfg.ProviderType,
			Severity:     SeveritySoft,
			CurrentSpend: spend,
			Limit:        *cfg.SoftLimit,
			Title:        "Warning: Budget Alert",
			Body:         fmt.Sprintf("%s approaching limit: $%.2f / $%.2f", cfg.ProviderType, spend, *cfg.SoftLimit),
		}
	}

	return nil
}
