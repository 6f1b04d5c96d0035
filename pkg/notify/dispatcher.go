package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/yapay-ai/spendwatch/pkg/alert"
	"github.com/yapay-ai/spendwatch/pkg/metrics"
	"github.com/yapay-ai/spendwatch/pkg/store"
)

// Dispatcher fans one alert out to all channels a user has registered.
// Delivery is concurrent and settle-all: a failing channel never blocks the
// others and never surfaces to the caller.
type Dispatcher struct {
	store    store.Store
	channels []Channel
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(st store.Store, channels []Channel, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    st,
		channels: channels,
		metrics:  m,
		logger:   logger,
	}
}

// Dispatch delivers the alert to every channel the user has a token for.
// A user with no registered tokens is a no-op, not an error.
func (d *Dispatcher) Dispatch(ctx context.Context, event alert.Event) {
	tokens, err := d.store.GetPushTokens(ctx, event.UserID)
	if err != nil {
		d.logger.Error("resolve push tokens", "user", event.UserID, "error", err)
		return
	}
	if tokens == nil {
		d.logger.Debug("no push tokens registered", "user", event.UserID)
		return
	}

	n := Notification{
		UserID:   event.UserID,
		Title:    event.Title,
		Body:     event.Body,
		Priority: priorityFor(event.Severity),
	}

	var wg sync.WaitGroup
	for _, ch := range d.channels {
		token := tokens.For(ch.Name())
		if token == "" {
			continue
		}

		wg.Add(1)
		go func(ch Channel, token string) {
			defer wg.Done()
			if err := ch.Push(ctx, token, n); err != nil {
				d.metrics.NotifyFailures.WithLabelValues(ch.Name()).Inc()
				d.logger.Error("push notification failed",
					"channel", ch.Name(),
					"user", event.UserID,
					"error", err,
				)
			}
		}(ch, token)
	}
	wg.Wait()
}

func priorityFor(severity alert.Severity) string {
	if severity == alert.SeverityHard {
		return PriorityHigh
	}
	return PriorityNormal
}
