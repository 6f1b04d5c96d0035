// Package poller drives the periodic polling cycle: it loads the provider
// configuration set, polls each subscription, persists the fresh snapshot,
// and raises threshold-crossing alerts. Each configuration is processed in
// isolation; one provider's failure never aborts the rest of the cycle.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yapay-ai/spendwatch/pkg/alert"
	"github.com/yapay-ai/spendwatch/pkg/metrics"
	"github.com/yapay-ai/spendwatch/pkg/model"
	"github.com/yapay-ai/spendwatch/pkg/notify"
	"github.com/yapay-ai/spendwatch/pkg/provider"
	"github.com/yapay-ai/spendwatch/pkg/store"
)

const defaultConcurrency = 4

// Orchestrator runs polling cycles. Configurations within one cycle are
// unique per (user, provider) key, so they may be processed concurrently;
// overlap across cycles is prevented by a cycle-level lock, which preserves
// the read-previous-before-persist ordering the crossing detector needs.
type Orchestrator struct {
	store       store.Store
	registry    *provider.Registry
	dispatcher  *notify.Dispatcher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	concurrency int
	pollTimeout time.Duration

	cycleMu sync.Mutex
}

// New creates an orchestrator. concurrency <= 0 selects the default;
// pollTimeout <= 0 disables the per-poll deadline.
func New(st store.Store, registry *provider.Registry, dispatcher *notify.Dispatcher,
	m *metrics.Metrics, logger *slog.Logger, concurrency int, pollTimeout time.Duration) *Orchestrator {

	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Orchestrator{
		store:       st,
		registry:    registry,
		dispatcher:  dispatcher,
		metrics:     m,
		logger:      logger,
		concurrency: concurrency,
		pollTimeout: pollTimeout,
	}
}

// RunCycle processes the full configuration set once. now is injected so
// cycles are reproducible in tests; it becomes the LastUpdated stamp on
// every snapshot persisted during this cycle. An empty configuration set is
// a no-op. Only a failure to load the set is returned as an error; all
// per-configuration failures are logged and contained.
func (o *Orchestrator) RunCycle(ctx context.Context, now time.Time) error {
	if !o.cycleMu.TryLock() {
		o.logger.Warn("previous poll cycle still running, skipping")
		return nil
	}
	defer o.cycleMu.Unlock()

	configs, err := o.store.ListConfigs(ctx)
	if err != nil {
		return fmt.Errorf("load provider configs: %w", err)
	}
	if len(configs) == 0 {
		o.logger.Debug("no provider configs, nothing to poll")
		return nil
	}

	o.logger.Info("starting poll cycle", "configs", len(configs))

	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup
	for _, cfg := range configs {
		if cfg.Disabled {
			o.logger.Debug("skipping disabled config", "user", cfg.UserID, "provider_id", cfg.ProviderID)
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(cfg model.ProviderConfig) {
			defer wg.Done()
			defer func() { <-sem }()
			o.processConfig(ctx, cfg, now)
		}(cfg)
	}
	wg.Wait()

	o.metrics.CyclesTotal.Inc()
	o.logger.Info("poll cycle complete", "configs", len(configs))
	return nil
}

// processConfig runs the poll → read-previous → persist → detect → dispatch
// sequence for one subscription. Every failure path logs and returns; none
// escapes to the cycle.
func (o *Orchestrator) processConfig(ctx context.Context, cfg model.ProviderConfig, now time.Time) {
	log := o.logger.With(
		"user", cfg.UserID,
		"provider_id", cfg.ProviderID,
		"provider", cfg.ProviderType,
	)

	adapter, err := o.registry.Get(cfg.ProviderType)
	if err != nil {
		o.metrics.PollsTotal.WithLabelValues(string(cfg.ProviderType), metrics.PollUnknownProvider).Inc()
		log.Error("unknown provider type", "error", err)
		return
	}

	pollCtx := ctx
	if o.pollTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, o.pollTimeout)
		defer cancel()
	}

	start := time.Now()
	snap, err := adapter.Poll(pollCtx, cfg.Credential)
	o.metrics.PollDuration.WithLabelValues(string(cfg.ProviderType)).Observe(time.Since(start).Seconds())
	if err != nil {
		o.metrics.PollsTotal.WithLabelValues(string(cfg.ProviderType), metrics.PollFailure).Inc()
		log.Error("provider poll failed", "error", err)
		return
	}

	// The previous snapshot must be read before the new one is persisted;
	// it is what crossing detection compares against.
	previous, err := o.store.GetSnapshot(ctx, cfg.UserID, cfg.ProviderID)
	if err != nil {
		o.metrics.PollsTotal.WithLabelValues(string(cfg.ProviderType), metrics.PollFailure).Inc()
		log.Error("read previous snapshot", "error", err)
		return
	}

	snap.LastUpdated = now
	if err := o.store.PutSnapshot(ctx, cfg.UserID, cfg.ProviderID, snap); err != nil {
		o.metrics.PollsTotal.WithLabelValues(string(cfg.ProviderType), metrics.PollFailure).Inc()
		log.Error("persist snapshot", "error", err)
		return
	}

	if event := alert.Detect(cfg, snap, previous); event != nil {
		o.metrics.AlertsTotal.WithLabelValues(string(event.Severity)).Inc()
		log.Warn("budget threshold crossed",
			"severity", event.Severity,
			"spend", event.CurrentSpend,
			"limit", event.Limit,
		)
		// Notification failures are isolated inside the dispatcher and
		// never count as a poll failure.
		o.dispatcher.Dispatch(ctx, *event)
	}

	o.metrics.PollsTotal.WithLabelValues(string(cfg.ProviderType), metrics.PollSuccess).Inc()
	log.Info("poll complete", "mtd_cost", snap.MTDCost, "mtd_tokens", snap.MTDTokens)
}
