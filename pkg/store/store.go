// Package store persists the latest usage snapshot per (user, provider)
// subscription, the provider configuration set, and per-user push channel
// registrations. Both backends are plain key-value stores with JSON values
// and per-key last-write-wins semantics.
package store

import (
	"context"

	"github.com/yapay-ai/spendwatch/pkg/model"
)

// Key layout, shared by all backends.
const (
	configsKey       = "provider_configs"
	usageKeyPrefix   = "usage:"
	pushTokensPrefix = "push_tokens:"
)

func usageKey(userID, providerID string) string {
	return usageKeyPrefix + userID + ":" + providerID
}

func userUsagePrefix(userID string) string {
	return usageKeyPrefix + userID + ":"
}

func pushTokensKey(userID string) string {
	return pushTokensPrefix + userID
}

// Store is the persistence layer. Absent values are returned as nil without
// error; only backend failures produce errors.
type Store interface {
	// GetSnapshot returns the last persisted snapshot for the key, or nil.
	GetSnapshot(ctx context.Context, userID, providerID string) (*model.UsageSnapshot, error)

	// PutSnapshot overwrites the snapshot for the key.
	PutSnapshot(ctx context.Context, userID, providerID string, snap *model.UsageSnapshot) error

	// UserSnapshots returns all persisted snapshots for a user, keyed by
	// provider ID. The map is empty, not nil, when the user has none.
	UserSnapshots(ctx context.Context, userID string) (map[string]*model.UsageSnapshot, error)

	// ListConfigs returns the stored provider configuration set.
	ListConfigs(ctx context.Context) ([]model.ProviderConfig, error)

	// SaveConfigs replaces the stored provider configuration set.
	SaveConfigs(ctx context.Context, configs []model.ProviderConfig) error

	// GetPushTokens returns a user's channel registrations, or nil.
	GetPushTokens(ctx context.Context, userID string) (*model.PushTokens, error)

	// SetPushTokens replaces a user's channel registrations.
	SetPushTokens(ctx context.Context, userID string, tokens *model.PushTokens) error

	// Close releases resources.
	Close() error
}
