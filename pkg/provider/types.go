package provider

import (
	"context"
	"fmt"

	"github.com/yapay-ai/spendwatch/pkg/model"
)

// Adapter converts one provider's native metering API into the common
// snapshot shape. Implementations must be safe for concurrent use.
type Adapter interface {
	// Name returns the provider type this adapter serves.
	Name() model.ProviderType

	// Poll fetches usage from the first day of the current month through
	// now and normalizes it. The credential is an opaque secret and must
	// never appear in errors or logs.
	Poll(ctx context.Context, credential string) (*model.UsageSnapshot, error)
}

// PollError reports a failed provider poll. StatusCode is the HTTP status
// of the failing request, or 0 when the request never completed.
type PollError struct {
	Provider   model.ProviderType
	StatusCode int
	Err        error
}

func (e *PollError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: poll failed with status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: poll failed: %v", e.Provider, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }
