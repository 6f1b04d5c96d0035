package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/yapay-ai/spendwatch/pkg/model"
)

const openrouterBaseURL = "https://openrouter.ai"

// OpenRouter is a credits-based provider: it exposes no itemized token or
// cost records, so token and today figures are explicit zeros and the
// snapshot carries the remaining-funds figures instead. MTDCost here is
// total credits consumed since account inception.
type OpenRouter struct {
	baseURL string
	client  *http.Client
}

// NewOpenRouter creates an OpenRouter adapter. An empty baseURL selects the
// production endpoint; a nil client gets a default with a 30s timeout.
func NewOpenRouter(baseURL string, client *http.Client) *OpenRouter {
	if baseURL == "" {
		baseURL = openrouterBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OpenRouter{baseURL: baseURL, client: client}
}

func (o *OpenRouter) Name() model.ProviderType { return model.ProviderOpenRouter }

func (o *OpenRouter) Poll(ctx context.Context, credential string) (*model.UsageSnapshot, error) {
	keyBody, err := o.get(ctx, "/api/v1/key", credential)
	if err != nil {
		return nil, err
	}

	creditsBody, err := o.get(ctx, "/api/v1/credits", credential)
	if err != nil {
		return nil, err
	}

	snap := &model.UsageSnapshot{
		ProviderType: o.Name(),
		MTDCost:      gjson.GetBytes(creditsBody, "used_credits").Float(),
	}

	if res := gjson.GetBytes(creditsBody, "remaining_credits"); res.Exists() {
		credits := res.Float()
		snap.Credits = &credits
	}
	if res := gjson.GetBytes(keyBody, "data.limit_remaining"); res.Exists() && res.Type != gjson.Null {
		balance := res.Float()
		snap.Balance = &balance
	}

	return snap, nil
}

func (o *OpenRouter) get(ctx context.Context, path, credential string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+path, nil)
	if err != nil {
		return nil, &PollError{Provider: o.Name(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &PollError{Provider: o.Name(), Err: fmt.Errorf("fetch %s: %w", path, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &PollError{Provider: o.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("%s request failed", path)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PollError{Provider: o.Name(), Err: fmt.Errorf("read %s response: %w", path, err)}
	}
	if !gjson.ValidBytes(body) {
		return nil, &PollError{Provider: o.Name(), Err: fmt.Errorf("malformed %s response", path)}
	}
	return body, nil
}
