package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/yapay-ai/spendwatch/pkg/model"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com"
	anthropicAPIVersion = "2023-06-01"
)

// Anthropic polls the Anthropic organization usage and cost reports.
// Both reports cover the window from the first day of the current month
// through today.
type Anthropic struct {
	baseURL string
	client  *http.Client
}

// NewAnthropic creates an Anthropic adapter. An empty baseURL selects the
// production endpoint; a nil client gets a default with a 30s timeout.
func NewAnthropic(baseURL string, client *http.Client) *Anthropic {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Anthropic{baseURL: baseURL, client: client}
}

func (a *Anthropic) Name() model.ProviderType { return model.ProviderAnthropic }

type anthropicUsageResponse struct {
	Usage []anthropicUsageItem `json:"usage"`
}

type anthropicUsageItem struct {
	Timestamp    time.Time `json:"timestamp"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
}

type anthropicCostResponse struct {
	Costs []anthropicCostItem `json:"costs"`
}

type anthropicCostItem struct {
	Timestamp time.Time `json:"timestamp"`
	Amount    float64   `json:"amount"`
}

func (a *Anthropic) Poll(ctx context.Context, credential string) (*model.UsageSnapshot, error) {
	now := time.Now().UTC()
	window := url.Values{
		"start_date": {model.MonthStart(now).Format("2006-01-02")},
		"end_date":   {now.Format("2006-01-02")},
	}.Encode()

	var usage anthropicUsageResponse
	if err := a.get(ctx, "/v1/organizations/usage_report/messages?"+window, credential, &usage); err != nil {
		return nil, err
	}

	var todayTokens, mtdTokens int64
	for _, item := range usage.Usage {
		tokens := item.InputTokens + item.OutputTokens
		mtdTokens += tokens
		if model.SameDay(item.Timestamp, now) {
			todayTokens += tokens
		}
	}

	// The cost report is a dependent second call. If it fails, the whole
	// poll fails: zero-filling here would mask real billing data.
	var costs anthropicCostResponse
	if err := a.get(ctx, "/v1/organizations/cost_report?"+window, credential, &costs); err != nil {
		return nil, err
	}

	var todayCost, mtdCost float64
	for _, item := range costs.Costs {
		mtdCost += item.Amount
		if model.SameDay(item.Timestamp, now) {
			todayCost += item.Amount
		}
	}

	return &model.UsageSnapshot{
		ProviderType: a.Name(),
		TodayTokens:  todayTokens,
		MTDTokens:    mtdTokens,
		TodayCost:    todayCost,
		MTDCost:      mtdCost,
	}, nil
}

func (a *Anthropic) get(ctx context.Context, path, credential string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return &PollError{Provider: a.Name(), Err: err}
	}
	req.Header.Set("x-api-key", credential)
	req.Header.Set("anthropic-version", anthropicAPIVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return &PollError{Provider: a.Name(), Err: fmt.Errorf("fetch report: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &PollError{Provider: a.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("report request failed")}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &PollError{Provider: a.Name(), Err: fmt.Errorf("decode report: %w", err)}
	}
	return nil
}
