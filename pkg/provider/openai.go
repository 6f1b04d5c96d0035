package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yapay-ai/spendwatch/pkg/model"
)

const openaiBaseURL = "https://api.openai.com"

// OpenAI polls the OpenAI usage API with a bearer credential.
type OpenAI struct {
	baseURL string
	client  *http.Client
}

// NewOpenAI creates an OpenAI adapter. An empty baseURL selects the
// production endpoint; a nil client gets a default with a 30s timeout.
func NewOpenAI(baseURL string, client *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = openaiBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &OpenAI{baseURL: baseURL, client: client}
}

func (o *OpenAI) Name() model.ProviderType { return model.ProviderOpenAI }

type openaiUsageResponse struct {
	Data       []openaiUsageRecord `json:"data"`
	DailyCosts []openaiDailyCost   `json:"daily_costs"`
}

type openaiUsageRecord struct {
	AggregationTimestamp int64 `json:"aggregation_timestamp"`
	ContextTokens        int64 `json:"n_context_tokens_total"`
	GeneratedTokens      int64 `json:"n_generated_tokens_total"`
}

type openaiDailyCost struct {
	Timestamp float64          `json:"timestamp"`
	LineItems []openaiLineItem `json:"line_items"`
}

type openaiLineItem struct {
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

func (o *OpenAI) Poll(ctx context.Context, credential string) (*model.UsageSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/v1/usage", nil)
	if err != nil {
		return nil, &PollError{Provider: o.Name(), Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &PollError{Provider: o.Name(), Err: fmt.Errorf("fetch usage: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &PollError{Provider: o.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("usage request failed")}
	}

	var data openaiUsageResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, &PollError{Provider: o.Name(), Err: fmt.Errorf("decode usage response: %w", err)}
	}

	now := time.Now().UTC()

	var todayTokens, mtdTokens int64
	for _, rec := range data.Data {
		tokens := rec.ContextTokens + rec.GeneratedTokens
		mtdTokens += tokens
		if model.SameDay(time.Unix(rec.AggregationTimestamp, 0), now) {
			todayTokens += tokens
		}
	}

	// The usage endpoint may omit the cost breakdown entirely; that is an
	// explicit zero, not a failure. Today's cost is the first daily entry.
	var todayCost, mtdCost float64
	for i, day := range data.DailyCosts {
		var daySum float64
		for _, item := range day.LineItems {
			daySum += item.Cost
		}
		if i == 0 {
			todayCost = daySum
		}
		mtdCost += daySum
	}

	return &model.UsageSnapshot{
		ProviderType: o.Name(),
		TodayTokens:  todayTokens,
		MTDTokens:    mtdTokens,
		TodayCost:    todayCost,
		MTDCost:      mtdCost,
	}, nil
}
