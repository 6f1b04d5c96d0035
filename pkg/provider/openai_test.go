package provider_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/spendwatch/pkg/model"
	"github.com/yapay-ai/spendwatch/pkg/provider"
)

func TestOpenAI_Poll(t *testing.T) {
	now := time.Now().UTC()
	earlier := now.AddDate(0, 0, -2)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/usage", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		fmt.Fprintf(w, `{
			"data": [
				{"aggregation_timestamp": %d, "n_context_tokens_total": 100, "n_generated_tokens_total": 50},
				{"aggregation_timestamp": %d, "n_context_tokens_total": 200, "n_generated_tokens_total": 100}
			],
			"daily_costs": [
				{"timestamp": %d, "line_items": [{"name": "gpt-4o", "cost": 1.25}, {"name": "gpt-4o-mini", "cost": 0.25}]},
				{"timestamp": %d, "line_items": [{"name": "gpt-4o", "cost": 3.00}]}
			]
		}`, now.Unix(), earlier.Unix(), now.Unix(), earlier.Unix())
	}))
	defer server.Close()

	a := provider.NewOpenAI(server.URL, nil)
	snap, err := a.Poll(context.Background(), "sk-test")
	require.NoError(t, err)

	assert.Equal(t, model.ProviderOpenAI, snap.ProviderType)
	assert.Equal(t, int64(150), snap.TodayTokens)
	assert.Equal(t, int64(450), snap.MTDTokens)
	assert.InDelta(t, 1.50, snap.TodayCost, 0.001)
	assert.InDelta(t, 4.50, snap.MTDCost, 0.001)
	assert.Nil(t, snap.Balance)
	assert.Nil(t, snap.Credits)
	assert.True(t, snap.LastUpdated.IsZero())
}

func TestOpenAI_Poll_NoCostBreakdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"data": [{"aggregation_timestamp": %d, "n_context_tokens_total": 10, "n_generated_tokens_total": 5}]}`,
			time.Now().UTC().Unix())
	}))
	defer server.Close()

	a := provider.NewOpenAI(server.URL, nil)
	snap, err := a.Poll(context.Background(), "sk-test")
	require.NoError(t, err)

	assert.Equal(t, int64(15), snap.TodayTokens)
	assert.Zero(t, snap.TodayCost)
	assert.Zero(t, snap.MTDCost)
}

func TestOpenAI_Poll_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	a := provider.NewOpenAI(server.URL, nil)
	_, err := a.Poll(context.Background(), "sk-bad")
	require.Error(t, err)

	var pollErr *provider.PollError
	require.True(t, errors.As(err, &pollErr))
	assert.Equal(t, http.StatusUnauthorized, pollErr.StatusCode)
	assert.Contains(t, pollErr.Error(), "401")
}

func TestOpenAI_Poll_MalformedPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "not json")
	}))
	defer server.Close()

	a := provider.NewOpenAI(server.URL, nil)
	_, err := a.Poll(context.Background(), "sk-test")
	assert.Error(t, err)
}
