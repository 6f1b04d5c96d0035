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

func TestAnthropic_Poll(t *testing.T) {
	now := time.Now().UTC()
	earlier := now.AddDate(0, 0, -3)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.NotEmpty(t, r.URL.Query().Get("start_date"))
		assert.NotEmpty(t, r.URL.Query().Get("end_date"))

		switch r.URL.Path {
		case "/v1/organizations/usage_report/messages":
			fmt.Fprintf(w, `{"usage": [
				{"timestamp": %q, "input_tokens": 300, "output_tokens": 200},
				{"timestamp": %q, "input_tokens": 1000, "output_tokens": 500}
			]}`, now.Format(time.RFC3339), earlier.Format(time.RFC3339))
		case "/v1/organizations/cost_report":
			fmt.Fprintf(w, `{"costs": [
				{"timestamp": %q, "amount": 2.50},
				{"timestamp": %q, "amount": 7.50}
			]}`, now.Format(time.RFC3339), earlier.Format(time.RFC3339))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	a := provider.NewAnthropic(server.URL, nil)
	snap, err := a.Poll(context.Background(), "key-test")
	require.NoError(t, err)

	assert.Equal(t, model.ProviderAnthropic, snap.ProviderType)
	assert.Equal(t, int64(500), snap.TodayTokens)
	assert.Equal(t, int64(2000), snap.MTDTokens)
	assert.InDelta(t, 2.50, snap.TodayCost, 0.001)
	assert.InDelta(t, 10.00, snap.MTDCost, 0.001)
}

func TestAnthropic_Poll_UsageError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	a := provider.NewAnthropic(server.URL, nil)
	_, err := a.Poll(context.Background(), "key-bad")
	require.Error(t, err)

	var pollErr *provider.PollError
	require.True(t, errors.As(err, &pollErr))
	assert.Equal(t, http.StatusForbidden, pollErr.StatusCode)
}

func TestAnthropic_Poll_CostReportFailure(t *testing.T) {
	// A failing dependent cost call must fail the poll rather than return
	// a snapshot with zeroed cost figures.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/organizations/usage_report/messages" {
			fmt.Fprint(w, `{"usage": []}`)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	a := provider.NewAnthropic(server.URL, nil)
	_, err := a.Poll(context.Background(), "key-test")
	require.Error(t, err)

	var pollErr *provider.PollError
	require.True(t, errors.As(err, &pollErr))
	assert.Equal(t, http.StatusBadGateway, pollErr.StatusCode)
}
