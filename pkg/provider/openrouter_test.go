package provider_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/spendwatch/pkg/model"
	"github.com/yapay-ai/spendwatch/pkg/provider"
)

func TestOpenRouter_Poll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer or-test", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/api/v1/key":
			fmt.Fprint(w, `{"data": {"label": "default", "limit_remaining": 42.5}}`)
		case "/api/v1/credits":
			fmt.Fprint(w, `{"used_credits": 17.25, "remaining_credits": 82.75}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	a := provider.NewOpenRouter(server.URL, nil)
	snap, err := a.Poll(context.Background(), "or-test")
	require.NoError(t, err)

	// Credits-based provider: no itemized data, explicit zeros.
	assert.Equal(t, model.ProviderOpenRouter, snap.ProviderType)
	assert.Zero(t, snap.TodayTokens)
	assert.Zero(t, snap.TodayCost)
	assert.Zero(t, snap.MTDTokens)
	assert.InDelta(t, 17.25, snap.MTDCost, 0.001)
	require.NotNil(t, snap.Balance)
	assert.InDelta(t, 42.5, *snap.Balance, 0.001)
	require.NotNil(t, snap.Credits)
	assert.InDelta(t, 82.75, *snap.Credits, 0.001)
}

func TestOpenRouter_Poll_NullBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/key" {
			fmt.Fprint(w, `{"data": {"limit_remaining": null}}`)
			return
		}
		fmt.Fprint(w, `{"used_credits": 0}`)
	}))
	defer server.Close()

	a := provider.NewOpenRouter(server.URL, nil)
	snap, err := a.Poll(context.Background(), "or-test")
	require.NoError(t, err)

	assert.Nil(t, snap.Balance)
	assert.Nil(t, snap.Credits)
	assert.Zero(t, snap.MTDCost)
}

func TestOpenRouter_Poll_KeyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	a := provider.NewOpenRouter(server.URL, nil)
	_, err := a.Poll(context.Background(), "or-test")
	require.Error(t, err)

	var pollErr *provider.PollError
	require.True(t, errors.As(err, &pollErr))
	assert.Equal(t, http.StatusTooManyRequests, pollErr.StatusCode)
}

func TestOpenRouter_Poll_CreditsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/key" {
			fmt.Fprint(w, `{"data": {}}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	a := provider.NewOpenRouter(server.URL, nil)
	_, err := a.Poll(context.Background(), "or-test")
	assert.Error(t, err)
}
