package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yapay-ai/spendwatch/internal/server"
	"github.com/yapay-ai/spendwatch/pkg/model"
	"github.com/yapay-ai/spendwatch/pkg/provider"
	"github.com/yapay-ai/spendwatch/pkg/store"
)

type stubAdapter struct {
	name model.ProviderType
	snap *model.UsageSnapshot
	err  error
}

func (s *stubAdapter) Name() model.ProviderType { return s.name }

func (s *stubAdapter) Poll(_ context.Context, _ string) (*model.UsageSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

func newTestServer(t *testing.T, adapters ...provider.Adapter) (*server.Server, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	registry := provider.NewRegistry()
	for _, a := range adapters {
		require.NoError(t, registry.Register(a))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv := server.NewServer(st, registry, prometheus.NewRegistry(), "test-token", 5*time.Second, logger)
	return srv, st
}

func doRequest(t *testing.T, srv *server.Server, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_Poll_Unauthorized(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/poll/openai", "", `{"credential":"sk-1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/poll/openai", "wrong-token", `{"credential":"sk-1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Poll_UnknownProvider(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/poll/gemini", "test-token", `{"credential":"sk-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown provider")
}

func TestServer_Poll_MissingCredential(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{name: model.ProviderOpenAI})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/poll/openai", "test-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "credential required")
}

func TestServer_Poll_Success(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{
		name: model.ProviderOpenAI,
		snap: &model.UsageSnapshot{ProviderType: model.ProviderOpenAI, MTDCost: 12.5, MTDTokens: 400},
	})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/poll/openai", "test-token", `{"credential":"sk-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var snap model.UsageSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, model.ProviderOpenAI, snap.ProviderType)
	assert.Equal(t, 12.5, snap.MTDCost)
	assert.Equal(t, int64(400), snap.MTDTokens)
}

func TestServer_Poll_AdapterFailure(t *testing.T) {
	srv, _ := newTestServer(t, &stubAdapter{
		name: model.ProviderAnthropic,
		err: &provider.PollError{
			Provider:   model.ProviderAnthropic,
			StatusCode: http.StatusForbidden,
			Err:        errors.New("report request failed"),
		},
	})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/poll/anthropic", "test-token", `{"credential":"key-1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "403")
}

func TestServer_Usage_Empty(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/usage/u1", "test-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}

func TestServer_Usage(t *testing.T) {
	srv, st := newTestServer(t)

	require.NoError(t, st.PutSnapshot(context.Background(), "u1", "p1", &model.UsageSnapshot{
		ProviderType: model.ProviderOpenRouter,
		MTDCost:      7.5,
	}))

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/usage/u1", "test-token", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snaps map[string]model.UsageSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, 7.5, snaps["p1"].MTDCost)
}
