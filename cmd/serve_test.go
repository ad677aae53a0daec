//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbdata-group/listing-cli/internal/artifact"
	"github.com/cbdata-group/listing-cli/internal/model"
	"github.com/cbdata-group/listing-cli/internal/store"
)

func newTestEnv(t *testing.T) *runnerEnv {
	t.Helper()

	artifacts, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)

	ledger, err := store.NewSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	require.NoError(t, ledger.Migrate(context.Background()))
	t.Cleanup(func() { ledger.Close() })

	return &runnerEnv{Artifacts: artifacts, Ledger: ledger}
}

func TestServeMux_Health(t *testing.T) {
	mux := newServeMux(context.Background(), newTestEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestServeMux_Runs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.Ledger.RecordStage(ctx, "Bank of England", model.StageSearch, model.StageStatusComplete, "8 topics, 21 hits")
	require.NoError(t, err)
	_, err = env.Ledger.RecordStage(ctx, "Banco de Mexico", model.StageSearch, model.StageStatusFailed, "timeout")
	require.NoError(t, err)

	mux := newServeMux(ctx, env)

	req := httptest.NewRequest(http.MethodGet, "/runs?status=failed", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var runs []model.BankRun
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "Banco de Mexico", runs[0].BankName)
}

func TestServeMux_ListingsMissingAggregate(t *testing.T) {
	mux := newServeMux(context.Background(), newTestEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/listings", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "collect")
}

func TestServeMux_Listings(t *testing.T) {
	env := newTestEnv(t)
	entries := []model.HighConfidenceEntry{
		{
			BankName:           "Bank of England",
			URL:                "https://www.bankofengland.co.uk/news",
			ListingProbability: 0.95,
			Topics:             []model.Topic{model.TopicNews},
		},
	}
	require.NoError(t, env.Artifacts.WriteAggregate(entries))

	mux := newServeMux(context.Background(), env)

	req := httptest.NewRequest(http.MethodGet, "/listings", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var got []model.HighConfidenceEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "https://www.bankofengland.co.uk/news", got[0].URL)
}

func TestServeMux_WebhookRun_InvalidJSON(t *testing.T) {
	mux := newServeMux(context.Background(), newTestEnv(t))

	req := httptest.NewRequest(http.MethodPost, "/webhook/run", bytes.NewReader([]byte("not json")))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid request body")
}

func TestServeMux_WebhookRun_MissingBankName(t *testing.T) {
	mux := newServeMux(context.Background(), newTestEnv(t))

	req := httptest.NewRequest(http.MethodPost, "/webhook/run", bytes.NewReader([]byte("{}")))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "bank_name is required")
}

func TestServeMux_WebhookRun_UnknownBank(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.Artifacts.WriteRoster([]model.Bank{
		{Name: "Bank of England", URL: "https://www.bankofengland.co.uk"},
	}))

	mux := newServeMux(context.Background(), env)

	body, _ := json.Marshal(map[string]string{"bank_name": "Bank of Narnia"})
	req := httptest.NewRequest(http.MethodPost, "/webhook/run", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
