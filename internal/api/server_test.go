package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadbridge/pkg/models"
)

func doRequest(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer(0, nil)
	rec := doRequest(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerMigrationReturnsReport(t *testing.T) {
	s := NewServer(0, func(ctx context.Context) models.Report {
		return models.Report{RunID: "run-1", Success: true, Stats: models.Stats{RoomsCreated: 2}}
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/migrations")
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 2, report.Stats.RoomsCreated)
}

func TestTriggerMigrationFailureIsServerError(t *testing.T) {
	s := NewServer(0, func(ctx context.Context) models.Report {
		return models.Report{RunID: "run-2", Success: false, Error: "listing destination rooms: boom"}
	})

	rec := doRequest(s, http.MethodPost, "/api/v1/migrations")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLatestMigration(t *testing.T) {
	s := NewServer(0, func(ctx context.Context) models.Report {
		return models.Report{RunID: "run-3", Success: true}
	})

	rec := doRequest(s, http.MethodGet, "/api/v1/migrations/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doRequest(s, http.MethodPost, "/api/v1/migrations")

	rec = doRequest(s, http.MethodGet, "/api/v1/migrations/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "run-3", report.RunID)
}
