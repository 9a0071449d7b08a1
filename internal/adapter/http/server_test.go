package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/analog-forecast/internal/adapter/http"
	"github.com/couchcryptid/analog-forecast/internal/domain"
	"github.com/couchcryptid/analog-forecast/internal/forecast"
)

// --- mocks ---

type mockForecaster struct {
	mu        sync.Mutex
	horizon   string
	variables []string
	result    domain.ForecastResult
	err       error
	health    forecast.HealthStatus
}

func (m *mockForecaster) ForecastWithUncertainty(_ context.Context, horizon string, variables []string) (domain.ForecastResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.horizon = horizon
	m.variables = variables
	if m.err != nil {
		return domain.ForecastResult{}, m.err
	}
	return m.result, nil
}

func (m *mockForecaster) Health() forecast.HealthStatus { return m.health }

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

// --- tests ---

func TestForecastEndpointReturnsResult(t *testing.T) {
	fc := &mockForecaster{result: domain.ForecastResult{
		Horizon:       domain.Horizon24h,
		IssuedAt:      time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC),
		CorrelationID: "corr-http-test",
		Variables: map[string]domain.ForecastVariableResult{
			"temperature_c": {Value: 15, P05: 12, P95: 18, Confidence: 0.8, Unit: "°C", Available: true},
		},
		Risk: domain.RiskAssessment{Level: domain.RiskMinimal},
	}}
	srv := newTestServer(fc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/forecast?horizon=24h&variables=temperature_c,%20pressure_hpa", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body domain.ForecastResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "corr-http-test", body.CorrelationID)
	assert.Equal(t, domain.Horizon24h, body.Horizon)
	require.Contains(t, body.Variables, "temperature_c")
	assert.InDelta(t, 15.0, body.Variables["temperature_c"].Value, 1e-9)

	assert.Equal(t, "24h", fc.horizon)
	assert.Equal(t, []string{"temperature_c", "pressure_hpa"}, fc.variables)
}

func TestForecastEndpointRejectsInvalidRequests(t *testing.T) {
	fc := &mockForecaster{err: fmt.Errorf("%w: unsupported horizon %q", domain.ErrInvalidRequest, "72h")}
	srv := newTestServer(fc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/forecast?horizon=72h&variables=temperature_c", nil)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "invalid request")
}

func TestForecastEndpointMissingParams(t *testing.T) {
	fc := &mockForecaster{err: fmt.Errorf("%w: unsupported horizon %q", domain.ErrInvalidRequest, "")}
	srv := newTestServer(fc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/forecast", nil)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "", fc.horizon)
	assert.Empty(t, fc.variables)
}

func TestHealthzReportsServiceCounters(t *testing.T) {
	fc := &mockForecaster{health: forecast.HealthStatus{
		Degraded:      true,
		RequestsTotal: 42,
		ErrorsTotal:   3,
		AvgSearchMS:   12.5,
	}}
	srv := newTestServer(fc, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body forecast.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Degraded)
	assert.Equal(t, uint64(42), body.RequestsTotal)
	assert.Equal(t, uint64(3), body.ErrorsTotal)
	assert.InDelta(t, 12.5, body.AvgSearchMS, 1e-9)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&mockForecaster{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockForecaster{}, fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&mockForecaster{}, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- helpers ---

func newTestServer(fc httpadapter.Forecaster, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", fc, &mockReadiness{err: readyErr}, slog.Default())
}
