package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/errors"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEnvelope(t *testing.T) {
	tests := []struct {
		name       string
		envelope   *errors.ErrorEnvelope
		statusCode int
		wantCode   string
		wantMsg    string
		wantID     string
	}{
		{
			name:       "basic error",
			envelope:   errors.NewErrorEnvelope("TEST_ERROR", "test message"),
			statusCode: http.StatusBadRequest,
			wantCode:   "TEST_ERROR",
			wantMsg:    "test message",
		},
		{
			name:       "internal error",
			envelope:   errors.NewErrorEnvelope(CodeInternal, "something went wrong"),
			statusCode: http.StatusInternalServerError,
			wantCode:   CodeInternal,
			wantMsg:    "something went wrong",
		},
		{
			name: "error with correlation ID",
			envelope: errors.NewErrorEnvelope(CodeNotFound, "resource not found").
				WithCorrelationID("corr-123"),
			statusCode: http.StatusNotFound,
			wantCode:   CodeNotFound,
			wantMsg:    "resource not found",
			wantID:     "corr-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			WriteEnvelope(rec, tt.envelope, tt.statusCode)

			assert.Equal(t, tt.statusCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var response ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.Equal(t, tt.wantCode, response.Error.Code)
			assert.Equal(t, tt.wantMsg, response.Error.Message)
			assert.Equal(t, tt.wantID, response.Error.RequestID)
		})
	}
}

func TestNewEnvelope_CorrelatesWithChiRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req = req.WithContext(context.WithValue(req.Context(), chimw.RequestIDKey, "host/abc-000001"))

	envelope := NewEnvelope(req, CodeServiceUnavailable, "down", map[string]any{"checks": map[string]string{"store": "unhealthy"}})
	assert.Equal(t, "host/abc-000001", envelope.CorrelationID)
	assert.Equal(t, CodeServiceUnavailable, envelope.Code)
	assert.Contains(t, envelope.Context, "checks")
}

func TestNewEnvelope_HeaderFallbackAndNoDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-9")

	envelope := NewEnvelope(req, CodeNotFound, "missing", nil)
	assert.Equal(t, "req-9", envelope.CorrelationID)
	assert.Empty(t, envelope.Context)

	assert.Empty(t, NewEnvelope(nil, CodeNotFound, "missing", nil).CorrelationID)
}

func TestWriteError_DetailsFromContext(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), http.StatusBadRequest,
		"VALIDATION_ERROR", "invalid input", map[string]any{"field": "port", "value": "-1"})

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "port", response.Error.Details["field"])
	assert.Equal(t, "-1", response.Error.Details["value"])
}
