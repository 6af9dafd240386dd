package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessageAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("database is locked")
	err := NewStorageError("replace campaigns", cause)

	assert.Equal(t, "[STORAGE] replace campaigns: database is locked", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[NOT_FOUND] campaign 42 not found", NewNotFoundError("campaign 42").Error())

	var target *AppError
	require.True(t, stderrors.As(fmt.Errorf("outer: %w", err), &target))
	assert.Equal(t, ErrTypeStorage, target.Type)
}

func TestAppErrorWithContext(t *testing.T) {
	err := NewAppValidationError("bad filter").WithContext("field", "quarters").WithContext("value", "Q5")
	assert.Equal(t, map[string]interface{}{"field": "quarters", "value": "Q5"}, err.Context)
}

func TestAPIErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		err    *APIError
		status int
		code   string
	}{
		{"invalid request", InvalidRequestWithError(fmt.Errorf("unexpected EOF")), http.StatusBadRequest, "INVALID_REQUEST"},
		{"validation", NewValidationErrors([]ValidationError{{Field: "limit", Message: "must be >= 1"}}), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"filesystem", FileSystemError("write master", fmt.Errorf("read-only")), http.StatusInternalServerError, "FILESYSTEM_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.Equal(t, tt.code, tt.err.ErrorCode)
			assert.NotNil(t, tt.err.Details)
		})
	}
}

func TestAPIErrorRender(t *testing.T) {
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/estimator/campaigns", nil)
	require.NoError(t, render.Render(rec, r, ErrRateLimitExceeded))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var body APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.ErrorCode)
	assert.Equal(t, "Rate limit exceeded", body.Message)
}
