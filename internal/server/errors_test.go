package server

import (
	"errors"
	"testing"

	"github.com/localrivet/contentvault/internal/errortypes"
)

func TestErrorToResponse(t *testing.T) {
	// Test cases for different error types
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "validation error",
			err:      errortypes.ValidationError(errors.New("invalid input"), "validation failed"),
			wantCode: StatusCodeValidationError,
		},
		{
			name:     "permission error",
			err:      errortypes.PermissionError(errors.New("permission denied"), "unauthorized"),
			wantCode: StatusCodePermissionError,
		},
		{
			name:     "database error",
			err:      errortypes.DatabaseError(errors.New("db connection failed"), "database error"),
			wantCode: StatusCodeInternalError,
		},
		{
			name:     "network error",
			err:      errortypes.NetworkError(errors.New("timeout"), "network error"),
			wantCode: StatusCodeNetworkError,
		},
		{
			name:     "api error",
			err:      errortypes.APIError(errors.New("provider rejected request"), "embedding failed"),
			wantCode: StatusCodeExternalError,
		},
		{
			name:     "config error",
			err:      errortypes.ConfigError(errors.New("missing field"), "bad configuration"),
			wantCode: StatusCodeConfigError,
		},
		{
			name:     "unknown error",
			err:      errors.New("generic error"),
			wantCode: StatusCodeUnknownError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := errorToResponse(tt.err)

			if resp.Status != "error" {
				t.Errorf("errorToResponse() status = %v, want %v", resp.Status, "error")
			}
			if resp.Code != tt.wantCode {
				t.Errorf("errorToResponse() code = %v, want %v", resp.Code, tt.wantCode)
			}
			if resp.Message == "" {
				t.Error("errorToResponse() produced an empty message")
			}
		})
	}
}

func TestErrorToResponseCarriesFields(t *testing.T) {
	err := errortypes.DatabaseError(errors.New("insert failed"), "failed to store chunk embeddings").
		WithField("content_id", "content-1")

	resp := errorToResponse(err)

	if resp.Details == nil {
		t.Fatal("Expected details from the AppError fields")
	}
	if got, ok := resp.Details["content_id"]; !ok || got != "content-1" {
		t.Errorf("Expected content_id detail 'content-1', got %v", got)
	}
}
