package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrEmptyDocument", ErrEmptyDocument},
		{"ErrBlankQuestion", ErrBlankQuestion},
		{"ErrNotConfigured", ErrNotConfigured},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestAuthError_Unwrap(t *testing.T) {
	cause := errors.New("invalid_client")
	err := &AuthError{Scope: DefaultGraphScope, Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "invalid_client")
	assert.Contains(t, err.Error(), DefaultGraphScope)
}

func TestUploadError_Message(t *testing.T) {
	err := &UploadError{Kind: UploadSessionCreationFailed, StatusCode: http.StatusForbidden, Err: errors.New("denied")}

	assert.Equal(t, "upload session_creation_failed (status 403): denied", err.Error())
}

func TestUploadError_TransportFailureHasNoStatus(t *testing.T) {
	err := &UploadError{Kind: UploadTransferFailed, Err: errors.New("connection reset")}

	assert.Equal(t, "upload transfer_failed: connection reset", err.Error())
}

func TestPipelineError_UnwrapsToTypedError(t *testing.T) {
	inner := &RetrievalError{Kind: RetrievalQueryFailed, StatusCode: http.StatusBadGateway}
	err := fmt.Errorf("ask: %w", &PipelineError{RunID: "run-1", Stage: StateRetrieving, Err: inner})

	var retrievalErr *RetrievalError
	assert.True(t, errors.As(err, &retrievalErr))
	assert.Equal(t, RetrievalQueryFailed, retrievalErr.Kind)

	var pipelineErr *PipelineError
	assert.True(t, errors.As(err, &pipelineErr))
	assert.Equal(t, StateRetrieving, pipelineErr.Stage)
}

// backendTimeout stands in for the error net/http reports when
// http.Client.Timeout elapses; it matches context.DeadlineExceeded.
type backendTimeout struct{}

func (backendTimeout) Error() string { return "Client.Timeout exceeded while awaiting headers" }
func (backendTimeout) Timeout() bool { return true }
func (backendTimeout) Is(target error) bool { return target == context.DeadlineExceeded }

func TestDescribeError_BackendTimeoutIsStageFailure(t *testing.T) {
	err := &PipelineError{
		RunID: "r",
		Stage: StateCompleting,
		Err:   &CompletionError{Kind: CompletionRequestFailed, Err: backendTimeout{}},
	}
	require.ErrorIs(t, err, context.DeadlineExceeded)

	info := DescribeError(err)

	assert.Equal(t, "completion_error", info.Category)
	assert.Equal(t, "request_failed", info.Kind)
}

func TestDescribeError_InterruptedRunUsesCallerContext(t *testing.T) {
	tests := []struct {
		name        string
		interrupted error
		category    string
	}{
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"canceled", context.Canceled, "canceled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &PipelineError{
				Stage:       StateUploading,
				Err:         &UploadError{Kind: UploadTransferFailed, Err: tt.interrupted},
				Interrupted: tt.interrupted,
			}

			info := DescribeError(err)

			assert.Equal(t, tt.category, info.Category)
			assert.Empty(t, info.Kind)
			assert.ErrorIs(t, err, tt.interrupted)
		})
	}
}

func TestDescribeError_RateLimited(t *testing.T) {
	err := &RetrievalError{Kind: RetrievalQueryFailed, Err: fmt.Errorf("query: %w", ErrRateLimited)}

	info := DescribeError(err)

	assert.Equal(t, "retrieval_error", info.Category)
	assert.Contains(t, info.Message, "rate limited")
}

func TestIsTransientStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusConflict, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransientStatus(tt.status))
		})
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category string
		kind     string
	}{
		{"auth", &AuthError{Scope: "s", Err: errors.New("x")}, "auth_error", ""},
		{"session", &UploadError{Kind: UploadSessionCreationFailed}, "upload_error", "session_creation_failed"},
		{"transfer", &UploadError{Kind: UploadTransferFailed}, "upload_error", "transfer_failed"},
		{"retrieval", &RetrievalError{Kind: RetrievalQueryFailed}, "retrieval_error", "query_failed"},
		{"no choices", &CompletionError{Kind: CompletionNoChoices}, "completion_error", "no_choices"},
		{"request failed", &CompletionError{Kind: CompletionRequestFailed}, "completion_error", "request_failed"},
		{"blank question", ErrBlankQuestion, "invalid_request", ""},
		{"deadline", &PipelineError{Err: context.DeadlineExceeded}, "timeout", ""},
		{"canceled", context.Canceled, "canceled", ""},
		{"unknown", errors.New("boom"), "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := DescribeError(&PipelineError{RunID: "r", Stage: StateUploading, Err: tt.err})
			assert.Equal(t, tt.category, info.Category)
			assert.Equal(t, tt.kind, info.Kind)
			assert.NotEmpty(t, info.Message)
		})
	}
}

func TestDescribeError_DoesNotLeakBackendPayload(t *testing.T) {
	err := &UploadError{
		Kind:       UploadSessionCreationFailed,
		StatusCode: http.StatusInternalServerError,
		Err:        errors.New(`{"error":{"code":"generalException","innerError":{"request-id":"secret"}}}`),
	}

	info := DescribeError(err)

	assert.NotContains(t, info.Message, "secret")
	assert.NotContains(t, info.Message, "generalException")
}
