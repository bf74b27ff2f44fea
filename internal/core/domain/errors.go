package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyDocument indicates a document with no bytes.
	ErrEmptyDocument = errors.New("document is empty")

	// ErrBlankQuestion indicates a question with no non-space characters.
	ErrBlankQuestion = errors.New("question is blank")

	// ErrNotConfigured indicates a required setting is missing.
	ErrNotConfigured = errors.New("not configured")

	// ErrRateLimited indicates the backend rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// UploadErrorKind distinguishes the two phases of an upload.
type UploadErrorKind string

// Upload error kinds.
const (
	UploadSessionCreationFailed UploadErrorKind = "session_creation_failed"
	UploadTransferFailed        UploadErrorKind = "transfer_failed"
)

// RetrievalErrorKind classifies retrieval failures.
type RetrievalErrorKind string

// Retrieval error kinds.
const (
	RetrievalQueryFailed RetrievalErrorKind = "query_failed"
)

// CompletionErrorKind classifies completion failures.
type CompletionErrorKind string

// Completion error kinds.
const (
	CompletionNoChoices     CompletionErrorKind = "no_choices"
	CompletionRequestFailed CompletionErrorKind = "request_failed"
)

// AuthError indicates a bearer token could not be acquired.
// It is fatal for the current pipeline run and never retried.
type AuthError struct {
	Scope string
	Err   error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("acquire token for %q: %v", e.Scope, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// UploadError indicates the document could not be stored.
type UploadError struct {
	Kind UploadErrorKind
	// StatusCode is the backend HTTP status, or 0 for transport failures.
	StatusCode int
	Err        error
}

func (e *UploadError) Error() string {
	return formatBackendError("upload", string(e.Kind), e.StatusCode, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// RetrievalError indicates the scoped search failed.
type RetrievalError struct {
	Kind       RetrievalErrorKind
	StatusCode int
	Err        error
}

func (e *RetrievalError) Error() string {
	return formatBackendError("retrieval", string(e.Kind), e.StatusCode, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// CompletionError indicates the language model did not produce an answer.
type CompletionError struct {
	Kind       CompletionErrorKind
	StatusCode int
	Err        error
}

func (e *CompletionError) Error() string {
	return formatBackendError("completion", string(e.Kind), e.StatusCode, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

func formatBackendError(op, kind string, status int, err error) string {
	msg := op + " " + kind
	if status != 0 {
		msg += fmt.Sprintf(" (status %d)", status)
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	return msg
}

// PipelineError is returned when a pipeline run ends in StateFailed.
// Stage is the state the run was in when it failed.
type PipelineError struct {
	RunID string
	Stage PipelineState
	Err   error

	// Interrupted is the caller's context error when the run ended because
	// the caller canceled or its deadline elapsed. It is nil when a backend
	// failed on its own, including a backend request timing out.
	Interrupted error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s failed while %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() []error {
	if e.Interrupted == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Interrupted}
}

// IsTransientStatus reports whether an HTTP status is worth retrying.
// Only 429 and 5xx qualify; other 4xx responses are client errors.
func IsTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// ErrorInfo is the caller-facing description of a failure.
// It never contains backend payloads.
type ErrorInfo struct {
	Category string `json:"error"`
	Kind     string `json:"kind,omitempty"`
	Message  string `json:"message"`
}

// DescribeError derives the caller-facing description from an error chain.
//
// A run interrupted by its caller is described by the caller's context
// error. Otherwise the typed stage error wins over any context error in its
// cause, so a backend request that hit its own timeout is reported as that
// backend's failure.
func DescribeError(err error) ErrorInfo {
	var pipelineErr *PipelineError
	if errors.As(err, &pipelineErr) && pipelineErr.Interrupted != nil {
		if info, ok := describeContextError(pipelineErr.Interrupted); ok {
			return info
		}
	}

	var (
		authErr       *AuthError
		uploadErr     *UploadError
		retrievalErr  *RetrievalError
		completionErr *CompletionError
		info          ErrorInfo
	)
	switch {
	case errors.As(err, &authErr):
		info = ErrorInfo{Category: "auth_error", Message: "could not authenticate with the storage backend"}
	case errors.As(err, &uploadErr):
		msg := "could not create an upload session"
		if uploadErr.Kind == UploadTransferFailed {
			msg = "could not transfer the document"
		}
		info = ErrorInfo{Category: "upload_error", Kind: string(uploadErr.Kind), Message: msg}
	case errors.As(err, &retrievalErr):
		info = ErrorInfo{
			Category: "retrieval_error",
			Kind:     string(retrievalErr.Kind),
			Message:  "could not retrieve passages for the document",
		}
	case errors.As(err, &completionErr):
		msg := "the language model request failed"
		if completionErr.Kind == CompletionNoChoices {
			msg = "the language model returned no answer"
		}
		info = ErrorInfo{Category: "completion_error", Kind: string(completionErr.Kind), Message: msg}
	default:
		if ctxInfo, ok := describeContextError(err); ok {
			return ctxInfo
		}
		if errors.Is(err, ErrEmptyDocument) || errors.Is(err, ErrBlankQuestion) || errors.Is(err, ErrInvalidInput) {
			return ErrorInfo{Category: "invalid_request", Message: err.Error()}
		}
		return ErrorInfo{Category: "internal_error", Message: "the request could not be completed"}
	}

	if errors.Is(err, ErrRateLimited) {
		info.Message += " (rate limited)"
	}
	return info
}

func describeContextError(err error) (ErrorInfo, bool) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorInfo{Category: "timeout", Message: "the request deadline elapsed"}, true
	case errors.Is(err, context.Canceled):
		return ErrorInfo{Category: "canceled", Message: "the request was canceled"}, true
	default:
		return ErrorInfo{}, false
	}
}
