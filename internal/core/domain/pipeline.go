package domain

// PipelineState is a state of the ask pipeline.
type PipelineState string

// Pipeline states. Failed is reachable from Uploading, Retrieving and Completing.
const (
	StateUploading  PipelineState = "uploading"
	StateRetrieving PipelineState = "retrieving"
	StateCompleting PipelineState = "completing"
	StateDone       PipelineState = "done"
	StateFailed     PipelineState = "failed"
)

// String returns the string representation.
func (s PipelineState) String() string {
	return string(s)
}

// IsTerminal returns true for Done and Failed.
func (s PipelineState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// CanTransition reports whether the pipeline may move from s to next.
func (s PipelineState) CanTransition(next PipelineState) bool {
	switch s {
	case StateUploading:
		return next == StateRetrieving || next == StateFailed
	case StateRetrieving:
		return next == StateCompleting || next == StateFailed
	case StateCompleting:
		return next == StateDone || next == StateFailed
	default:
		return false
	}
}
