package mcp

import (
	"github.com/mail2shivb/fileupload/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ask runs the question-answering pipeline.
	Ask driving.AskService

	// Settings exposes the active configuration. Optional.
	Settings driving.SettingsService

	// MaxFileBytes caps the size of files the ask tool reads.
	// Zero selects domain.DefaultMaxUploadBytes.
	MaxFileBytes int64
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	return nil
}
