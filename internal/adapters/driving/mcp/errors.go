// Package mcp provides an MCP (Model Context Protocol) server adapter for fileupload.
// It lets AI assistants ask questions about local documents through the
// upload, retrieval and completion pipeline.
package mcp

import "errors"

// ErrMissingAskService is returned when the ask service is not provided.
var ErrMissingAskService = errors.New("mcp: ask service is required")

// ErrFileTooLarge is returned when a tool input names a file above the size limit.
var ErrFileTooLarge = errors.New("mcp: file exceeds the upload limit")
