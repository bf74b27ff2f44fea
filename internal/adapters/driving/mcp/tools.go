package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	FilePath string `json:"file_path" jsonschema:"absolute path of the local document to upload"`
	Question string `json:"question" jsonschema:"the question to answer from the document"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Text    string         `json:"text"`
	ItemID  string         `json:"item_id"`
	Sources []SourceOutput `json:"sources"`
}

// SourceOutput is the provenance of one grounding passage.
type SourceOutput struct {
	URL         string `json:"url"`
	DriveItemID string `json:"drive_item_id"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask",
		Description: "Upload a local document and answer a question using only " +
			"passages retrieved from that document",
	}, s.handleAsk)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	data, err := s.readFile(input.FilePath)
	if err != nil {
		return nil, AskOutput{}, err
	}

	answer, err := s.ports.Ask.IngestAndAsk(ctx, filepath.Base(input.FilePath), data, input.Question)
	if err != nil {
		// Only the derived description reaches the client.
		info := domain.DescribeError(err)
		return nil, AskOutput{}, fmt.Errorf("%s: %s", info.Category, info.Message)
	}

	output := AskOutput{
		Text:    answer.Text,
		ItemID:  answer.ItemID,
		Sources: make([]SourceOutput, len(answer.Sources)),
	}
	for i, src := range answer.Sources {
		output.Sources[i] = SourceOutput{URL: src.URL, DriveItemID: src.DriveItemID}
	}

	return nil, output, nil
}

// readFile reads at most MaxFileBytes from path.
func (s *Server) readFile(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file_path is required", domain.ErrInvalidInput)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: file not found: %s", domain.ErrInvalidInput, path)
		}
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, s.ports.MaxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	if int64(len(data)) > s.ports.MaxFileBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrFileTooLarge, s.ports.MaxFileBytes)
	}
	return data, nil
}
