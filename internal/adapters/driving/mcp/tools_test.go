package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the answer", func(t *testing.T) {
		mockAsk := &mockAskService{
			answer: &domain.Answer{
				Text:   "Thirty days.",
				ItemID: "abc123",
				Sources: []domain.ChunkSource{
					{URL: "https://contoso/spec.pdf", DriveItemID: "abc123"},
				},
			},
		}
		server, err := NewServer(&Ports{Ask: mockAsk})
		require.NoError(t, err)
		path := writeTempFile(t, "spec.pdf", []byte("0123456789"))

		_, output, err := server.handleAsk(ctx, nil, AskInput{FilePath: path, Question: "Refund window?"})

		require.NoError(t, err)
		assert.Equal(t, "Thirty days.", output.Text)
		assert.Equal(t, "abc123", output.ItemID)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "https://contoso/spec.pdf", output.Sources[0].URL)

		assert.Equal(t, "spec.pdf", mockAsk.fileName)
		assert.Equal(t, []byte("0123456789"), mockAsk.data)
		assert.Equal(t, "Refund window?", mockAsk.question)
	})

	t.Run("missing file", func(t *testing.T) {
		server, err := NewServer(&Ports{Ask: &mockAskService{}})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{FilePath: "/does/not/exist.pdf", Question: "q"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("empty path", func(t *testing.T) {
		server, err := NewServer(&Ports{Ask: &mockAskService{}})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Question: "q"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("file over the limit", func(t *testing.T) {
		mockAsk := &mockAskService{}
		server, err := NewServer(&Ports{Ask: mockAsk, MaxFileBytes: 4})
		require.NoError(t, err)
		path := writeTempFile(t, "big.bin", []byte("0123456789"))

		_, _, err = server.handleAsk(ctx, nil, AskInput{FilePath: path, Question: "q"})

		assert.ErrorIs(t, err, ErrFileTooLarge)
		assert.Nil(t, mockAsk.data, "pipeline not started")
	})

	t.Run("pipeline failure hides backend detail", func(t *testing.T) {
		mockAsk := &mockAskService{
			err: &domain.PipelineError{
				RunID: "r1",
				Stage: domain.StateRetrieving,
				Err: &domain.RetrievalError{
					Kind: domain.RetrievalQueryFailed,
					Err:  errors.New(`{"internal":"stack trace"}`),
				},
			},
		}
		server, err := NewServer(&Ports{Ask: mockAsk})
		require.NoError(t, err)
		path := writeTempFile(t, "spec.pdf", []byte("x"))

		_, _, err = server.handleAsk(ctx, nil, AskInput{FilePath: path, Question: "q"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "retrieval_error")
		assert.NotContains(t, err.Error(), "stack trace")
	})
}
