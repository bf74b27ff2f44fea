package httpapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	mu       sync.Mutex
	answer   *domain.Answer
	err      error
	panicMsg string
	calls    int
	ctx      context.Context
	fileName string
	data     []byte
	question string
}

func (m *mockAskService) IngestAndAsk(
	ctx context.Context,
	fileName string,
	data []byte,
	question string,
) (*domain.Answer, error) {
	m.mu.Lock()
	m.calls++
	m.ctx = ctx
	m.fileName = fileName
	m.data = data
	m.question = question
	m.mu.Unlock()

	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	return m.answer, m.err
}

func (m *mockAskService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// newTestServer builds a server in gin test mode.
func newTestServer(t *testing.T, ask *mockAskService, maxBytes int64) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv, err := NewServer(Config{
		Addr:           ":0",
		Ask:            ask,
		MaxUploadBytes: maxBytes,
		RequestTimeout: time.Minute,
	})
	require.NoError(t, err)
	return srv
}

// askRequest builds a multipart POST /api/ask request. An empty fileName
// omits the file part.
func askRequest(t *testing.T, fileName string, data []byte, question string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.WriteField("question", question))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ask", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
