package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mail2shivb/fileupload/internal/core/ports/driving"
	"github.com/mail2shivb/fileupload/internal/core/services"
)

// Handler serves the ask API.
type Handler struct {
	ask            driving.AskService
	maxUploadBytes int64
	requestTimeout time.Duration
	log            *slog.Logger
}

// NewHandler creates a handler. Non-positive limits disable the
// corresponding check.
func NewHandler(ask driving.AskService, maxUploadBytes int64, requestTimeout time.Duration, log *slog.Logger) *Handler {
	return &Handler{
		ask:            ask,
		maxUploadBytes: maxUploadBytes,
		requestTimeout: requestTimeout,
		log:            log,
	}
}

// Register mounts the handler's routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	api := r.Group("/api")
	api.POST("/ask", h.Ask)
}

// Health is the handler for GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Ask is the handler for POST /api/ask.
// It reads the uploaded file and question, then runs one pipeline under the
// request deadline.
func (h *Handler) Ask(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	header, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			tooLarge(c, h.maxUploadBytes)
			return
		}
		invalidRequest(c, "multipart part %q is required", "file")
		return
	}

	question := c.PostForm("question")
	if strings.TrimSpace(question) == "" {
		invalidRequest(c, "field %q must not be blank", "question")
		return
	}

	f, err := header.Open()
	if err != nil {
		invalidRequest(c, "could not read uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		invalidRequest(c, "could not read uploaded file")
		return
	}

	ctx := c.Request.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}
	if id := RequestID(c); id != "" {
		ctx = services.ContextWithRunID(ctx, id)
	}

	answer, err := h.ask.IngestAndAsk(ctx, filepath.Base(header.Filename), data, question)
	if err != nil {
		h.log.Warn("ask failed", slog.String("request_id", RequestID(c)), slog.Any("error", err))
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, AskResponse{Text: answer.Text})
}
