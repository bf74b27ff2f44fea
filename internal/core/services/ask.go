package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mail2shivb/fileupload/internal/core/domain"
	"github.com/mail2shivb/fileupload/internal/core/ports/driven"
	"github.com/mail2shivb/fileupload/internal/core/ports/driving"
	"github.com/mail2shivb/fileupload/internal/logger"
)

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// StateObserver is notified of every pipeline state transition.
// It is called synchronously on the pipeline's goroutine.
type StateObserver func(runID string, from, to domain.PipelineState)

type runIDKey struct{}

// ContextWithRunID makes IngestAndAsk use id as the run id.
// The HTTP adapter uses it to correlate runs with X-Request-ID.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run id stored by ContextWithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// AskService runs the upload → retrieve → complete pipeline.
// Runs are independent; the service holds no per-run state and is safe for
// concurrent use.
type AskService struct {
	uploader  driven.Uploader
	retriever driven.Retriever
	completer driven.CompletionService
	topN      int
	observer  StateObserver
	log       *slog.Logger
}

// NewAskService creates a new ask service. A non-positive topN selects
// domain.DefaultTopN.
func NewAskService(
	uploader driven.Uploader,
	retriever driven.Retriever,
	completer driven.CompletionService,
	topN int,
) *AskService {
	if topN <= 0 {
		topN = domain.DefaultTopN
	}
	return &AskService{
		uploader:  uploader,
		retriever: retriever,
		completer: completer,
		topN:      topN,
		log:       logger.For("pipeline"),
	}
}

// SetObserver sets the state observer. Nil disables notifications.
func (s *AskService) SetObserver(o StateObserver) {
	s.observer = o
}

// TopN returns the number of passages requested per question.
func (s *AskService) TopN() int {
	return s.topN
}

// run tracks the state of one pipeline execution.
type run struct {
	id    string
	state domain.PipelineState
	svc   *AskService
	log   *slog.Logger
}

func (r *run) transition(to domain.PipelineState) {
	if !r.state.CanTransition(to) {
		// Programming error; keep the current state.
		r.log.Error("illegal pipeline transition",
			slog.String("from", r.state.String()),
			slog.String("to", to.String()))
		return
	}
	from := r.state
	r.state = to
	r.log.Debug("pipeline transition", slog.String("from", from.String()), slog.String("to", to.String()))
	if r.svc.observer != nil {
		r.svc.observer(r.id, from, to)
	}
}

// fail moves the run to Failed and wraps err with the stage it failed in.
// A done ctx marks the run as interrupted by its caller.
func (r *run) fail(ctx context.Context, err error) error {
	stage := r.state
	r.transition(domain.StateFailed)
	r.log.Warn("pipeline failed", slog.String("stage", stage.String()), slog.Any("error", err))
	return &domain.PipelineError{RunID: r.id, Stage: stage, Err: err, Interrupted: ctx.Err()}
}

// IngestAndAsk uploads the document, retrieves passages scoped to the
// uploaded item and answers question from them.
//
// Stages run strictly in order. A failure or a done context ends the run in
// StateFailed without calling later stages. Nothing is rolled back: an
// uploaded document stays in the drive when retrieval or completion fail.
func (s *AskService) IngestAndAsk(ctx context.Context, fileName string, data []byte, question string) (*domain.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrBlankQuestion
	}
	if len(data) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrInvalidInput)
	}

	runID, ok := RunIDFromContext(ctx)
	if !ok {
		runID = uuid.New().String()
	}
	r := &run{
		id:    runID,
		state: domain.StateUploading,
		svc:   s,
		log:   s.log.With(slog.String("run_id", runID)),
	}
	start := time.Now()

	logger.Section("Ask Pipeline")
	logger.Debug("Run %s: file=%q bytes=%d topN=%d", runID, fileName, len(data), s.topN)

	// Uploading
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, err)
	}
	item, err := s.uploader.Upload(ctx, domain.Document{Name: fileName, Data: data})
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.log.Info("document uploaded", slog.String("item_id", item.ID))
	r.transition(domain.StateRetrieving)

	// Retrieving
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, err)
	}
	query := domain.RetrievalQuery{
		Question:    question,
		ScopeFilter: domain.ScopeFilterForItem(item.ID),
		TopN:        s.topN,
	}
	chunks, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.log.Info("passages retrieved", slog.Int("chunks", len(chunks)))
	r.transition(domain.StateCompleting)

	// Completing
	if err := ctx.Err(); err != nil {
		return nil, r.fail(ctx, err)
	}
	text, err := s.completer.Complete(ctx, chunks, question)
	if err != nil {
		return nil, r.fail(ctx, err)
	}
	r.transition(domain.StateDone)

	sources := make([]domain.ChunkSource, len(chunks))
	for i := range chunks {
		sources[i] = chunks[i].Source
	}

	r.log.Info("pipeline done",
		slog.String("model", s.completer.ModelName()),
		slog.Duration("elapsed", time.Since(start)))
	return &domain.Answer{
		Text:    text,
		RunID:   runID,
		ItemID:  item.ID,
		Sources: sources,
	}, nil
}
