package driving

import (
	"context"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

// AskService answers questions about caller-supplied documents.
type AskService interface {
	// IngestAndAsk uploads the document, retrieves passages scoped to it and
	// asks the completion backend the question grounded on those passages.
	// Failures are *domain.PipelineError wrapping the originating error.
	IngestAndAsk(ctx context.Context, fileName string, data []byte, question string) (*domain.Answer, error)
}
