package driven

import (
	"context"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

// CompletionService answers a question grounded on retrieved passages.
//
// Implementations may include:
//   - Azure OpenAI deployments
//   - OpenAI-compatible chat endpoints
type CompletionService interface {
	// Complete sends the passages and the question as a single chat
	// completion and returns the text of the first choice.
	// Failures are *domain.CompletionError.
	Complete(ctx context.Context, chunks []domain.Chunk, question string) (string, error)

	// ModelName returns the deployment or model answering requests.
	ModelName() string
}
