package driven

import (
	"context"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

// Uploader stores a document in the drive and returns the created item.
// Failures are *domain.UploadError.
type Uploader interface {
	Upload(ctx context.Context, doc domain.Document) (*domain.UploadedItem, error)
}

// Retriever returns passages relevant to a question, constrained to the
// query's scope filter and ordered most relevant first.
// Failures are *domain.RetrievalError. An empty result is not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query domain.RetrievalQuery) ([]domain.Chunk, error)
}
