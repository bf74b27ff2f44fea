// Package domain defines the core business entities for fileupload.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: The file a caller wants to ask about
//   - UploadedItem: The drive item created by uploading a Document
//   - RetrievalQuery and Chunk: A scoped search and the passages it returns
//   - ChatMessage and Answer: The completion prompt and its result
//   - CachedToken: A bearer token cached per audience scope
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
