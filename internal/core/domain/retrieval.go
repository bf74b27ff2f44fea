package domain

// ScopeFieldDriveItemID is the retrieval field that identifies a drive item.
const ScopeFieldDriveItemID = "driveItemId"

// DefaultTopN is the number of passages requested when none is configured.
const DefaultTopN = 6

// RetrievalQuery is one scoped search against the retrieval backend.
type RetrievalQuery struct {
	// Question is the free-text question.
	Question string

	// ScopeFilter restricts results to a single uploaded item.
	// Build it with ScopeFilterForItem.
	ScopeFilter string

	// TopN caps the number of returned chunks.
	TopN int
}

// ScopeFilterForItem returns the equality constraint that scopes a
// retrieval to the given drive item.
func ScopeFilterForItem(itemID string) string {
	return ScopeFieldDriveItemID + ":" + itemID
}

// Chunk is a retrieved passage with its provenance.
type Chunk struct {
	// Content is the passage text.
	Content string `json:"content"`

	// Source identifies where the passage came from.
	Source ChunkSource `json:"source"`
}

// ChunkSource is the provenance of a Chunk.
type ChunkSource struct {
	// URL is the web URL of the source document.
	URL string `json:"url"`

	// DriveItemID is the drive item the passage was taken from.
	DriveItemID string `json:"driveItemId"`
}

// ChunkContents returns the content of each chunk, preserving order.
func ChunkContents(chunks []Chunk) []string {
	contents := make([]string, len(chunks))
	for i := range chunks {
		contents[i] = chunks[i].Content
	}
	return contents
}
