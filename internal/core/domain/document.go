package domain

import (
	"fmt"
	"time"
)

// Document is a caller-supplied file.
// It lives only for the duration of one pipeline run.
type Document struct {
	// Name is the file name used as the destination name in the drive.
	Name string

	// Data is the full byte payload.
	Data []byte
}

// Size returns the payload length in bytes.
func (d Document) Size() int {
	return len(d.Data)
}

// UploadSession is a transient handle returned by the session-creation call.
// It is consumed by exactly one transfer and never reused.
type UploadSession struct {
	// UploadURL is the pre-authenticated URL that accepts byte ranges.
	UploadURL string

	// ExpiresAt is when the backend discards the session. Zero if unknown.
	ExpiresAt time.Time
}

// UploadedItem is the drive item created by a successful transfer.
type UploadedItem struct {
	// ID is the opaque drive item identifier.
	ID string `json:"id"`

	// Name is the item name as stored by the backend.
	Name string `json:"name"`

	// WebURL is the canonical URL of the item.
	WebURL string `json:"webUrl"`
}

// ContentRange formats a Content-Range header value for the byte range
// [start, end] of a payload of the given total size.
func ContentRange(start, end, total int) string {
	return fmt.Sprintf("bytes %d-%d/%d", start, end, total)
}
