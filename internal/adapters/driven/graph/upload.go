package graph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mail2shivb/fileupload/internal/adapters/driven/resilience"
	"github.com/mail2shivb/fileupload/internal/core/domain"
	"github.com/mail2shivb/fileupload/internal/core/ports/driven"
)

// Ensure UploadClient implements the interface.
var _ driven.Uploader = (*UploadClient)(nil)

// conflictBehaviorKey is the Graph instance annotation controlling name conflicts.
const conflictBehaviorKey = "@microsoft.graph.conflictBehavior"

// UploadConfig configures an UploadClient.
type UploadConfig struct {
	// BaseURL is the Graph API root, e.g. https://graph.microsoft.com/v1.0.
	BaseURL string

	// DriveID is the drive that receives uploads (required).
	DriveID string

	// ParentPath is the folder inside the drive, e.g. /rag-uploads.
	ParentPath string

	// Scope is the token audience for session creation.
	Scope string

	// FragmentSize is the largest byte range sent in one transfer request.
	FragmentSize int
}

// UploadClient uploads documents with the two-phase upload-session protocol.
type UploadClient struct {
	client       *Client
	baseURL      string
	driveID      string
	parentPath   string
	scope        string
	fragmentSize int
}

// createSessionRequest is the createUploadSession request body.
type createSessionRequest struct {
	Item map[string]string `json:"item"`
}

// createSessionResponse is the createUploadSession response body.
type createSessionResponse struct {
	UploadURL          string    `json:"uploadUrl"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
}

// NewUploadClient creates an UploadClient.
func NewUploadClient(client *Client, cfg UploadConfig) (*UploadClient, error) {
	if client == nil {
		return nil, errors.New("graph: client is required")
	}
	if cfg.DriveID == "" {
		return nil, fmt.Errorf("graph: drive id is %w", domain.ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = domain.DefaultGraphBaseURL
	}
	if cfg.Scope == "" {
		cfg.Scope = domain.DefaultGraphScope
	}
	if cfg.FragmentSize <= 0 {
		cfg.FragmentSize = domain.DefaultFragmentSize
	}
	return &UploadClient{
		client:       client,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		driveID:      cfg.DriveID,
		parentPath:   cfg.ParentPath,
		scope:        cfg.Scope,
		fragmentSize: cfg.FragmentSize,
	}, nil
}

// Upload stores doc under the parent path, replacing any existing item with
// the same name, and returns the created item.
//
// Transient failures restart the whole upload with a fresh session; a
// session is never reused after its transfer fails.
func (u *UploadClient) Upload(ctx context.Context, doc domain.Document) (*domain.UploadedItem, error) {
	if doc.Size() == 0 {
		return nil, fmt.Errorf("upload %q: %w", doc.Name, domain.ErrEmptyDocument)
	}
	name, err := cleanFileName(doc.Name)
	if err != nil {
		return nil, err
	}

	var item *domain.UploadedItem
	lastKind := domain.UploadSessionCreationFailed
	err = resilience.Do(ctx, u.client.retry, u.client.limiter, u.client.log, func(ctx context.Context) error {
		session, err := u.createSession(ctx, name)
		if err != nil {
			lastKind = domain.UploadSessionCreationFailed
			return err
		}
		item, err = u.transfer(ctx, session, doc.Data)
		if err != nil {
			lastKind = domain.UploadTransferFailed
			return err
		}
		return nil
	})
	if err != nil {
		var uploadErr *domain.UploadError
		if errors.As(err, &uploadErr) {
			return nil, uploadErr
		}
		return nil, &domain.UploadError{Kind: lastKind, Err: err}
	}

	u.client.log.Info("document uploaded",
		slog.String("name", item.Name),
		slog.String("item_id", item.ID),
		slog.Int("bytes", doc.Size()))
	return item, nil
}

// createSession issues the session-creation request for name.
func (u *UploadClient) createSession(ctx context.Context, name string) (*domain.UploadSession, error) {
	body := createSessionRequest{Item: map[string]string{conflictBehaviorKey: "replace"}}

	var resp createSessionResponse
	if err := u.client.postJSON(ctx, u.sessionURL(name), u.scope, body, &resp); err != nil {
		return nil, &domain.UploadError{
			Kind:       domain.UploadSessionCreationFailed,
			StatusCode: resilience.StatusCode(err),
			Err:        err,
		}
	}
	if resp.UploadURL == "" {
		return nil, &domain.UploadError{
			Kind: domain.UploadSessionCreationFailed,
			Err:  errors.New("response has no uploadUrl"),
		}
	}

	u.client.log.Debug("upload session created",
		slog.String("name", name),
		slog.Time("expires", resp.ExpirationDateTime))
	return &domain.UploadSession{UploadURL: resp.UploadURL, ExpiresAt: resp.ExpirationDateTime}, nil
}

// transfer sends data to the session in increasing, non-overlapping ranges.
// Payloads no larger than the fragment size go in a single request covering
// bytes 0-(N-1)/N.
func (u *UploadClient) transfer(ctx context.Context, session *domain.UploadSession, data []byte) (*domain.UploadedItem, error) {
	total := len(data)
	for start := 0; start < total; start += u.fragmentSize {
		end := min(start+u.fragmentSize, total) - 1
		last := end == total-1

		item, err := u.putRange(ctx, session.UploadURL, data[start:end+1], start, end, total, last)
		if err != nil {
			return nil, &domain.UploadError{
				Kind:       domain.UploadTransferFailed,
				StatusCode: resilience.StatusCode(err),
				Err:        err,
			}
		}
		if last {
			return item, nil
		}
	}
	// Unreachable for non-empty payloads.
	return nil, &domain.UploadError{Kind: domain.UploadTransferFailed, Err: domain.ErrEmptyDocument}
}

// putRange sends one fragment. The upload URL is pre-authenticated and must
// not carry the bearer token.
func (u *UploadClient) putRange(
	ctx context.Context,
	uploadURL string,
	fragment []byte,
	start, end, total int,
	last bool,
) (*domain.UploadedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.ContentLength = int64(len(fragment))
	req.Header.Set("Content-Range", domain.ContentRange(start, end, total))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := u.client.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !last {
		if err := decodeResponse(resp, nil); err != nil {
			return nil, err
		}
		u.client.log.Debug("fragment accepted", slog.String("range", req.Header.Get("Content-Range")))
		return nil, nil
	}

	var item domain.UploadedItem
	if err := decodeResponse(resp, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		return nil, errors.New("transfer response has no item id")
	}
	return &item, nil
}

// sessionURL builds the path-addressed createUploadSession URL for name.
func (u *UploadClient) sessionURL(name string) string {
	segments := make([]string, 0, 8)
	for _, s := range strings.Split(u.parentPath, "/") {
		if s != "" {
			segments = append(segments, escapeSegment(s))
		}
	}
	segments = append(segments, escapeSegment(name))

	return fmt.Sprintf("%s/drives/%s/root:/%s:/createUploadSession",
		u.baseURL, escapeSegment(u.driveID), strings.Join(segments, "/"))
}

// escapeSegment escapes one path segment. A literal ':' would end the
// root:/path: addressing early, so it is encoded too.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ":", "%3A")
}

// cleanFileName strips any directory components from a caller-supplied name.
func cleanFileName(name string) (string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "" || base == "." || base == "/" || base == ".." {
		return "", fmt.Errorf("%w: file name %q", domain.ErrInvalidInput, name)
	}
	return base, nil
}
