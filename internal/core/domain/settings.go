package domain

import (
	"fmt"
	"strings"
	"time"
)

// Default setting values.
const (
	DefaultAuthorityHost     = "https://login.microsoftonline.com"
	DefaultGraphBaseURL      = "https://graph.microsoft.com/v1.0"
	DefaultGraphScope        = "https://graph.microsoft.com/.default"
	DefaultParentPath        = "/rag-uploads"
	DefaultAPIVersion        = "2024-08-01-preview"
	DefaultCompletionTimeout = 120 * time.Second
	DefaultServerAddr        = ":8080"
	DefaultRequestTimeout    = 180 * time.Second
	DefaultMaxUploadBytes    = 50 << 20

	// DefaultFragmentSize is the largest single transfer request.
	// Graph requires fragments to be multiples of 320 KiB and at most 60 MiB.
	DefaultFragmentSize = 192 * FragmentAlignment

	// FragmentAlignment is the granularity of upload fragments.
	FragmentAlignment = 320 << 10

	DefaultMaxRetries        = 3
	DefaultRetryInitial      = 500 * time.Millisecond
	DefaultRetryMaxInterval  = 10 * time.Second
	DefaultRequestsPerSecond = 8.0
	DefaultBurst             = 10
)

// GraphSettings configures the storage backend and its credentials.
type GraphSettings struct {
	// AuthorityHost is the identity platform host.
	AuthorityHost string
	// TenantID is the directory the client application belongs to.
	TenantID string
	// ClientID is the application (client) ID.
	ClientID string
	// ClientSecret is the application secret.
	ClientSecret string
	// BaseURL is the Graph API root, including the version segment.
	BaseURL string
	// DriveID is the drive that receives uploads.
	DriveID string
	// ParentPath is the folder inside the drive that receives uploads.
	ParentPath string
	// Scope is the token audience for storage calls.
	Scope string
}

// TokenURL returns the client-credentials token endpoint for the tenant.
func (g GraphSettings) TokenURL() string {
	return strings.TrimRight(g.AuthorityHost, "/") + "/" + g.TenantID + "/oauth2/v2.0/token"
}

// RetrievalSettings configures the retrieval backend.
type RetrievalSettings struct {
	// Endpoint is the full URL of the retrieval API.
	Endpoint string
	// TopN is the maximum number of passages requested per question.
	TopN int
	// Scope is the token audience for retrieval calls. Defaults to the Graph scope.
	Scope string
}

// CompletionSettings configures the chat-completion backend.
type CompletionSettings struct {
	// Endpoint is the Azure OpenAI resource URL, or an OpenAI-compatible
	// base URL when Deployment is empty.
	Endpoint string
	// Deployment is the Azure OpenAI deployment name.
	Deployment string
	// APIVersion is the Azure OpenAI api-version query parameter.
	APIVersion string
	// APIKey is the static key sent with every completion request.
	APIKey string
	// Model is sent in the request body for OpenAI-compatible endpoints.
	Model string
	// Timeout bounds a single completion request.
	Timeout time.Duration
}

// IsAzure returns true when requests target an Azure OpenAI deployment.
func (c CompletionSettings) IsAzure() bool {
	return c.Deployment != ""
}

// ServerSettings configures the inbound HTTP API.
type ServerSettings struct {
	Addr           string
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// RetrySettings bounds retries of transient backend failures.
type RetrySettings struct {
	// MaxRetries is the number of retries after the first attempt. Zero disables retries.
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// RateLimitSettings configures the outbound request rate per backend.
type RateLimitSettings struct {
	RequestsPerSecond float64
	Burst             int
}

// UploadSettings configures the byte transfer.
type UploadSettings struct {
	// FragmentSize is the largest range sent in one transfer request.
	FragmentSize int
}

// AppSettings holds all application configuration.
type AppSettings struct {
	Graph      GraphSettings
	Retrieval  RetrievalSettings
	Completion CompletionSettings
	Server     ServerSettings
	Retry      RetrySettings
	RateLimit  RateLimitSettings
	Upload     UploadSettings
}

// DefaultAppSettings returns settings with every optional value filled in.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Graph: GraphSettings{
			AuthorityHost: DefaultAuthorityHost,
			BaseURL:       DefaultGraphBaseURL,
			ParentPath:    DefaultParentPath,
			Scope:         DefaultGraphScope,
		},
		Retrieval: RetrievalSettings{
			TopN:  DefaultTopN,
			Scope: DefaultGraphScope,
		},
		Completion: CompletionSettings{
			APIVersion: DefaultAPIVersion,
			Timeout:    DefaultCompletionTimeout,
		},
		Server: ServerSettings{
			Addr:           DefaultServerAddr,
			RequestTimeout: DefaultRequestTimeout,
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
		Retry: RetrySettings{
			MaxRetries:      DefaultMaxRetries,
			InitialInterval: DefaultRetryInitial,
			MaxInterval:     DefaultRetryMaxInterval,
		},
		RateLimit: RateLimitSettings{
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
		},
		Upload: UploadSettings{
			FragmentSize: DefaultFragmentSize,
		},
	}
}

// Validate checks that every required setting is present and every bound is sane.
// The returned error wraps ErrNotConfigured or ErrInvalidInput.
func (s *AppSettings) Validate() error {
	var missing []string
	required := []struct {
		key, value string
	}{
		{"graph.tenant_id", s.Graph.TenantID},
		{"graph.client_id", s.Graph.ClientID},
		{"graph.client_secret", s.Graph.ClientSecret},
		{"graph.drive_id", s.Graph.DriveID},
		{"retrieval.endpoint", s.Retrieval.Endpoint},
		{"completion.endpoint", s.Completion.Endpoint},
		{"completion.api_key", s.Completion.APIKey},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrNotConfigured, strings.Join(missing, ", "))
	}

	if s.Retrieval.TopN <= 0 {
		return fmt.Errorf("%w: retrieval.top_n must be positive", ErrInvalidInput)
	}
	if s.Upload.FragmentSize <= 0 || s.Upload.FragmentSize%FragmentAlignment != 0 {
		return fmt.Errorf("%w: upload.fragment_size must be a positive multiple of %d",
			ErrInvalidInput, FragmentAlignment)
	}
	if s.Retry.MaxRetries < 0 {
		return fmt.Errorf("%w: retry.max_retries must not be negative", ErrInvalidInput)
	}
	if !s.Completion.IsAzure() && s.Completion.Model == "" {
		return fmt.Errorf("%w: completion.model is required without completion.deployment", ErrNotConfigured)
	}
	return nil
}

// MaskSecret hides all but the edges of a secret for display.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// Redacted returns a copy of s with secrets masked.
func (s AppSettings) Redacted() AppSettings {
	s.Graph.ClientSecret = MaskSecret(s.Graph.ClientSecret)
	s.Completion.APIKey = MaskSecret(s.Completion.APIKey)
	return s
}
