package services

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mail2shivb/fileupload/internal/core/domain"
	"github.com/mail2shivb/fileupload/internal/core/ports/driven"
	"github.com/mail2shivb/fileupload/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvPrefix prefixes environment overrides: graph.tenant_id is
// overridden by FILEUPLOAD_GRAPH_TENANT_ID.
const EnvPrefix = "FILEUPLOAD_"

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyGraphAuthority    = "graph.authority_host"
	keyGraphTenant       = "graph.tenant_id"
	keyGraphClientID     = "graph.client_id"
	keyGraphClientSecret = "graph.client_secret"
	keyGraphBaseURL      = "graph.base_url"
	keyGraphDriveID      = "graph.drive_id"
	keyGraphParentPath   = "graph.parent_path"
	keyGraphScope        = "graph.scope"

	keyRetrievalEndpoint = "retrieval.endpoint"
	keyRetrievalTopN     = "retrieval.top_n"
	keyRetrievalScope    = "retrieval.scope"

	keyCompletionEndpoint   = "completion.endpoint"
	keyCompletionDeployment = "completion.deployment"
	keyCompletionAPIVersion = "completion.api_version"
	keyCompletionAPIKey     = "completion.api_key"
	keyCompletionModel      = "completion.model"
	keyCompletionTimeout    = "completion.timeout_seconds"

	keyServerAddr           = "server.addr"
	keyServerRequestTimeout = "server.request_timeout_seconds"
	keyServerMaxUpload      = "server.max_upload_bytes"

	keyRetryMax      = "retry.max_retries"
	keyRetryInitial  = "retry.initial_interval_ms"
	keyRetryInterval = "retry.max_interval_ms"

	keyRateRPS   = "ratelimit.requests_per_second"
	keyRateBurst = "ratelimit.burst"

	keyUploadFragment = "upload.fragment_size"
)

// SettingsService manages application settings.
// Values resolve in order: environment override, config store, default.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service reading overrides from
// the process environment.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// WithEnv replaces the environment lookup. Intended for tests.
func (s *SettingsService) WithEnv(lookup func(string) (string, bool)) *SettingsService {
	s.lookupEnv = lookup
	return s
}

// EnvKey returns the environment variable that overrides key.
func EnvKey(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Graph: domain.GraphSettings{
			AuthorityHost: s.getString(keyGraphAuthority, d.Graph.AuthorityHost),
			TenantID:      s.getString(keyGraphTenant, ""),
			ClientID:      s.getString(keyGraphClientID, ""),
			ClientSecret:  s.getString(keyGraphClientSecret, ""),
			BaseURL:       s.getString(keyGraphBaseURL, d.Graph.BaseURL),
			DriveID:       s.getString(keyGraphDriveID, ""),
			ParentPath:    s.getString(keyGraphParentPath, d.Graph.ParentPath),
			Scope:         s.getString(keyGraphScope, d.Graph.Scope),
		},
		Retrieval: domain.RetrievalSettings{
			Endpoint: s.getString(keyRetrievalEndpoint, ""),
			TopN:     s.getInt(keyRetrievalTopN, d.Retrieval.TopN),
			Scope:    s.getString(keyRetrievalScope, d.Retrieval.Scope),
		},
		Completion: domain.CompletionSettings{
			Endpoint:   s.getString(keyCompletionEndpoint, ""),
			Deployment: s.getString(keyCompletionDeployment, ""),
			APIVersion: s.getString(keyCompletionAPIVersion, d.Completion.APIVersion),
			APIKey:     s.getString(keyCompletionAPIKey, ""),
			Model:      s.getString(keyCompletionModel, ""),
			Timeout:    s.getDuration(keyCompletionTimeout, time.Second, d.Completion.Timeout),
		},
		Server: domain.ServerSettings{
			Addr:           s.getString(keyServerAddr, d.Server.Addr),
			RequestTimeout: s.getDuration(keyServerRequestTimeout, time.Second, d.Server.RequestTimeout),
			MaxUploadBytes: int64(s.getInt(keyServerMaxUpload, int(d.Server.MaxUploadBytes))),
		},
		Retry: domain.RetrySettings{
			MaxRetries:      s.getInt(keyRetryMax, d.Retry.MaxRetries),
			InitialInterval: s.getDuration(keyRetryInitial, time.Millisecond, d.Retry.InitialInterval),
			MaxInterval:     s.getDuration(keyRetryInterval, time.Millisecond, d.Retry.MaxInterval),
		},
		RateLimit: domain.RateLimitSettings{
			RequestsPerSecond: s.getFloat(keyRateRPS, d.RateLimit.RequestsPerSecond),
			Burst:             s.getInt(keyRateBurst, d.RateLimit.Burst),
		},
		Upload: domain.UploadSettings{
			FragmentSize: s.getInt(keyUploadFragment, d.Upload.FragmentSize),
		},
	}

	return settings, nil
}

// Save persists application settings. Empty strings are not written.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := map[string]any{
		keyRetrievalTopN:        settings.Retrieval.TopN,
		keyCompletionTimeout:    int(settings.Completion.Timeout / time.Second),
		keyServerRequestTimeout: int(settings.Server.RequestTimeout / time.Second),
		keyServerMaxUpload:      settings.Server.MaxUploadBytes,
		keyRetryMax:             settings.Retry.MaxRetries,
		keyRetryInitial:         int(settings.Retry.InitialInterval / time.Millisecond),
		keyRetryInterval:        int(settings.Retry.MaxInterval / time.Millisecond),
		keyRateRPS:              settings.RateLimit.RequestsPerSecond,
		keyRateBurst:            settings.RateLimit.Burst,
		keyUploadFragment:       settings.Upload.FragmentSize,
	}

	strs := map[string]string{
		keyGraphAuthority:       settings.Graph.AuthorityHost,
		keyGraphTenant:          settings.Graph.TenantID,
		keyGraphClientID:        settings.Graph.ClientID,
		keyGraphClientSecret:    settings.Graph.ClientSecret,
		keyGraphBaseURL:         settings.Graph.BaseURL,
		keyGraphDriveID:         settings.Graph.DriveID,
		keyGraphParentPath:      settings.Graph.ParentPath,
		keyGraphScope:           settings.Graph.Scope,
		keyRetrievalEndpoint:    settings.Retrieval.Endpoint,
		keyRetrievalScope:       settings.Retrieval.Scope,
		keyCompletionEndpoint:   settings.Completion.Endpoint,
		keyCompletionDeployment: settings.Completion.Deployment,
		keyCompletionAPIVersion: settings.Completion.APIVersion,
		keyCompletionAPIKey:     settings.Completion.APIKey,
		keyCompletionModel:      settings.Completion.Model,
		keyServerAddr:           settings.Server.Addr,
	}
	for k, v := range strs {
		if v != "" {
			values[k] = v
		}
	}

	return s.configStore.SetAll(values)
}

// Validate checks that the current settings can run the pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Path returns the configuration file path.
func (s *SettingsService) Path() string {
	return s.configStore.Path()
}

// env returns a non-empty environment override for key.
func (s *SettingsService) env(key string) (string, bool) {
	if s.lookupEnv == nil {
		return "", false
	}
	v, ok := s.lookupEnv(EnvKey(key))
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// getString retrieves a string value with fallback to default.
func (s *SettingsService) getString(key, defaultVal string) string {
	if v, ok := s.env(key); ok {
		return v
	}
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

// getInt retrieves an int value with fallback to default.
// Unparseable overrides are ignored.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v, ok := s.env(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if _, exists := s.configStore.Get(key); exists {
		return s.configStore.GetInt(key)
	}
	return defaultVal
}

// getFloat retrieves a float value with fallback to default.
func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if v, ok := s.env(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if _, exists := s.configStore.Get(key); exists {
		return s.configStore.GetFloat(key)
	}
	return defaultVal
}

// getDuration reads an integer count of unit.
func (s *SettingsService) getDuration(key string, unit, defaultVal time.Duration) time.Duration {
	n := s.getInt(key, -1)
	if n < 0 {
		return defaultVal
	}
	return time.Duration(n) * unit
}
