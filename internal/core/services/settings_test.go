package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mail2shivb/fileupload/internal/adapters/driven/storage/memory"
	"github.com/mail2shivb/fileupload/internal/core/domain"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func configuredStore() *memory.ConfigStore {
	return memory.NewConfigStore(map[string]any{
		"graph.tenant_id":       "contoso",
		"graph.client_id":       "app-id",
		"graph.client_secret":   "s3cret",
		"graph.drive_id":        "drive-1",
		"retrieval.endpoint":    "https://graph.microsoft.com/beta/copilot/retrieval",
		"completion.endpoint":   "https://contoso.openai.azure.com",
		"completion.api_key":    "azure-key",
		"completion.deployment": "gpt-4o",
	})
}

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	require.NotNil(t, service)
	assert.Equal(t, ":memory:", service.Path())
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore()).WithEnv(noEnv)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Graph.AuthorityHost, settings.Graph.AuthorityHost)
	assert.Equal(t, defaults.Graph.BaseURL, settings.Graph.BaseURL)
	assert.Equal(t, "/rag-uploads", settings.Graph.ParentPath)
	assert.Equal(t, domain.DefaultTopN, settings.Retrieval.TopN)
	assert.Equal(t, defaults.Completion.APIVersion, settings.Completion.APIVersion)
	assert.Equal(t, defaults.Server, settings.Server)
	assert.Equal(t, defaults.Retry, settings.Retry)
	assert.Equal(t, defaults.RateLimit, settings.RateLimit)
	assert.Equal(t, defaults.Upload, settings.Upload)
	assert.Empty(t, settings.Graph.TenantID)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := configuredStore()
	_ = store.Set("retrieval.top_n", int64(3))
	_ = store.Set("completion.timeout_seconds", 30)
	_ = store.Set("retry.initial_interval_ms", 250)
	_ = store.Set("ratelimit.requests_per_second", 2.5)
	service := NewSettingsService(store).WithEnv(noEnv)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "contoso", settings.Graph.TenantID)
	assert.Equal(t, "drive-1", settings.Graph.DriveID)
	assert.Equal(t, 3, settings.Retrieval.TopN)
	assert.Equal(t, 30*time.Second, settings.Completion.Timeout)
	assert.Equal(t, 250*time.Millisecond, settings.Retry.InitialInterval)
	assert.InDelta(t, 2.5, settings.RateLimit.RequestsPerSecond, 0.0001)
	assert.Equal(t, "gpt-4o", settings.Completion.Deployment)
}

func TestSettingsService_Get_ZeroRetriesIsKept(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"retry.max_retries": 0})
	service := NewSettingsService(store).WithEnv(noEnv)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, 0, settings.Retry.MaxRetries)
}

func TestSettingsService_Get_EnvironmentOverrides(t *testing.T) {
	service := NewSettingsService(configuredStore()).WithEnv(envMap(map[string]string{
		"FILEUPLOAD_GRAPH_TENANT_ID":                "fabrikam",
		"FILEUPLOAD_RETRIEVAL_TOP_N":                "9",
		"FILEUPLOAD_RATELIMIT_REQUESTS_PER_SECOND":  "1.5",
		"FILEUPLOAD_SERVER_REQUEST_TIMEOUT_SECONDS": "60",
		"FILEUPLOAD_COMPLETION_API_KEY":             "  ",
		"FILEUPLOAD_RETRY_MAX_RETRIES":              "not-a-number",
	}))

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "fabrikam", settings.Graph.TenantID)
	assert.Equal(t, 9, settings.Retrieval.TopN)
	assert.InDelta(t, 1.5, settings.RateLimit.RequestsPerSecond, 0.0001)
	assert.Equal(t, time.Minute, settings.Server.RequestTimeout)
	assert.Equal(t, "azure-key", settings.Completion.APIKey, "blank override is ignored")
	assert.Equal(t, domain.DefaultMaxRetries, settings.Retry.MaxRetries, "bad override is ignored")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "FILEUPLOAD_GRAPH_TENANT_ID", EnvKey("graph.tenant_id"))
	assert.Equal(t, "FILEUPLOAD_UPLOAD_FRAGMENT_SIZE", EnvKey("upload.fragment_size"))
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store).WithEnv(noEnv)

	settings := domain.DefaultAppSettings()
	settings.Graph.TenantID = "contoso"
	settings.Graph.ClientID = "app-id"
	settings.Graph.ClientSecret = "s3cret"
	settings.Graph.DriveID = "drive-1"
	settings.Retrieval.Endpoint = "https://retrieval"
	settings.Retrieval.TopN = 4
	settings.Completion.Endpoint = "https://contoso.openai.azure.com"
	settings.Completion.Deployment = "gpt-4o"
	settings.Completion.APIKey = "azure-key"
	settings.Retry.MaxInterval = 3 * time.Second

	require.NoError(t, service.Save(&settings))
	assert.Equal(t, 1, store.Saves())

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
	_, hasModel := store.Get("completion.model")
	assert.False(t, hasModel, "empty strings are not written")
}

func TestSettingsService_Validate(t *testing.T) {
	service := NewSettingsService(configuredStore()).WithEnv(noEnv)
	assert.NoError(t, service.Validate())

	empty := NewSettingsService(memory.NewConfigStore()).WithEnv(noEnv)
	err := empty.Validate()
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
	assert.Contains(t, err.Error(), "graph.tenant_id")
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}
