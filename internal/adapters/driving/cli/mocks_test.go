package cli

import (
	"context"
	"io"

	"github.com/mail2shivb/fileupload/internal/core/domain"
	"github.com/mail2shivb/fileupload/internal/core/ports/driving"
)

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.AppSettings
	saved    *domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	s := *settings
	m.saved = &s
	return m.err
}

func (m *mockSettingsService) Validate() error {
	return m.settings.Validate()
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) Path() string {
	return "/tmp/fileupload/config.toml"
}

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	answer   *domain.Answer
	err      error
	calls    int
	fileName string
	data     []byte
	question string
}

func (m *mockAskService) IngestAndAsk(
	_ context.Context,
	fileName string,
	data []byte,
	question string,
) (*domain.Answer, error) {
	m.calls++
	m.fileName = fileName
	m.data = data
	m.question = question
	return m.answer, m.err
}

type mockCloser struct {
	closed bool
}

func (m *mockCloser) Close() error {
	m.closed = true
	return nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	settings *mockSettingsService
	ask      *mockAskService
	closer   *mockCloser
	topN     int
	built    int
}

// configuredSettings returns settings that pass validation.
func configuredSettings() domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Graph.TenantID = "contoso"
	s.Graph.ClientID = "app-id"
	s.Graph.ClientSecret = "super-secret-value"
	s.Graph.DriveID = "drive-1"
	s.Retrieval.Endpoint = "https://graph.microsoft.com/beta/copilot/retrieval"
	s.Completion.Endpoint = "https://contoso.openai.azure.com"
	s.Completion.Deployment = "gpt-4o"
	s.Completion.APIKey = "azure-key-1234567890"
	return s
}

// setupTestServices installs mocks and resets global flags.
// The returned function restores the previous state.
func setupTestServices(settings domain.AppSettings) (*testServices, func()) {
	ts := &testServices{
		settings: &mockSettingsService{settings: settings},
		ask:      &mockAskService{answer: &domain.Answer{Text: "42"}},
		closer:   &mockCloser{},
	}

	prevConfig, prevSettings := appConfig, settingsService
	SetConfig(&Config{
		OpenSettings: func(string) (driving.SettingsService, error) {
			return ts.settings, nil
		},
		NewAsk: func(_ *domain.AppSettings, topN int) (driving.AskService, io.Closer, error) {
			ts.built++
			ts.topN = topN
			return ts.ask, ts.closer, nil
		},
	})

	askJSON, askTopN = false, 0
	verbose, configDir, envFile = false, "", ""

	return ts, func() {
		appConfig, settingsService = prevConfig, prevSettings
		askJSON, askTopN = false, 0
		verbose, configDir, envFile = false, "", ""
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}
