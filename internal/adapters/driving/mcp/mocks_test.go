package mcp

import (
	"context"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	answer   *domain.Answer
	err      error
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
	m.fileName = fileName
	m.data = data
	m.question = question
	return m.answer, m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings *domain.AppSettings
	err      error
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	return m.settings, m.err
}

func (m *mockSettingsService) Save(_ *domain.AppSettings) error {
	return m.err
}

func (m *mockSettingsService) Validate() error {
	if m.settings == nil {
		return m.err
	}
	return m.settings.Validate()
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func (m *mockSettingsService) Path() string {
	return ":memory:"
}
