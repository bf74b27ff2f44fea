// Package wire assembles the pipeline from settings.
// It is the composition root shared by the CLI, HTTP and MCP entry points.
package wire

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mail2shivb/fileupload/internal/adapters/driven/auth"
	"github.com/mail2shivb/fileupload/internal/adapters/driven/config/file"
	"github.com/mail2shivb/fileupload/internal/adapters/driven/graph"
	"github.com/mail2shivb/fileupload/internal/adapters/driven/llm/azureopenai"
	"github.com/mail2shivb/fileupload/internal/adapters/driven/resilience"
	"github.com/mail2shivb/fileupload/internal/core/domain"
	"github.com/mail2shivb/fileupload/internal/core/services"
	"github.com/mail2shivb/fileupload/internal/logger"
)

// Options adjusts how NewApp builds the pipeline.
type Options struct {
	// TopN overrides retrieval.top_n when positive.
	TopN int

	// HTTPClient is shared by every outbound adapter. Defaults per adapter.
	HTTPClient *http.Client
}

// App holds the wired pipeline and the resources it owns.
type App struct {
	Ask      *services.AskService
	Settings *domain.AppSettings

	tokens    *auth.CredentialManager
	completer *azureopenai.CompletionClient
	log       *slog.Logger
}

// OpenSettings opens the TOML config store in configDir and returns a
// settings service over it. An empty configDir selects ~/.fileupload.
func OpenSettings(configDir string) (*services.SettingsService, error) {
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config store: %w", err)
	}
	return services.NewSettingsService(store), nil
}

// NewApp validates settings and wires credentials, rate limiters, backend
// clients and the ask service.
func NewApp(settings *domain.AppSettings, opts Options) (*App, error) {
	if settings == nil {
		return nil, errors.New("settings are required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	tokens := auth.NewCredentialManager(
		auth.NewClientCredentialsFetcher(settings.Graph, opts.HTTPClient),
		auth.Config{},
	)
	retry := resilience.PolicyFrom(settings.Retry)

	storage, err := graph.NewClient(graph.ClientConfig{
		HTTPClient: opts.HTTPClient,
		Tokens:     tokens,
		Limiter:    resilience.NewRateLimiter(resilience.BackendGraph, settings.RateLimit),
		Retry:      retry,
	})
	if err != nil {
		return nil, err
	}
	uploader, err := graph.NewUploadClient(storage, graph.UploadConfig{
		BaseURL:      settings.Graph.BaseURL,
		DriveID:      settings.Graph.DriveID,
		ParentPath:   settings.Graph.ParentPath,
		Scope:        settings.Graph.Scope,
		FragmentSize: settings.Upload.FragmentSize,
	})
	if err != nil {
		return nil, err
	}

	search, err := graph.NewClient(graph.ClientConfig{
		HTTPClient: opts.HTTPClient,
		Tokens:     tokens,
		Limiter:    resilience.NewRateLimiter(resilience.BackendRetrieval, settings.RateLimit),
		Retry:      retry,
	})
	if err != nil {
		return nil, err
	}
	retriever, err := graph.NewRetrievalClient(search, settings.Retrieval)
	if err != nil {
		return nil, err
	}

	completer, err := azureopenai.NewCompletionClient(azureopenai.Config{
		Settings:   settings.Completion,
		HTTPClient: opts.HTTPClient,
		Limiter:    resilience.NewRateLimiter(resilience.BackendCompletion, settings.RateLimit),
		Retry:      retry,
	})
	if err != nil {
		return nil, err
	}

	topN := settings.Retrieval.TopN
	if opts.TopN > 0 {
		topN = opts.TopN
	}

	log := logger.For("app")
	log.Debug("pipeline wired",
		slog.String("drive_id", settings.Graph.DriveID),
		slog.String("model", completer.ModelName()),
		slog.Int("top_n", topN))

	return &App{
		Ask:       services.NewAskService(uploader, retriever, completer, topN),
		Settings:  settings,
		tokens:    tokens,
		completer: completer,
		log:       log,
	}, nil
}

// Close releases cached credentials and idle connections.
func (a *App) Close() error {
	return errors.Join(a.tokens.Close(), a.completer.Close())
}
