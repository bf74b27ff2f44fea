// Package cli provides the fileupload command-line interface.
package cli

import (
	"context"
	"errors"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mail2shivb/fileupload/internal/core/domain"
	"github.com/mail2shivb/fileupload/internal/core/ports/driving"
	"github.com/mail2shivb/fileupload/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// Config holds the factories the commands use to reach the core.
type Config struct {
	// OpenSettings returns the settings service for configDir.
	// An empty configDir selects the default location.
	OpenSettings func(configDir string) (driving.SettingsService, error)

	// NewAsk wires a pipeline from settings. A positive topN overrides
	// retrieval.top_n. The closer releases credentials and connections.
	NewAsk func(settings *domain.AppSettings, topN int) (driving.AskService, io.Closer, error)
}

var (
	appConfig       *Config
	settingsService driving.SettingsService

	verbose   bool
	configDir string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:   "fileupload",
	Short: "Ask questions about documents stored in your drive",
	Long: `fileupload uploads a document to a Microsoft 365 drive, retrieves the
passages relevant to a question from that document only, and asks a
language model to answer from those passages.

Configure credentials and endpoints with 'fileupload settings wizard', or
with FILEUPLOAD_<SECTION>_<KEY> environment variables.`,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrap,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs for each pipeline stage")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.fileupload)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading settings")
}

// SetConfig sets the factories used by the commands.
func SetConfig(cfg *Config) {
	appConfig = cfg
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// bootstrap applies global flags and opens the settings store.
func bootstrap(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if envFile != "" {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	if appConfig == nil || appConfig.OpenSettings == nil {
		return nil
	}
	svc, err := appConfig.OpenSettings(configDir)
	if err != nil {
		return err
	}
	settingsService = svc
	return nil
}

// newAsk builds the pipeline from the current settings.
func newAsk(topN int) (driving.AskService, io.Closer, *domain.AppSettings, error) {
	if settingsService == nil {
		return nil, nil, nil, errors.New("settings service not configured")
	}
	if appConfig == nil || appConfig.NewAsk == nil {
		return nil, nil, nil, errors.New("ask service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, nil, errors.Join(err, errors.New("run 'fileupload settings wizard' to configure"))
	}

	ask, closer, err := appConfig.NewAsk(settings, topN)
	if err != nil {
		return nil, nil, nil, err
	}
	if closer == nil {
		closer = io.NopCloser(nil)
	}
	return ask, closer, settings, nil
}
