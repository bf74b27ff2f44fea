// Command fileupload uploads documents to a Microsoft 365 drive and answers
// questions about them.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mail2shivb/fileupload/internal/adapters/driving/cli"
	"github.com/mail2shivb/fileupload/internal/core/domain"
	"github.com/mail2shivb/fileupload/internal/core/ports/driving"
	"github.com/mail2shivb/fileupload/internal/wire"
)

func main() {
	cli.SetConfig(&cli.Config{
		OpenSettings: func(configDir string) (driving.SettingsService, error) {
			return wire.OpenSettings(configDir)
		},
		NewAsk: func(settings *domain.AppSettings, topN int) (driving.AskService, io.Closer, error) {
			app, err := wire.NewApp(settings, wire.Options{TopN: topN})
			if err != nil {
				return nil, nil, err
			}
			return app.Ask, app, nil
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
