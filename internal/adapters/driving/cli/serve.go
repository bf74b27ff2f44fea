package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/mail2shivb/fileupload/internal/adapters/driving/httpapi"
	"github.com/mail2shivb/fileupload/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Starts the HTTP API. Logs are written as JSON to stderr.

Endpoints:
  POST /api/ask   multipart form: file, question
  GET  /health

The server drains in-flight requests on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger.SetFormat(logger.FormatJSON)
	if !verbose {
		logger.SetLevel(logger.ParseLevel("info"))
		gin.SetMode(gin.ReleaseMode)
	}

	ask, closer, settings, err := newAsk(0)
	if err != nil {
		return err
	}
	defer closer.Close()

	addr := settings.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	server, err := httpapi.NewServer(httpapi.Config{
		Addr:           addr,
		Ask:            ask,
		MaxUploadBytes: settings.Server.MaxUploadBytes,
		RequestTimeout: settings.Server.RequestTimeout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}
