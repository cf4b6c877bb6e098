package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arborlabs/arbor/internal/observability"
	"github.com/arborlabs/arbor/internal/roots"
	"github.com/arborlabs/arbor/internal/server"
	"github.com/arborlabs/arbor/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the arbor HTTP server",
	Long: `Run the arbor HTTP server.

The server exposes inventory generation over POST /v1/inventory against
the roots named in the configuration, plus health and version endpoints.

Example:
  arbor serve
  arbor serve --host 0.0.0.0 --port 9000`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := appConfig

	host := cfg.Server.Host
	if serveHost != "" {
		host = serveHost
	}
	port := cfg.Server.Port
	if servePort != 0 {
		port = servePort
	}

	handlers.InitHealthManager(versionInfo.Version)
	registry := roots.New(cfg.Roots)

	srv := server.New(host, port, server.WithResolver(registry))
	srv.ReadTimeout = cfg.Server.ReadTimeout
	srv.WriteTimeout = cfg.Server.WriteTimeout
	srv.IdleTimeout = cfg.Server.IdleTimeout
	srv.ShutdownTimeout = cfg.Server.ShutdownTimeout

	observability.ServerLogger.Info("starting server",
		zap.String("addr", srv.Addr()),
		zap.Strings("roots", registry.Names()),
		zap.String("version", versionInfo.Version))

	return srv.Start(ctx)
}
