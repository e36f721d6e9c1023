package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"

	"github.com/BioHazard786/Studyhall/internal/config"
	"github.com/BioHazard786/Studyhall/internal/logging"
	"github.com/BioHazard786/Studyhall/internal/server"
	"github.com/BioHazard786/Studyhall/internal/signaling"
	"github.com/BioHazard786/Studyhall/internal/version"
)

const shutdownTimeout = 30 * time.Second

var opts config.ServerOptions

var rootCmd = &cobra.Command{
	Use:     "studyhall-server",
	Short:   "Signaling and room coordination server for Studyhall",
	Version: version.Version,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadServer(opts)
		if err != nil {
			return err
		}
		os.Exit(run(cfg))
		return nil
	},
}

func init() {
	rootCmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "Port to listen on (env: PORT)")
	rootCmd.Flags().StringVar(&opts.AllowedOrigins, "origins", "", "Comma separated list of allowed origins (env: ALLOWED_ORIGINS)")
	rootCmd.Flags().StringVar(&opts.WSPath, "ws-path", "", "WebSocket endpoint path (env: WS_PATH)")
}

func run(cfg *config.Server) int {
	hub := signaling.NewHub(signaling.NewMemoryRoomStore(), signaling.NewMemoryChatStore())
	go hub.Run()

	srv := server.NewHTTPServer(server.NewRouter(hub, cfg), cfg)
	go func() {
		slog.Info("starting signaling server", "addr", srv.Addr, "ws", cfg.WSPath, "origins", cfg.AllowedOrigins, "version", version.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"signaling": func(ctx context.Context) error {
			// Stop accepting upgrades before closing the live connections.
			err := srv.Shutdown(ctx)
			hub.Stop()
			return err
		},
	})

	exitCode := <-wait
	slog.Info("server stopped", "code", exitCode)
	return exitCode
}

func main() {
	config.LoadDotEnv()
	logging.Init(slog.LevelInfo)

	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to start", "err", err)
		os.Exit(1)
	}
}
