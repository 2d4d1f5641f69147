package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/placerworks/pnpvision/internal/camera"
	"github.com/placerworks/pnpvision/internal/liveview"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the camera live view",
	Long: `Start the live-view server: continuous capture from the configured
camera streamed to websocket clients on /v1/stream, with prometheus
metrics on /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "listen host (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	serverCfg := globalConfig.Server
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		serverCfg.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		serverCfg.Port = port
	}

	cam, err := buildCamera()
	if err != nil {
		return err
	}
	broadcaster := camera.NewBroadcaster(cam, slog.Default())
	server := liveview.New(serverCfg.Address(), cam, broadcaster, slog.Default())

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
