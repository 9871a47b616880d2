package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/event-faces/internal/config"
	"github.com/kozaktomas/event-faces/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Event Faces API server.
The server accepts selfie match and gallery clustering jobs, reports their
progress over Server-Sent Events and keeps finished results for an hour.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT or 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST or 0.0.0.0)")
}

// resolveServeHostPort prefers flags over the WEB_PORT and WEB_HOST settings.
func resolveServeHostPort(cmd *cobra.Command, cfg config.WebConfig) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if port == 0 {
		port = cfg.Port
	}
	if host == "" {
		host = cfg.Host
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	deps := web.Dependencies{
		Engine: a.engine,
		Store:  a.store,
		Logger: a.logger,
	}
	if a.registry != nil {
		deps.Registry = a.registry
		fmt.Printf("Event lookup enabled (DynamoDB table %s)\n", a.cfg.Events.Table)
	}

	port, host := resolveServeHostPort(cmd, a.cfg.Web)
	server := web.NewServer(a.cfg, deps, port, host)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Event Faces API on http://%s:%d (oracle: %s, storage: %s)\n",
		host, port, a.cfg.Oracle.Provider, a.cfg.Storage.Backend)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
