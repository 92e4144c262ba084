package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openglam/masthead/internal/config"
	"github.com/openglam/masthead/internal/home"
	"github.com/openglam/masthead/internal/server"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the masthead server",
	Long: `Start the masthead HTTP server.

This starts the HTTP API server and, when configured, the managed
Tesseract OCR container. When the server shuts down (via Ctrl+C or
SIGTERM), the container is also stopped.

Examples:
  masthead serve                    # Start on default port 8090
  masthead serve --port 3000        # Start on custom port
  masthead serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Set up logger
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := getHome()
		if err != nil {
			return err
		}

		mgr, err := getConfigManager(h)
		if err != nil {
			return err
		}
		mgr.WatchConfig()

		// Flags win over the config file.
		appCfg := mgr.Get()
		host := appCfg.Server.Host
		port := appCfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			ConfigManager: mgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().IntVar(&servePort, "port", 8090, "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}

// getHome returns the home directory manager.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}
	return h, nil
}

// getConfigManager loads configuration, writing a default config file
// into the home directory on first run.
func getConfigManager(h *home.Dir) (*config.Manager, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err != nil {
			// No config in the working directory; fall back to the home
			// directory, seeding it on first run.
			if !h.ConfigExists() {
				if err := config.WriteDefault(h.ConfigPath()); err != nil {
					return nil, fmt.Errorf("failed to write default config: %w", err)
				}
				fmt.Printf("Wrote default config to %s\n", h.ConfigPath())
			}
			path = h.ConfigPath()
		}
	}
	return config.NewManager(path)
}
