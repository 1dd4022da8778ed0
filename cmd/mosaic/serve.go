package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/mosaic/pkg/logger"
	"github.com/jingkaihe/mosaic/pkg/preview"
)

// NewServeConfig creates a preview server configuration with default values
func NewServeConfig() *preview.ServerConfig {
	return &preview.ServerConfig{
		Host: "localhost",
		Port: 8080,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a live preview of the site",
	Long: `Start a local web server that renders pages on every request, so edits
to pages and photos show up on reload. Page diagnostics are available from
the JSON API under /api/pages.

The server will be available at http://localhost:8080 by default.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		config := getServeConfigFromFlags(cmd)

		s, err := newSite(ctx, viper.GetViper())
		if err != nil {
			return err
		}
		return runServeCommand(ctx, s, config)
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the preview server to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the preview server to")
}

// getServeConfigFromFlags extracts serve configuration from command flags
func getServeConfigFromFlags(cmd *cobra.Command) *preview.ServerConfig {
	config := NewServeConfig()

	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}

	return config
}

func runServeCommand(ctx context.Context, s preview.Site, config *preview.ServerConfig) error {
	if config.Port < 1024 {
		logger.G(ctx).WithField("port", config.Port).Warn("using privileged port (< 1024) may require elevated permissions")
	}

	server, err := preview.NewServer(s, config)
	if err != nil {
		return errors.Wrap(err, "failed to create preview server")
	}

	logger.G(ctx).WithFields(map[string]any{
		"host": config.Host,
		"port": config.Port,
	}).Info("starting preview server")

	return server.Start(ctx)
}
