package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/mosaic/pkg/logger"
	"github.com/jingkaihe/mosaic/pkg/presenter"
	"github.com/jingkaihe/mosaic/pkg/settings"
	"github.com/jingkaihe/mosaic/pkg/signals"
	"github.com/jingkaihe/mosaic/pkg/site"
)

func init() {
	// Environment variables, e.g. MOSAIC_PATH or MOSAIC_TRACING_ENABLED
	viper.SetEnvPrefix("MOSAIC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	// Config file support
	viper.SetConfigName("mosaic")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.mosaic")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("path", settings.DefaultPath)
	v.SetDefault("output", "output")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sampler", "ratio")
	v.SetDefault("tracing.ratio", 1.0)
}

var rootCmd = &cobra.Command{
	Use:   "mosaic",
	Short: "Render Markdown sites with image and image-grid directives",
	Long: `Mosaic renders a directory of Markdown pages to HTML. Pages can place
photos with the image directive and lay out captioned photo rows with the
image-grid directive, whose captions are read from the photos' EXIF data.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if err := logger.SetLogLevel(viper.GetString("log_level")); err != nil {
			return errors.Wrapf(err, "invalid log level %q", viper.GetString("log_level"))
		}
		logger.SetLogFormat(viper.GetString("log_format"))
		return nil
	},
}

// newSite builds a site from cfg, reports page diagnostics through the
// presenter and sends the initialized signal.
func newSite(ctx context.Context, cfg settings.Getter, opts ...site.Option) (*site.Site, error) {
	s, err := site.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	s.Bus().Connect(signals.PageRendered, reportDiagnostics)

	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func reportDiagnostics(_ context.Context, sender any) error {
	page, ok := sender.(*site.Page)
	if !ok {
		return nil
	}
	for _, msg := range page.Messages {
		presenter.Diagnostic(page.Source, msg)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Add global flags
	rootCmd.PersistentFlags().String("path", settings.DefaultPath, "Content root holding pages and photos")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text or json)")

	// Bind flags to viper
	viper.BindPFlag("path", rootCmd.PersistentFlags().Lookup("path"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add subcommands
	rootCmd.AddCommand(withTracing(renderCmd))
	rootCmd.AddCommand(withTracing(watchCmd))
	rootCmd.AddCommand(withTracing(serveCmd))
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		presenter.Error(err, "")
		stop()
		os.Exit(1)
	}
}
