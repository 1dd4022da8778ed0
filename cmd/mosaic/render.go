package main

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/mosaic/pkg/logger"
	"github.com/jingkaihe/mosaic/pkg/presenter"
	"github.com/jingkaihe/mosaic/pkg/site"
)

// ErrOutOfDate is returned by render --check when a page's output differs
// from what would be written.
var ErrOutOfDate = errors.New("rendered output is out of date")

// RenderConfig holds configuration for the render command
type RenderConfig struct {
	Output string
	Stdout bool
	Check  bool
}

// NewRenderConfig creates a new RenderConfig with default values
func NewRenderConfig() *RenderConfig {
	return &RenderConfig{
		Output: viper.GetString("output"),
	}
}

// Validate validates the RenderConfig and returns an error if invalid
func (c *RenderConfig) Validate() error {
	if c.Stdout && c.Check {
		return errors.New("--stdout and --check cannot be combined")
	}
	if !c.Stdout && c.Output == "" {
		return errors.New("output directory cannot be empty")
	}
	return nil
}

var renderCmd = &cobra.Command{
	Use:   "render [patterns...]",
	Short: "Render Markdown pages to HTML",
	Long: `Render the Markdown pages of the content root to HTML.

Patterns are doublestar globs relative to the content root and default to
"**/*.md". Page diagnostics are reported as they are found; a page whose
image directives fail is not written, but the other pages still are.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := getRenderConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			return errors.Wrap(err, "invalid configuration")
		}

		s, err := newSite(ctx, viper.GetViper())
		if err != nil {
			return err
		}

		summary, err := runRender(ctx, s, args, config, cmd.OutOrStdout())
		if !config.Stdout {
			presenter.ShowSummary(summary)
		}
		return err
	},
}

func init() {
	renderCmd.Flags().StringP("output", "o", "", "Output directory (overrides config)")
	renderCmd.Flags().Bool("stdout", false, "Print the rendered HTML instead of writing files")
	renderCmd.Flags().Bool("check", false, "Print a diff for pages whose output is out of date and fail without writing")
}

// getRenderConfigFromFlags extracts render configuration from command flags
func getRenderConfigFromFlags(cmd *cobra.Command) *RenderConfig {
	config := NewRenderConfig()

	if output, err := cmd.Flags().GetString("output"); err == nil && output != "" {
		config.Output = output
	}
	if stdout, err := cmd.Flags().GetBool("stdout"); err == nil {
		config.Stdout = stdout
	}
	if check, err := cmd.Flags().GetBool("check"); err == nil {
		config.Check = check
	}

	return config
}

// runRender renders the pages matching patterns and writes, prints or
// checks them according to config.
func runRender(ctx context.Context, s *site.Site, patterns []string, config *RenderConfig, out io.Writer) (presenter.Summary, error) {
	pages, renderErr := s.RenderAll(ctx, patterns...)

	var result *multierror.Error
	if renderErr != nil {
		result = multierror.Append(result, renderErr)
	}

	summary := presenter.Summary{Pages: len(pages), Failed: failedPages(renderErr)}
	stale := 0
	for _, page := range pages {
		summary.Diagnostics += len(page.Messages)

		if config.Stdout {
			fmt.Fprintf(out, "%s", page.HTML)
			continue
		}

		diff, err := site.Diff(page, config.Output)
		if err != nil {
			result = multierror.Append(result, err)
			summary.Failed++
			continue
		}
		if diff == "" {
			summary.Unchanged++
			continue
		}

		if config.Check {
			stale++
			fmt.Fprint(out, diff)
			continue
		}

		path, err := site.Write(page, config.Output)
		if err != nil {
			result = multierror.Append(result, err)
			summary.Failed++
			continue
		}
		summary.Written++
		logger.G(ctx).WithField("page", page.Source).WithField("output", path).Debug("page written")
	}

	if err := s.Finalize(ctx, pages); err != nil {
		result = multierror.Append(result, err)
	}
	if stale > 0 {
		result = multierror.Append(result, errors.Wrapf(ErrOutOfDate, "%d page(s) differ from %s", stale, config.Output))
	}
	return summary, result.ErrorOrNil()
}

func failedPages(err error) int {
	if err == nil {
		return 0
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return len(merr.Errors)
	}
	return 1
}
