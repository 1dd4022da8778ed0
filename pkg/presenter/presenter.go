// Package presenter writes user-facing CLI output: render results, page
// diagnostics and errors, with color support and a quiet mode.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/jingkaihe/mosaic/pkg/markup"
)

// Summary describes the outcome of a render run.
type Summary struct {
	Pages       int
	Written     int
	Unchanged   int
	Diagnostics int
	Failed      int
}

// Presenter defines the interface for consistent CLI output
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Diagnostic(source string, msg *markup.SystemMessage)
	Summary(s Summary)
	Separator()
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// TerminalPresenter implements Presenter for terminal output
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
	quiet       bool
}

// ColorMode represents different color output modes
type ColorMode int

const (
	// ColorAuto automatically detects whether to use colored output based on terminal capabilities
	ColorAuto ColorMode = iota
	// ColorAlways forces colored output regardless of terminal capabilities
	ColorAlways
	// ColorNever disables colored output regardless of terminal capabilities
	ColorNever
)

// New creates a new TerminalPresenter with default settings
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, detectColorMode())
}

// NewWithOptions creates a TerminalPresenter with custom settings
func NewWithOptions(output, errorOutput io.Writer, colorMode ColorMode) *TerminalPresenter {
	switch colorMode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}

	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		colorMode:   colorMode,
	}
}

// detectColorMode reads NO_COLOR and MOSAIC_COLOR.
func detectColorMode() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}

	switch os.Getenv("MOSAIC_COLOR") {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// Error displays an error message to stderr
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}

	errorColor := color.New(color.FgRed, color.Bold)
	if context != "" {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
	} else {
		errorColor.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
	}
}

// Success displays a success message
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", message)
}

// Warning displays a warning message
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.output, "⚠ %s\n", message)
}

// Info displays an informational message
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.output, "%s\n", message)
}

// Section displays a section header with consistent formatting
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}

	headerColor := color.New(color.Bold)
	headerColor.Fprintf(p.output, "%s\n", title)
	headerColor.Fprintf(p.output, "%s\n", strings.Repeat("-", len(title)))
}

// Diagnostic prints a page diagnostic as "source:line: LEVEL message".
// Errors always go to stderr, even in quiet mode.
func (p *TerminalPresenter) Diagnostic(source string, msg *markup.SystemMessage) {
	if msg == nil {
		return
	}

	location := source
	if msg.Line > 0 {
		location = fmt.Sprintf("%s:%d", source, msg.Line)
	}
	text := strings.ReplaceAll(msg.Message, "\n", " ")

	switch {
	case msg.Level >= markup.LevelError:
		color.New(color.FgRed).Fprintf(p.errorOutput, "%s: %s %s\n", location, msg.Level, text)
	case p.quiet:
		return
	case msg.Level == markup.LevelWarning:
		color.New(color.FgYellow).Fprintf(p.output, "%s: %s %s\n", location, msg.Level, text)
	default:
		fmt.Fprintf(p.output, "%s: %s %s\n", location, msg.Level, text)
	}
}

// Summary displays the totals of a render run.
func (p *TerminalPresenter) Summary(s Summary) {
	if p.quiet {
		return
	}

	summaryColor := color.New(color.FgCyan, color.Bold)
	summaryColor.Fprintf(p.output, "[Render] Pages: %d | Written: %d | Unchanged: %d | Diagnostics: %d | Failed: %d\n",
		s.Pages, s.Written, s.Unchanged, s.Diagnostics, s.Failed)
}

// Separator displays a visual separator
func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintf(p.output, "%s\n", strings.Repeat("-", 60))
}

// SetQuiet enables or disables quiet mode
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// IsQuiet returns whether quiet mode is enabled
func (p *TerminalPresenter) IsQuiet() bool {
	return p.quiet
}

// Global presenter instance for convenience
var defaultPresenter = New()

// Error displays an error message using the default presenter instance.
func Error(err error, context string) {
	defaultPresenter.Error(err, context)
}

// Success displays a success message using the default presenter instance.
func Success(message string) {
	defaultPresenter.Success(message)
}

// Warning displays a warning message using the default presenter instance.
func Warning(message string) {
	defaultPresenter.Warning(message)
}

// Info displays an informational message using the default presenter instance.
func Info(message string) {
	defaultPresenter.Info(message)
}

// Section displays a section header using the default presenter instance.
func Section(title string) {
	defaultPresenter.Section(title)
}

// Diagnostic displays a page diagnostic using the default presenter instance.
func Diagnostic(source string, msg *markup.SystemMessage) {
	defaultPresenter.Diagnostic(source, msg)
}

// ShowSummary displays render totals using the default presenter instance.
func ShowSummary(s Summary) {
	defaultPresenter.Summary(s)
}

// Separator displays a visual separator using the default presenter instance.
func Separator() {
	defaultPresenter.Separator()
}

// SetQuiet enables or disables quiet mode for the default presenter instance.
func SetQuiet(quiet bool) {
	defaultPresenter.SetQuiet(quiet)
}

// IsQuiet returns whether quiet mode is enabled for the default presenter instance.
func IsQuiet() bool {
	return defaultPresenter.IsQuiet()
}
