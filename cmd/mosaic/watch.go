package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/mosaic/pkg/logger"
	"github.com/jingkaihe/mosaic/pkg/presenter"
	"github.com/jingkaihe/mosaic/pkg/site"
)

// WatchConfig holds configuration for the watch command
type WatchConfig struct {
	Output string
	// Ignore holds globs matched against slash-separated paths relative
	// to the content root.
	Ignore       []string
	DebounceTime int
	Attempts     uint

	ignore []glob.Glob
}

// NewWatchConfig creates a new WatchConfig with default values
func NewWatchConfig() *WatchConfig {
	return &WatchConfig{
		Output:       viper.GetString("output"),
		Ignore:       []string{".*", "**/.*", "**~", "**.swp"},
		DebounceTime: 300,
		Attempts:     3,
	}
}

// Validate validates the WatchConfig and compiles its ignore globs.
func (c *WatchConfig) Validate() error {
	if c.Output == "" {
		return errors.New("output directory cannot be empty")
	}
	if c.DebounceTime < 0 {
		return errors.Errorf("debounce time cannot be negative: %d", c.DebounceTime)
	}
	if c.Attempts == 0 {
		return errors.New("attempts must be at least 1")
	}

	c.ignore = c.ignore[:0]
	for _, pattern := range c.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return errors.Wrapf(err, "invalid ignore pattern %q", pattern)
		}
		c.ignore = append(c.ignore, g)
	}
	return nil
}

// Ignored reports whether rel, a path relative to the content root,
// matches one of the ignore globs.
func (c *WatchConfig) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, g := range c.ignore {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// FileEvent represents a file system event with additional metadata
type FileEvent struct {
	// Path is relative to the content root.
	Path string
	Op   fsnotify.Op
	Time time.Time
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-render pages when content or photos change",
	Long: `Render the site, then watch the content root and re-render on change.

A changed Markdown page is re-rendered on its own. Any other change, such as
a photo being replaced, re-renders every page since image grids read their
captions and sizes from the photos.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		config := getWatchConfigFromFlags(cmd)
		if err := config.Validate(); err != nil {
			return errors.Wrap(err, "invalid configuration")
		}

		s, err := newSite(ctx, viper.GetViper())
		if err != nil {
			return err
		}
		return runWatchMode(ctx, s, config)
	},
}

func init() {
	defaults := NewWatchConfig()
	watchCmd.Flags().StringP("output", "o", "", "Output directory (overrides config)")
	watchCmd.Flags().StringSliceP("ignore", "i", defaults.Ignore, "Globs of content paths to ignore")
	watchCmd.Flags().IntP("debounce", "d", defaults.DebounceTime, "Debounce time in milliseconds for file change events")
	watchCmd.Flags().Uint("attempts", defaults.Attempts, "Render attempts for a changed page before giving up")
}

// getWatchConfigFromFlags extracts watch configuration from command flags
func getWatchConfigFromFlags(cmd *cobra.Command) *WatchConfig {
	config := NewWatchConfig()

	if output, err := cmd.Flags().GetString("output"); err == nil && output != "" {
		config.Output = output
	}
	if ignore, err := cmd.Flags().GetStringSlice("ignore"); err == nil {
		config.Ignore = ignore
	}
	if debounceTime, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.DebounceTime = debounceTime
	}
	if attempts, err := cmd.Flags().GetUint("attempts"); err == nil {
		config.Attempts = attempts
	}

	return config
}

func runWatchMode(ctx context.Context, s *site.Site, config *WatchConfig) error {
	root, err := s.Settings().ContentRoot()
	if err != nil {
		return err
	}

	summary, err := runRender(ctx, s, nil, &RenderConfig{Output: config.Output}, io.Discard)
	presenter.ShowSummary(summary)
	if err != nil {
		presenter.Error(err, "initial render failed")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	if err := addWatchDirs(ctx, watcher, root, root, config); err != nil {
		return errors.Wrap(err, "failed to watch directories")
	}

	events := make(chan FileEvent)
	debouncedEvents := make(chan FileEvent)

	go debounceFileEvents(ctx, events, debouncedEvents, time.Duration(config.DebounceTime)*time.Millisecond)
	go filterWatchEvents(ctx, watcher, root, config, events)

	presenter.Info(fmt.Sprintf("Watching %s for changes... Press Ctrl+C to stop", root))
	logger.G(ctx).WithField("root", root).Info("file watcher initialized")

	for {
		select {
		case event := <-debouncedEvents:
			logger.G(ctx).WithFields(map[string]any{
				"file":      event.Path,
				"operation": event.Op.String(),
				"timestamp": event.Time,
			}).Debug("file change detected")

			if err := processFileChange(ctx, s, config, event); err != nil {
				presenter.Error(err, fmt.Sprintf("failed to re-render after change to %s", event.Path))
			}
		case <-ctx.Done():
			presenter.Warning("Stopped watching")
			return nil
		}
	}
}

type dirWatcher interface {
	Add(name string) error
}

// addWatchDirs adds dir and every directory below it to the watcher,
// skipping ignored ones. root is the content root.
func addWatchDirs(ctx context.Context, watcher dirWatcher, root, dir string, config *WatchConfig) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil && rel != "." && config.Ignored(rel) {
			logger.G(ctx).WithField("directory", path).Debug("skipping ignored directory")
			return filepath.SkipDir
		}
		logger.G(ctx).WithField("directory", path).Debug("adding directory to watcher")
		return watcher.Add(path)
	})
}

// filterWatchEvents forwards the watcher's relevant events to out, with
// paths relative to root. New directories are watched as they appear.
func filterWatchEvents(ctx context.Context, watcher *fsnotify.Watcher, root string, config *WatchConfig, out chan<- FileEvent) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			fileEvent, ok := toFileEvent(root, config, event)
			if !ok {
				continue
			}

			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatchDirs(ctx, watcher, root, event.Name, config); err != nil {
						logger.G(ctx).WithError(err).WithField("directory", event.Name).Warn("failed to watch new directory")
					}
					continue
				}
			}

			select {
			case out <- fileEvent:
			case <-ctx.Done():
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			presenter.Error(err, "File watcher error")
			logger.G(ctx).WithError(err).Error("error watching files")
		case <-ctx.Done():
			return
		}
	}
}

// toFileEvent converts a watcher event, dropping chmod-only events and
// ignored paths.
func toFileEvent(root string, config *WatchConfig, event fsnotify.Event) (FileEvent, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return FileEvent{}, false
	}

	rel, err := filepath.Rel(root, event.Name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return FileEvent{}, false
	}
	if config.Ignored(rel) {
		return FileEvent{}, false
	}

	return FileEvent{Path: rel, Op: event.Op, Time: time.Now()}, true
}

// debounceFileEvents holds each path's event until no further event for
// that path arrived within delay, then forwards the latest one.
func debounceFileEvents(ctx context.Context, input <-chan FileEvent, output chan<- FileEvent, delay time.Duration) {
	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
	)

	stopAll := func() {
		mu.Lock()
		defer mu.Unlock()
		for path, timer := range pending {
			timer.Stop()
			delete(pending, path)
		}
	}

	for {
		select {
		case event, ok := <-input:
			if !ok {
				stopAll()
				return
			}

			mu.Lock()
			if timer, exists := pending[event.Path]; exists {
				timer.Stop()
			}
			eventCopy := event
			var timer *time.Timer
			timer = time.AfterFunc(delay, func() {
				select {
				case output <- eventCopy:
				case <-ctx.Done():
				}
				mu.Lock()
				if pending[eventCopy.Path] == timer {
					delete(pending, eventCopy.Path)
				}
				mu.Unlock()
			})
			pending[event.Path] = timer
			mu.Unlock()
		case <-ctx.Done():
			stopAll()
			return
		}
	}
}

// processFileChange re-renders after a change. A Markdown page that was
// written is rendered on its own, retrying while its photos may still be
// mid-write; anything else triggers a full render.
func processFileChange(ctx context.Context, s *site.Site, config *WatchConfig, event FileEvent) error {
	removed := event.Op&(fsnotify.Remove|fsnotify.Rename) != 0
	if removed || filepath.Ext(event.Path) != ".md" {
		summary, err := runRender(ctx, s, nil, &RenderConfig{Output: config.Output}, io.Discard)
		presenter.ShowSummary(summary)
		return err
	}

	var page *site.Page
	err := retry.Do(
		func() error {
			var err error
			page, err = s.Render(ctx, event.Path)
			return err
		},
		retry.Attempts(config.Attempts),
		retry.Delay(100*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, os.ErrNotExist)
		}),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).WithField("page", event.Path).Warn("retrying page render")
		}),
	)
	if err != nil {
		return err
	}

	if page.Draft {
		logger.G(ctx).WithField("page", page.Source).Info("skipping draft")
		return nil
	}

	path, err := site.Write(page, config.Output)
	if err != nil {
		return err
	}
	presenter.Success(fmt.Sprintf("Rendered %s -> %s", page.Source, path))
	return nil
}
