// Package site is the Markdown site pipeline hosting the image directives.
// It owns the goldmark instance, the directive registry and the lifecycle
// signal bus, and turns content files into HTML pages.
package site

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aymanbagabas/go-udiff"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/mosaic/pkg/directives"
	"github.com/jingkaihe/mosaic/pkg/logger"
	"github.com/jingkaihe/mosaic/pkg/markup"
	"github.com/jingkaihe/mosaic/pkg/settings"
	"github.com/jingkaihe/mosaic/pkg/signals"
	"github.com/jingkaihe/mosaic/pkg/telemetry"
)

// DefaultPattern matches every Markdown file under the content root.
const DefaultPattern = "**/*.md"

// Site converts content files to HTML with the directives installed.
type Site struct {
	cfg      settings.Getter
	registry *markup.Registry
	bus      *signals.Bus
	plugin   *directives.Plugin
	md       goldmark.Markdown

	directiveOpts []directives.Option
}

// Option configures a Site.
type Option func(*Site)

// WithDirectiveOptions passes options to directives.Register.
func WithDirectiveOptions(opts ...directives.Option) Option {
	return func(s *Site) {
		s.directiveOpts = append(s.directiveOpts, opts...)
	}
}

// WithBus uses bus instead of a private signal bus, so callers can connect
// their own receivers.
func WithBus(bus *signals.Bus) Option {
	return func(s *Site) {
		s.bus = bus
	}
}

// New builds a site reading its settings from cfg. The directives are
// registered here but only configured once Initialize is called.
func New(cfg settings.Getter, opts ...Option) (*Site, error) {
	if cfg == nil {
		return nil, settings.ErrNoGetter
	}

	s := &Site{
		cfg:      cfg,
		registry: markup.NewRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bus == nil {
		s.bus = signals.NewBus()
	}

	plugin, err := directives.Register(s.registry, s.bus, s.directiveOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to register directives")
	}
	s.plugin = plugin

	s.md = goldmark.New(
		goldmark.WithExtensions(
			meta.Meta,
			markup.NewExtension(s.registry, markup.WithURLResolver(s.resolveURL)),
		),
	)
	return s, nil
}

// Bus returns the signal bus of the site.
func (s *Site) Bus() *signals.Bus {
	return s.bus
}

// Registry returns the directive registry of the site.
func (s *Site) Registry() *markup.Registry {
	return s.registry
}

// Settings returns the settings captured by the directives.
func (s *Site) Settings() settings.Settings {
	return s.plugin.Settings
}

// Initialize sends the initialized signal with the host settings.
func (s *Site) Initialize(ctx context.Context) error {
	if err := s.bus.Send(ctx, signals.Initialized, s.cfg); err != nil {
		return errors.Wrap(err, "failed to initialize site")
	}
	logger.G(ctx).WithField("path", s.plugin.Settings.Path).Debug("site initialized")
	return nil
}

// Finalize sends the finalized signal with the pages of a render run.
func (s *Site) Finalize(ctx context.Context, pages []*Page) error {
	return s.bus.Send(ctx, signals.Finalized, pages)
}

// Render converts the Markdown file at path. A relative path is taken
// relative to the content root. The first fatal directive error aborts
// the page.
func (s *Site) Render(ctx context.Context, path string) (*Page, error) {
	root, err := s.plugin.Settings.ContentRoot()
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}

	var page *Page
	err = telemetry.WithSpan(ctx, "site.render", func(ctx context.Context) error {
		src, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", path)
		}
		page, err = s.convert(ctx, root, path, src)
		return err
	}, attribute.String("page.path", path))
	if err != nil {
		return nil, err
	}

	if err := s.bus.Send(ctx, signals.PageRendered, page); err != nil {
		return page, err
	}
	return page, nil
}

func (s *Site) convert(ctx context.Context, root, path string, src []byte) (*Page, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	ctx = logger.WithFields(ctx, logrus.Fields{"page": rel})

	d := markup.NewDocument(ctx, rel)
	pc := markup.NewParserContext(d)
	doc := s.md.Parser().Parse(text.NewReader(src), parser.WithContext(pc))
	if err := d.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to render %s", rel)
	}

	page := &Page{Source: rel, Messages: d.Messages()}
	if err := page.decodeMeta(meta.Get(pc)); err != nil {
		return nil, errors.Wrapf(err, "invalid front matter in %s", rel)
	}

	var buf bytes.Buffer
	if err := s.md.Renderer().Render(&buf, src, doc); err != nil {
		return nil, errors.Wrapf(err, "failed to write HTML for %s", rel)
	}
	page.HTML = buf.Bytes()

	logger.G(ctx).WithField("diagnostics", len(page.Messages)).Debug("page rendered")
	return page, nil
}

// Pages expands patterns relative to the content root and returns the
// matching paths relative to it, sorted and without duplicates.
func (s *Site) Pages(patterns ...string) ([]string, error) {
	root, err := s.plugin.Settings.ContentRoot()
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		patterns = []string{DefaultPattern}
	}

	seen := make(map[string]bool)
	var paths []string
	fsys := os.DirFS(root)
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to expand %q", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, filepath.FromSlash(m))
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// RenderAll renders every page matching patterns. Failing pages do not
// stop the run; their errors are returned together. Drafts are skipped.
func (s *Site) RenderAll(ctx context.Context, patterns ...string) ([]*Page, error) {
	paths, err := s.Pages(patterns...)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithFields(ctx, logrus.Fields{"run_id": uuid.NewString()})
	log := logger.G(ctx)

	var (
		pages  []*Page
		result *multierror.Error
	)
	for _, path := range paths {
		page, err := s.Render(ctx, path)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if page.Draft {
			log.WithField("page", path).Info("skipping draft")
			continue
		}
		pages = append(pages, page)
	}

	log.WithField("pages", len(pages)).WithField("failed", failures(result)).Info("render complete")
	return pages, result.ErrorOrNil()
}

func failures(err *multierror.Error) int {
	if err == nil {
		return 0
	}
	return len(err.Errors)
}

// OutputPath returns where page is written under outDir.
func OutputPath(page *Page, outDir string) string {
	return filepath.Join(outDir, filepath.Dir(page.Source), page.Name()+".html")
}

// Write writes page under outDir and returns the written path.
func Write(page *Page, outDir string) (string, error) {
	out := OutputPath(page, outDir)
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create %s", filepath.Dir(out))
	}
	if err := os.WriteFile(out, page.HTML, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", out)
	}
	return out, nil
}

// Diff returns a unified diff from the page's current output under outDir
// to its new HTML. It is empty when the output is up to date.
func Diff(page *Page, outDir string) (string, error) {
	out := OutputPath(page, outDir)
	current, err := os.ReadFile(out)
	if err != nil && !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "failed to read %s", out)
	}
	if bytes.Equal(current, page.HTML) {
		return "", nil
	}
	return udiff.Unified(out, out, string(current), string(page.HTML)), nil
}

// resolveURL rewrites "{filename}/x" and files under the content root to
// site-root-relative URLs.
func (s *Site) resolveURL(uri string) string {
	if rest, ok := strings.CutPrefix(uri, settings.FilenamePlaceholder); ok {
		return "/" + strings.TrimLeft(filepath.ToSlash(rest), "/")
	}
	if !filepath.IsAbs(uri) {
		return uri
	}

	root, err := s.plugin.Settings.ContentRoot()
	if err != nil {
		return uri
	}
	rel, err := filepath.Rel(root, uri)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return uri
	}
	return "/" + filepath.ToSlash(rel)
}
