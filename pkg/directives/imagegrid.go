package directives

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark/ast"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/mosaic/pkg/grid"
	"github.com/jingkaihe/mosaic/pkg/logger"
	"github.com/jingkaihe/mosaic/pkg/markup"
	"github.com/jingkaihe/mosaic/pkg/photo"
	"github.com/jingkaihe/mosaic/pkg/settings"
	"github.com/jingkaihe/mosaic/pkg/telemetry"
)

// ErrGridUnsupported is returned when the grid directive is built without
// a photo reader.
var ErrGridUnsupported = errors.New("image-grid directive requires a photo reader")

// Grid container classes.
const (
	GridClass    = "m-imagegrid"
	InflateClass = "m-container-inflate"
)

// ImageGrid is the "image-grid" directive. Each content line is an image;
// blank lines start a new row.
type ImageGrid struct {
	settings *settings.Settings
	reader   photo.Reader
}

// NewImageGrid returns the grid directive. cfg is read on every run, so it
// may be filled in after construction by the configuration hook.
func NewImageGrid(cfg *settings.Settings, reader photo.Reader) (*ImageGrid, error) {
	if reader == nil {
		return nil, ErrGridUnsupported
	}
	if cfg == nil {
		def := settings.Default()
		cfg = &def
	}
	return &ImageGrid{settings: cfg, reader: reader}, nil
}

// Spec implements markup.Handler.
func (d *ImageGrid) Spec() markup.Spec {
	return markup.Spec{HasContent: true}
}

// Run implements markup.Handler.
func (d *ImageGrid) Run(inv *markup.Invocation) ([]ast.Node, error) {
	ctx := inv.Context()
	layout := grid.New()

	for _, line := range inv.Content {
		if strings.TrimSpace(line) == "" {
			layout.Break()
			continue
		}

		// The figure links to the URI as written; only the reader sees the
		// expanded path.
		uri, err := markup.URI(line)
		if err != nil {
			return nil, err
		}
		path, err := d.settings.Expand(uri)
		if err != nil {
			return nil, err
		}

		p, err := d.reader.Read(path)
		if err != nil {
			return nil, err
		}
		caption, err := p.Caption()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build caption for %s", path)
		}

		item, err := layout.Add(uri, p.Width, p.Height, caption)
		if err != nil {
			return nil, err
		}

		logger.G(ctx).WithFields(logrus.Fields{
			"uri":          uri,
			"path":         path,
			"aspect_ratio": item.AspectRatio,
			"row":          item.Row,
		}).Debug("placed image in grid")
		telemetry.AddEvent(ctx, "grid.image",
			attribute.String("uri", uri),
			attribute.Float64("aspect_ratio", item.AspectRatio),
			attribute.Int("row", item.Row),
		)
	}

	container := markup.NewContainer(GridClass, InflateClass)
	for _, item := range layout.Items() {
		container.AppendChild(container, d.figure(inv, item))
	}
	return []ast.Node{container}, nil
}

func (d *ImageGrid) figure(inv *markup.Invocation, item grid.Item) *markup.Figure {
	para := ast.NewParagraph()
	for _, n := range inv.InlineText(item.Caption) {
		para.AppendChild(para, n)
	}
	caption := markup.NewCaption()
	caption.AppendChild(caption, para)

	ref := markup.NewURIReference(item.URI)
	ref.AppendChild(ref, markup.NewImage(item.URI))
	ref.AppendChild(ref, caption)

	fig := markup.NewFigure(item.Width)
	fig.AppendChild(fig, ref)
	return fig
}
