// Package directives provides the "image" and "image-grid" markup
// directives and the plugin entry point that installs them into a site.
package directives

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/jingkaihe/mosaic/pkg/logger"
	"github.com/jingkaihe/mosaic/pkg/markup"
	"github.com/jingkaihe/mosaic/pkg/photo"
	"github.com/jingkaihe/mosaic/pkg/settings"
	"github.com/jingkaihe/mosaic/pkg/signals"
)

// Directive names.
const (
	ImageName     = "image"
	ImageGridName = "image-grid"
)

// Plugin owns the settings shared by the directives.
type Plugin struct {
	Settings settings.Settings

	once sync.Once
}

// Option configures Register.
type Option func(*options)

type options struct {
	reader photo.Reader
}

// WithReader sets the photo reader used by the grid directive.
func WithReader(r photo.Reader) Option {
	return func(o *options) {
		o.reader = r
	}
}

// Register connects the configuration hook to the initialized signal and
// installs both directives into reg, replacing any existing "image" handler.
func Register(reg *markup.Registry, bus *signals.Bus, opts ...Option) (*Plugin, error) {
	if reg == nil {
		return nil, errors.New("directive registry is required")
	}
	if bus == nil {
		return nil, errors.New("signal bus is required")
	}

	o := options{reader: photo.NewReader()}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Plugin{Settings: settings.Default()}

	imageGrid, err := NewImageGrid(&p.Settings, o.reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create image-grid directive")
	}

	bus.Connect(signals.Initialized, p.Configure)
	reg.Register(ImageName, NewImage())
	reg.Register(ImageGridName, imageGrid)
	return p, nil
}

// Configure reads the content path from sender, which must implement
// settings.Getter. Only the first call has an effect.
func (p *Plugin) Configure(ctx context.Context, sender any) error {
	g, ok := sender.(settings.Getter)
	if !ok {
		return errors.Wrapf(settings.ErrNoGetter, "got %T", sender)
	}

	var (
		err  error
		done bool
	)
	p.once.Do(func() {
		done = true
		var s settings.Settings
		s, err = settings.FromGetter(g)
		if err != nil {
			return
		}
		p.Settings = s
		logger.G(ctx).WithField("path", s.Path).Debug("configured content path")
	})
	if !done {
		logger.G(ctx).Debug("settings already configured, ignoring")
	}
	return err
}
