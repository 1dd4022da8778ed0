package site

import (
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/jingkaihe/mosaic/pkg/markup"
)

// Page is a rendered content file.
type Page struct {
	// Source is the path of the Markdown file relative to the content root.
	Source string
	Title  string
	Slug   string
	Draft  bool
	Tags   []string
	// Meta holds the raw front matter.
	Meta map[string]any
	HTML []byte
	// Messages are the diagnostics reported while converting the page.
	Messages []*markup.SystemMessage
}

type frontMatter struct {
	Title string   `mapstructure:"title"`
	Slug  string   `mapstructure:"slug"`
	Draft bool     `mapstructure:"draft"`
	Tags  []string `mapstructure:"tags"`
}

func (p *Page) decodeMeta(raw map[string]any) error {
	p.Meta = raw
	if len(raw) == 0 {
		return nil
	}

	var fm frontMatter
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &fm,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create front matter decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return errors.Wrap(err, "failed to decode front matter")
	}

	p.Title = fm.Title
	p.Slug = fm.Slug
	p.Draft = fm.Draft
	p.Tags = fm.Tags
	return nil
}

// Name is the output file name of the page without extension: its slug,
// or the source file name.
func (p *Page) Name() string {
	if p.Slug != "" {
		return p.Slug
	}
	base := filepath.Base(p.Source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
