package directives

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"

	"github.com/jingkaihe/mosaic/pkg/grid"
	"github.com/jingkaihe/mosaic/pkg/markup"
	"github.com/jingkaihe/mosaic/pkg/photo"
	"github.com/jingkaihe/mosaic/pkg/photo/phototest"
	"github.com/jingkaihe/mosaic/pkg/settings"
)

// fakeReader serves photos of fixed sizes with the standard exposure tags.
type fakeReader struct {
	sizes map[string][2]int
	reads []string
}

func standardTags() photo.Tags {
	return photo.Tags{
		photo.TagFNumber:         {Kind: photo.KindRational, Rationals: []photo.Rational{{Num: 28, Den: 10}}},
		photo.TagExposureTime:    {Kind: photo.KindRational, Rationals: []photo.Rational{{Num: 1, Den: 250}}},
		photo.TagISOSpeedRatings: {Kind: photo.KindInt, Ints: []int64{100}},
	}
}

func (r *fakeReader) Read(path string) (*photo.Photo, error) {
	r.reads = append(r.reads, path)
	size, ok := r.sizes[path]
	if !ok {
		return nil, errors.Errorf("no such photo %s", path)
	}
	return &photo.Photo{Path: path, Format: "jpeg", Width: size[0], Height: size[1], Tags: standardTags()}, nil
}

func gridInvocation(content string) *markup.Invocation {
	inv := invocation(nil, markup.Options{})
	inv.Name = ImageGridName
	inv.Content = strings.Split(content, "\n")
	return inv
}

// figures returns the figures of the single container a grid run produces.
func figures(t *testing.T, nodes []ast.Node) []*markup.Figure {
	t.Helper()

	require.Len(t, nodes, 1)
	container, ok := nodes[0].(*markup.Container)
	require.True(t, ok)
	assert.Equal(t, []string{GridClass, InflateClass}, container.Classes)

	var out []*markup.Figure
	for c := container.FirstChild(); c != nil; c = c.NextSibling() {
		fig, ok := c.(*markup.Figure)
		require.True(t, ok)
		out = append(out, fig)
	}
	return out
}

func widths(figs []*markup.Figure) []float64 {
	var out []float64
	for _, f := range figs {
		out = append(out, f.Width)
	}
	return out
}

func TestNewImageGridRequiresReader(t *testing.T) {
	_, err := NewImageGrid(&settings.Settings{Path: "content"}, nil)
	assert.ErrorIs(t, err, ErrGridUnsupported)

	d, err := NewImageGrid(nil, &fakeReader{})
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultPath, d.settings.Path)
}

func TestImageGridTwoImagesInARow(t *testing.T) {
	reader := &fakeReader{sizes: map[string][2]int{
		"/p/wide.jpg":   {400, 200},
		"/p/square.jpg": {200, 200},
	}}
	d, err := NewImageGrid(&settings.Settings{Path: "/p"}, reader)
	require.NoError(t, err)

	nodes, err := d.Run(gridInvocation("/p/wide.jpg\n/p/square.jpg"))
	require.NoError(t, err)

	figs := figures(t, nodes)
	require.Len(t, figs, 2)
	assert.InDelta(t, 66.6667, figs[0].Width, 0.001)
	assert.InDelta(t, 33.3333, figs[1].Width, 0.001)
}

func TestImageGridRowsSumTo100(t *testing.T) {
	reader := &fakeReader{sizes: map[string][2]int{
		"a.jpg": {300, 200},
		"b.jpg": {200, 300},
		"c.jpg": {640, 480},
		"d.jpg": {1000, 10},
		"e.jpg": {10, 1000},
		"f.jpg": {123, 77},
	}}
	d, err := NewImageGrid(nil, reader)
	require.NoError(t, err)

	nodes, err := d.Run(gridInvocation("a.jpg\nb.jpg\nc.jpg\n\nd.jpg\n\ne.jpg\nf.jpg"))
	require.NoError(t, err)

	w := widths(figures(t, nodes))
	require.Len(t, w, 6)
	assert.InDelta(t, 100, w[0]+w[1]+w[2], 1e-9)
	assert.InDelta(t, 100, w[3], 1e-9)
	assert.InDelta(t, 100, w[4]+w[5], 1e-9)
	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg"}, reader.reads)
}

func TestImageGridSingleImage(t *testing.T) {
	reader := &fakeReader{sizes: map[string][2]int{"only.jpg": {37, 91}}}
	d, err := NewImageGrid(nil, reader)
	require.NoError(t, err)

	nodes, err := d.Run(gridInvocation("only.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []float64{100}, widths(figures(t, nodes)))
}

func TestImageGridNImagesInOneRow(t *testing.T) {
	for n := 1; n <= 12; n++ {
		sizes := make(map[string][2]int)
		var lines []string
		for i := 0; i < n; i++ {
			uri := filepath.Join("row", string(rune('a'+i))+".jpg")
			sizes[uri] = [2]int{100 + 37*i, 100 + 11*(n-i)}
			lines = append(lines, uri)
		}

		d, err := NewImageGrid(nil, &fakeReader{sizes: sizes})
		require.NoError(t, err)
		nodes, err := d.Run(gridInvocation(strings.Join(lines, "\n")))
		require.NoError(t, err)

		total := 0.0
		for _, w := range widths(figures(t, nodes)) {
			total += w
		}
		assert.InDelta(t, 100, total, 1e-9, "n=%d", n)
	}
}

func TestImageGridFigureTree(t *testing.T) {
	reader := &fakeReader{sizes: map[string][2]int{"/site/content/img/a.jpg": {300, 200}}}
	d, err := NewImageGrid(&settings.Settings{Path: "/site/content"}, reader)
	require.NoError(t, err)

	nodes, err := d.Run(gridInvocation("  {filename}/img/a.jpg  "))
	require.NoError(t, err)

	figs := figures(t, nodes)
	require.Len(t, figs, 1)

	ref, ok := figs[0].FirstChild().(*markup.Reference)
	require.True(t, ok)
	assert.Equal(t, "{filename}/img/a.jpg", ref.RefURI)
	assert.Equal(t, 2, ref.ChildCount())

	img, ok := ref.FirstChild().(*markup.Image)
	require.True(t, ok)
	assert.Equal(t, "{filename}/img/a.jpg", img.URI)
	assert.Equal(t, []string{"/site/content/img/a.jpg"}, reader.reads)

	caption, ok := img.NextSibling().(*markup.Caption)
	require.True(t, ok)
	para, ok := caption.FirstChild().(*ast.Paragraph)
	require.True(t, ok)
	str, ok := para.FirstChild().(*ast.String)
	require.True(t, ok)
	assert.Equal(t, "F2.8, 1/250 s, ISO 100", string(str.Value))
}

func TestImageGridErrors(t *testing.T) {
	t.Run("unreadable photo", func(t *testing.T) {
		d, err := NewImageGrid(nil, &fakeReader{})
		require.NoError(t, err)
		_, err = d.Run(gridInvocation("missing.jpg"))
		assert.ErrorContains(t, err, "no such photo missing.jpg")
	})

	t.Run("missing exposure tag", func(t *testing.T) {
		dir := t.TempDir()
		x := phototest.Standard()
		x.ExposureTime = [2]uint32{}
		phototest.WriteJPEG(t, dir, "a.jpg", 8, 8, x)

		d, err := NewImageGrid(&settings.Settings{Path: dir}, photo.NewReader())
		require.NoError(t, err)
		_, err = d.Run(gridInvocation("{filename}/a.jpg"))
		assert.ErrorIs(t, err, photo.ErrMissingTag)
	})

	t.Run("zero sized photo", func(t *testing.T) {
		d, err := NewImageGrid(nil, &fakeReader{sizes: map[string][2]int{"flat.jpg": {10, 0}}})
		require.NoError(t, err)
		_, err = d.Run(gridInvocation("flat.jpg"))
		assert.ErrorIs(t, err, grid.ErrInvalidDimensions)
	})
}

func TestImageGridRendered(t *testing.T) {
	dir := t.TempDir()
	phototest.WriteJPEG(t, dir, "img/wide.jpg", 40, 20, phototest.Standard())
	x := phototest.Standard()
	x.FNumber = [2]uint32{4, 1}
	x.ISO = 3200
	phototest.WriteJPEG(t, dir, "img/square.jpg", 20, 20, x)
	phototest.WriteJPEG(t, dir, "img/tall.jpg", 20, 40, phototest.Standard())

	cfg := &settings.Settings{Path: dir}
	imageGrid, err := NewImageGrid(cfg, photo.NewReader())
	require.NoError(t, err)

	reg := markup.NewRegistry()
	reg.Register(ImageGridName, imageGrid)

	src := "```{image-grid}\n{filename}/img/wide.jpg\n{filename}/img/square.jpg\n\n{filename}/img/tall.jpg\n```\n"
	media := markup.WithURLResolver(func(uri string) string {
		return strings.Replace(uri, settings.FilenamePlaceholder, "/media", 1)
	})
	html, d := render(t, reg, src, media)
	require.NoError(t, d.Err())

	assert.True(t, strings.HasPrefix(html, `<div class="m-imagegrid m-container-inflate">`+"\n"))
	assert.Contains(t, html, `<figure style="width: 66.66666666666667%">`+"\n"+
		`<a href="/media/img/wide.jpg"><img src="/media/img/wide.jpg" alt="/media/img/wide.jpg" />`+
		"<figcaption><p>F2.8, 1/250 s, ISO 100</p>\n</figcaption></a>\n</figure>\n")
	assert.NotContains(t, html, dir)
	assert.Contains(t, html, "<figcaption><p>F4.0, 1/250 s, ISO 3200</p>\n</figcaption>")
	assert.Contains(t, html, `<figure style="width: 100%">`)
	assert.Equal(t, 3, strings.Count(html, "<figure"))
}

func TestImageGridOversizedTag(t *testing.T) {
	dir := t.TempDir()
	x := phototest.Standard()
	x.Description = strings.Repeat("x", 400)
	phototest.WriteJPEG(t, dir, "a.jpg", 16, 9, x)

	d, err := NewImageGrid(&settings.Settings{Path: dir}, photo.NewReader())
	require.NoError(t, err)

	nodes, err := d.Run(gridInvocation("{filename}/a.jpg"))
	require.NoError(t, err)
	assert.Len(t, figures(t, nodes), 1)
}
