// Package grid computes the row-proportional layout of an image grid.
//
// Images are grouped into rows. Within a row every image is weighted by its
// aspect ratio (pixel width over pixel height), and its rendered width is its
// share of the row's total weight, so the widths of every row add up to 100%.
package grid

import (
	"github.com/pkg/errors"
)

// ErrInvalidDimensions is returned for images with a zero or negative size.
var ErrInvalidDimensions = errors.New("image dimensions must be positive")

// Item is one image placed in the grid.
type Item struct {
	URI         string
	AspectRatio float64
	Row         int
	Caption     string
	// Width is the rendered width in percent of the row. Only set on items
	// returned by Layout.Items.
	Width float64
}

// Layout accumulates images row by row. The zero value is not usable; use New.
type Layout struct {
	rows  []float64
	items []Item
}

// New returns a layout with a single empty row.
func New() *Layout {
	return &Layout{rows: []float64{0}}
}

// Break starts a new row. Consecutive breaks leave empty rows behind,
// which hold no images and do not affect the others.
func (l *Layout) Break() {
	l.rows = append(l.rows, 0)
}

// Add places an image of the given pixel size in the current row.
func (l *Layout) Add(uri string, width, height int, caption string) (Item, error) {
	if width <= 0 || height <= 0 {
		return Item{}, errors.Wrapf(ErrInvalidDimensions, "%s is %dx%d", uri, width, height)
	}

	ratio := float64(width) / float64(height)
	row := len(l.rows) - 1
	l.rows[row] += ratio

	item := Item{
		URI:         uri,
		AspectRatio: ratio,
		Row:         row,
		Caption:     caption,
	}
	l.items = append(l.items, item)
	return item, nil
}

// Rows returns the accumulated aspect-ratio sum of each row.
func (l *Layout) Rows() []float64 {
	return append([]float64(nil), l.rows...)
}

// Len returns the number of images placed.
func (l *Layout) Len() int {
	return len(l.items)
}

// Items returns the placed images in scan order with Width resolved.
func (l *Layout) Items() []Item {
	items := make([]Item, len(l.items))
	for i, item := range l.items {
		item.Width = item.AspectRatio * 100.0 / l.rows[item.Row]
		items[i] = item
	}
	return items
}
