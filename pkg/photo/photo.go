// Package photo reads the pixel size and camera EXIF metadata of image files.
package photo

import (
	"image"
	"io"
	"os"

	// Decoders for image.DecodeConfig
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pkg/errors"
	"github.com/rwcarlsen/goexif/exif"
)

// Photo is an image file's size and metadata.
type Photo struct {
	Path   string
	Format string
	Width  int
	Height int
	Tags   Tags
}

// Caption builds the exposure caption from the photo's tags.
func (p *Photo) Caption() (string, error) {
	return Caption(p.Tags)
}

// Reader loads photos from disk.
type Reader interface {
	Read(path string) (*Photo, error)
}

// FileReader is the Reader backed by the standard image decoders and goexif.
type FileReader struct{}

// NewReader returns a FileReader.
func NewReader() *FileReader {
	return &FileReader{}
}

// Read opens path, decodes its dimensions and its EXIF block. A file without
// EXIF data is an error.
func (r *FileReader) Read(path string) (*Photo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open image")
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %s", path)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "failed to rewind image")
	}

	x, err := exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, errors.Wrapf(err, "failed to read EXIF data from %s", path)
	}

	tags, err := FromEXIF(x)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read EXIF tags from %s", path)
	}

	return &Photo{
		Path:   path,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Tags:   tags,
	}, nil
}
