// Package settings holds the content settings captured from the host
// configuration when the site pipeline is initialized.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DefaultPath is the content root used when the host does not set PATH.
const DefaultPath = "content"

// PathKey is the host settings key holding the content root.
const PathKey = "PATH"

// FilenamePlaceholder is substituted with the absolute content root in image URIs.
const FilenamePlaceholder = "{filename}"

// ErrNoGetter is returned when the configuration sender cannot be read.
var ErrNoGetter = errors.New("settings sender does not implement Get(key string) any")

// Getter is the read side of a host settings object. *viper.Viper satisfies it.
type Getter interface {
	Get(key string) any
}

// Settings is the process-wide configuration read by the directives.
type Settings struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// Default returns settings with the default content root.
func Default() Settings {
	return Settings{Path: DefaultPath}
}

// FromGetter reads PATH from the host settings, defaulting to "content".
func FromGetter(g Getter) (Settings, error) {
	if g == nil {
		return Settings{}, ErrNoGetter
	}

	v := g.Get(PathKey)
	if v == nil {
		return Default(), nil
	}

	path, ok := v.(string)
	if !ok {
		path = fmt.Sprint(v)
	}
	return Settings{Path: path}, nil
}

// ContentRoot returns the absolute content root: the working directory
// joined with Path, or Path itself when it is already absolute.
func (s Settings) ContentRoot() (string, error) {
	if filepath.IsAbs(s.Path) {
		return s.Path, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get current working directory")
	}
	return filepath.Join(cwd, s.Path), nil
}

// Expand substitutes the {filename} placeholder in uri with the content root.
func (s Settings) Expand(uri string) (string, error) {
	if !strings.Contains(uri, FilenamePlaceholder) {
		return uri, nil
	}

	root, err := s.ContentRoot()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(uri, FilenamePlaceholder, root), nil
}
