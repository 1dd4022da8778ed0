package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapGetter map[string]any

func (m mapGetter) Get(key string) any {
	return m[key]
}

func TestFromGetter(t *testing.T) {
	tests := []struct {
		name     string
		getter   Getter
		expected string
	}{
		{"missing key defaults to content", mapGetter{}, "content"},
		{"explicit path", mapGetter{"PATH": "site/content"}, "site/content"},
		{"empty string is kept", mapGetter{"PATH": ""}, ""},
		{"non-string value", mapGetter{"PATH": 42}, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := FromGetter(tt.getter)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, s.Path)
		})
	}
}

func TestFromGetterNil(t *testing.T) {
	_, err := FromGetter(nil)
	assert.ErrorIs(t, err, ErrNoGetter)
}

func TestFromGetterViper(t *testing.T) {
	v := viper.New()
	v.Set("path", "pages")

	s, err := FromGetter(v)
	require.NoError(t, err)
	assert.Equal(t, "pages", s.Path)
}

func TestContentRoot(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	root, err := Default().ContentRoot()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "content"), root)

	abs := t.TempDir()
	root, err = Settings{Path: abs}.ContentRoot()
	require.NoError(t, err)
	assert.Equal(t, abs, root)
}

func TestExpand(t *testing.T) {
	abs := t.TempDir()
	s := Settings{Path: abs}

	expanded, err := s.Expand("{filename}/img/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, abs+"/img/a.jpg", expanded)

	plain, err := s.Expand("img/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "img/a.jpg", plain)
}
