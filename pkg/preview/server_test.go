package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/mosaic/pkg/photo/phototest"
	"github.com/jingkaihe/mosaic/pkg/site"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	root := t.TempDir()
	v := viper.New()
	v.Set("path", root)

	s, err := site.New(v)
	require.NoError(t, err)
	require.NoError(t, s.Initialize(context.Background()))

	srv, err := NewServer(s, &ServerConfig{Host: "localhost", Port: 8080})
	require.NoError(t, err)
	return srv, root
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  ServerConfig
		wantErr bool
	}{
		{"valid", ServerConfig{Host: "localhost", Port: 8080}, false},
		{"empty host", ServerConfig{Port: 8080}, true},
		{"zero port", ServerConfig{Host: "localhost"}, true},
		{"port too large", ServerConfig{Host: "localhost", Port: 70000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := NewServer(nil, &ServerConfig{})
	assert.Error(t, err)
}

func TestListPages(t *testing.T) {
	srv, root := newTestServer(t)
	writeFile(t, root, "index.md", "# Home\n")
	writeFile(t, root, "posts/trip.md", "# Trip\n")

	rec := get(t, srv, "/api/pages")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var pages []PageSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pages))
	assert.Equal(t, []PageSummary{
		{Source: "index.md", URL: "/index.html"},
		{Source: "posts/trip.md", URL: "/posts/trip.html"},
	}, pages)
}

func TestGetPage(t *testing.T) {
	srv, root := newTestServer(t)
	phototest.WriteJPEG(t, root, "img/a.jpg", 30, 20, phototest.Standard())
	writeFile(t, root, "posts/trip.md", "---\ntitle: Trip\n---\n```{image-grid}\n{filename}/img/a.jpg\n```\n\n```{image} a.jpg\n:target: nowhere_\n```\n")

	rec := get(t, srv, "/api/pages/posts/trip.md")
	require.Equal(t, http.StatusOK, rec.Code)

	var page PageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "posts/trip.md", page.Source)
	assert.Equal(t, "Trip", page.Title)
	assert.Contains(t, page.HTML, `<figure style="width: 100%">`)
	require.Len(t, page.Diagnostics, 1)
	assert.Equal(t, "ERROR", page.Diagnostics[0].Level)
	assert.Contains(t, page.Diagnostics[0].Message, "Unknown target name")
}

func TestGetPageErrors(t *testing.T) {
	srv, root := newTestServer(t)
	writeFile(t, root, "broken.md", "```{image-grid}\nmissing.jpg\n```\n")

	rec := get(t, srv, "/api/pages/missing.md")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, srv, "/api/pages/notes.txt")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, srv, "/api/pages/broken.md")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed to render page", body["error"])
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["detail"], "image-grid directive at line 1")
}

func TestRenderRejectsEscapingPaths(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"../secret.md", "/etc/passwd.md", "posts/../../x.md"} {
		_, status, err := srv.render(context.Background(), path)
		assert.Error(t, err, path)
		assert.Equal(t, http.StatusBadRequest, status, path)
	}
}

func TestServeHTMLPage(t *testing.T) {
	srv, root := newTestServer(t)
	writeFile(t, root, "posts/trip.md", "---\ntitle: Trip\n---\n# Trip\n")

	rec := get(t, srv, "/posts/trip.html")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<title>Trip</title>")
	assert.Contains(t, rec.Body.String(), "<h1>Trip</h1>")

	rec = get(t, srv, "/posts/missing.html")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeIndex(t *testing.T) {
	srv, root := newTestServer(t)
	writeFile(t, root, "about.md", "# About\n")

	rec := get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<a href="/about.html">about.md</a>`)

	writeFile(t, root, "index.md", "# Welcome\n")
	rec = get(t, srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Welcome</h1>")
}

func TestServeStaticFiles(t *testing.T) {
	srv, root := newTestServer(t)
	path := phototest.WriteJPEG(t, root, "img/a.jpg", 8, 8, phototest.Standard())

	rec := get(t, srv, "/img/a.jpg")
	require.Equal(t, http.StatusOK, rec.Code)

	expected, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, expected, rec.Body.Bytes())

	rec = get(t, srv, "/img/missing.jpg")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
