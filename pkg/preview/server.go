// Package preview serves a site over HTTP, rendering pages on request so
// that content and image changes show up on reload.
package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/jingkaihe/mosaic/pkg/logger"
	"github.com/jingkaihe/mosaic/pkg/presenter"
	"github.com/jingkaihe/mosaic/pkg/settings"
	"github.com/jingkaihe/mosaic/pkg/site"
)

// Site is the part of site.Site the server needs.
type Site interface {
	Settings() settings.Settings
	Pages(patterns ...string) ([]string, error)
	Render(ctx context.Context, path string) (*site.Page, error)
}

// Server renders and serves pages of a site.
type Server struct {
	router *mux.Router
	site   Site
	config *ServerConfig
	server *http.Server
}

// ServerConfig holds the configuration for the preview server
type ServerConfig struct {
	Host string
	Port int
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host cannot be empty")
	}
	if c.Port < 1 || c.Port > 65535 {
		return errors.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// NewServer creates a preview server for s.
func NewServer(s Site, config *ServerConfig) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid server configuration")
	}

	srv := &Server{
		router: mux.NewRouter(),
		site:   s,
		config: config,
	}
	srv.setupRoutes()
	return srv, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/pages", s.handleListPages).Methods("GET")
	api.HandleFunc("/pages/{path:.+}", s.handleGetPage).Methods("GET")

	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/{path:.+\\.html}", s.handlePage).Methods("GET")

	// Everything else, images in particular, comes from the content root.
	s.router.PathPrefix("/").HandlerFunc(s.handleStatic)

	s.router.Use(s.loggingMiddleware)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		logger.G(r.Context()).WithFields(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rw.statusCode,
			"duration": time.Since(start),
		}).Info("HTTP request")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// PageSummary is a page in the page listing.
type PageSummary struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

// PageResponse is the API view of a rendered page.
type PageResponse struct {
	Source      string       `json:"source"`
	Title       string       `json:"title,omitempty"`
	Slug        string       `json:"slug,omitempty"`
	Draft       bool         `json:"draft"`
	Tags        []string     `json:"tags,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	HTML        string       `json:"html"`
}

// Diagnostic is the API view of a system message.
type Diagnostic struct {
	Level   string `json:"level"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func pageURL(source string) string {
	return "/" + filepath.ToSlash(strings.TrimSuffix(source, filepath.Ext(source))) + ".html"
}

// handleListPages handles GET /api/pages
func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	paths, err := s.site.Pages()
	if err != nil {
		s.writeErrorResponse(r.Context(), w, http.StatusInternalServerError, "failed to list pages", err)
		return
	}

	pages := make([]PageSummary, 0, len(paths))
	for _, p := range paths {
		pages = append(pages, PageSummary{Source: filepath.ToSlash(p), URL: pageURL(p)})
	}
	s.writeJSONResponse(r.Context(), w, pages)
}

// handleGetPage handles GET /api/pages/{path}
func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	page, status, err := s.render(r.Context(), mux.Vars(r)["path"])
	if err != nil {
		s.writeErrorResponse(r.Context(), w, status, "failed to render page", err)
		return
	}

	resp := PageResponse{
		Source:      filepath.ToSlash(page.Source),
		Title:       page.Title,
		Slug:        page.Slug,
		Draft:       page.Draft,
		Tags:        page.Tags,
		Diagnostics: make([]Diagnostic, 0, len(page.Messages)),
		HTML:        string(page.HTML),
	}
	for _, msg := range page.Messages {
		resp.Diagnostics = append(resp.Diagnostics, Diagnostic{Level: msg.Level.String(), Line: msg.Line, Message: msg.Message})
	}
	s.writeJSONResponse(r.Context(), w, resp)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if root, err := s.site.Settings().ContentRoot(); err == nil {
		if _, err := os.Stat(filepath.Join(root, "index.md")); err == nil {
			s.servePage(w, r, "index.md")
			return
		}
	}

	all, err := s.site.Pages()
	if err != nil {
		http.Error(w, "failed to list pages", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, all); err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to write page index")
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	source := strings.TrimSuffix(mux.Vars(r)["path"], ".html") + ".md"
	s.servePage(w, r, source)
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, source string) {
	page, status, err := s.render(r.Context(), source)
	if err != nil {
		logger.G(r.Context()).WithError(err).WithField("page", source).Error("failed to render page")
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if err := pageTemplate.Execute(w, struct {
		Title string
		Body  template.HTML
	}{page.Title, template.HTML(page.HTML)}); err != nil {
		logger.G(r.Context()).WithError(err).Error("failed to write page")
	}
}

// render renders a page given relative to the content root. Paths leaving
// the content root are rejected.
func (s *Server) render(ctx context.Context, source string) (*site.Page, int, error) {
	clean := filepath.Clean(filepath.FromSlash(source))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, http.StatusBadRequest, errors.Errorf("invalid page path %q", source)
	}
	if filepath.Ext(clean) != ".md" {
		return nil, http.StatusNotFound, errors.Errorf("%s is not a Markdown page", source)
	}

	root, err := s.site.Settings().ContentRoot()
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	if _, err := os.Stat(filepath.Join(root, clean)); err != nil {
		return nil, http.StatusNotFound, errors.Errorf("page %s not found", source)
	}

	page, err := s.site.Render(ctx, clean)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}
	return page, http.StatusOK, nil
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	root, err := s.site.Settings().ContentRoot()
	if err != nil {
		http.Error(w, "content root unavailable", http.StatusInternalServerError)
		return
	}
	http.FileServer(http.Dir(root)).ServeHTTP(w, r)
}

func (s *Server) writeJSONResponse(ctx context.Context, w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.G(ctx).WithError(err).Error("failed to encode JSON response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) writeErrorResponse(ctx context.Context, w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		logger.G(ctx).WithError(err).Error(message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]any{
		"error":   message,
		"status":  statusCode,
		"success": false,
	}
	if err != nil {
		response["detail"] = err.Error()
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.G(ctx).WithError(err).Error("failed to encode error response")
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	presenter.Info(fmt.Sprintf("Serving preview on http://%s", address))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "preview server failed")
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Stop closes the server immediately.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{"url": pageURL}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>mosaic preview</title></head>
<body><h1>Pages</h1><ul>
{{range .}}<li><a href="{{url .}}">{{.}}</a></li>
{{end}}</ul></body></html>
`))

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
{{.Body}}</body></html>
`))
