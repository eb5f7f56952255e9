// Package server exposes the orchestrator over HTTP for previewing forms in a
// browser. HTML posts are stateless: the document under edit travels in a
// hidden field and every request rebuilds the form from it.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/negroni"

	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/orchestrator"
	"github.com/goliatone/go-modelform/pkg/render"
)

const (
	// DocumentField is the hidden input carrying the document under edit.
	DocumentField = "_document"
	// ActionField is the name of the submit buttons carrying form actions.
	ActionField = "_action"

	jsonRenderer = "json"
	maxBodyBytes = 1 << 20
)

var (
	errRendererNotServed = errors.New("server: renderer is not available over HTTP")
	errBadRequest        = errors.New("server: bad request")
)

// Option customises the server.
type Option func(*Server)

// WithRequest sets the request every form starts from: traversal flags,
// default renderer, theme and render options.
func WithRequest(req orchestrator.Request) Option {
	return func(s *Server) {
		s.template = req
	}
}

// WithMetricsRegistry registers the server collectors on reg and serves it
// at /metrics.
func WithMetricsRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// WithExcludedRenderers blocks renderers that cannot serve HTTP requests,
// such as the interactive terminal renderer.
func WithExcludedRenderers(names ...string) Option {
	return func(s *Server) {
		for _, name := range names {
			s.excluded[name] = true
		}
	}
}

// WithAssets serves fsys under prefix, e.g. the preact client bundle at
// "/assets/preact/".
func WithAssets(prefix string, fsys fs.FS) Option {
	return func(s *Server) {
		if fsys == nil || strings.Trim(prefix, "/") == "" {
			return
		}
		s.assets = append(s.assets, assetMount{prefix: "/" + strings.Trim(prefix, "/") + "/", fsys: fsys})
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server serves forms built by an orchestrator. The orchestrator can be
// swapped while requests are in flight.
type Server struct {
	mu   sync.RWMutex
	orch *orchestrator.Orchestrator

	template orchestrator.Request
	excluded map[string]bool
	assets   []assetMount
	registry *prometheus.Registry
	metrics  *metrics
	logger   *log.Logger
	handler  http.Handler
}

type assetMount struct {
	prefix string
	fsys   fs.FS
}

// New builds a server around orch.
func New(orch *orchestrator.Orchestrator, options ...Option) *Server {
	s := &Server{
		orch:     orch,
		excluded: map[string]bool{"tui": true},
		logger:   log.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = newMetrics(s.registry)
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler with recovery and request logging.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Swap replaces the orchestrator used by subsequent requests.
func (s *Server) Swap(orch *orchestrator.Orchestrator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orch = orch
}

func (s *Server) current() *orchestrator.Orchestrator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orch
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/types", s.handleTypes()).Methods(http.MethodGet)
	router.HandleFunc("/forms/{type}", s.handleGetForm()).Methods(http.MethodGet)
	router.HandleFunc("/forms/{type}", s.handlePostForm()).Methods(http.MethodPost)
	router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	for _, mount := range s.assets {
		router.PathPrefix(mount.prefix).Handler(http.StripPrefix(mount.prefix, http.FileServerFS(mount.fsys))).Methods(http.MethodGet)
	}
	router.Use(s.logMiddleware)

	n := negroni.New(negroni.NewRecovery())
	n.UseHandler(router)
	return n
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := negroni.NewResponseWriter(w)
		next.ServeHTTP(ww, r)
		s.logger.Println(r.Method, r.RequestURI, r.Proto, "->", ww.Status(), http.StatusText(ww.Status()))
	})
}

type typesResponse struct {
	Types     []string `json:"types"`
	Renderers []string `json:"renderers"`
}

func (s *Server) handleTypes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch := s.current()
		resp := typesResponse{Types: orch.Types()}
		for _, name := range orch.Registry().List() {
			if !s.excluded[name] {
				resp.Renderers = append(resp.Renderers, name)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			s.logger.Println("server: encode types:", err)
		}
	}
}

func (s *Server) handleGetForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		orch := s.current()

		req, err := s.request(orch, r)
		if err != nil {
			s.fail(w, req, err, started)
			return
		}
		form, err := orch.Build(r.Context(), req)
		if err != nil {
			s.fail(w, req, err, started)
			return
		}
		s.respond(r.Context(), w, orch, form, req, http.StatusOK, started)
	}
}

type submission struct {
	Action   string          `json:"action"`
	Document json.RawMessage `json:"document"`
}

func (s *Server) handlePostForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		orch := s.current()

		req, err := s.request(orch, r)
		if err != nil {
			s.fail(w, req, err, started)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		isJSON := mediaType(r.Header.Get("Content-Type")) == "application/json"

		var (
			action string
			raw    []byte
			values map[string][]string
		)
		if isJSON {
			var body submission
			data, err := io.ReadAll(r.Body)
			if err == nil {
				err = json.Unmarshal(data, &body)
			}
			if err != nil {
				s.fail(w, req, fmt.Errorf("%w: decode submission: %v", errBadRequest, err), started)
				return
			}
			action, raw = body.Action, body.Document
			req.Renderer = jsonRenderer
		} else {
			if err := r.ParseForm(); err != nil {
				s.fail(w, req, fmt.Errorf("%w: parse form: %v", errBadRequest, err), started)
				return
			}
			action = r.PostForm.Get(ActionField)
			raw = []byte(r.PostForm.Get(DocumentField))
			values = r.PostForm
		}

		if len(raw) > 0 && string(raw) != "null" {
			doc, err := document.Parse(raw)
			if err != nil {
				s.fail(w, req, fmt.Errorf("%w: %v", errBadRequest, err), started)
				return
			}
			req.Document = doc
		}

		form, err := orch.Build(r.Context(), req)
		if err != nil {
			s.fail(w, req, err, started)
			return
		}
		if values != nil {
			var valueErr *orchestrator.ValueError
			if err := form.ApplyValues(values); errors.As(err, &valueErr) {
				req.RenderOptions.Errors = map[string][]string{valueErr.Key: {valueErr.Err.Error()}}
				s.respond(r.Context(), w, orch, form, req, http.StatusUnprocessableEntity, started)
				return
			} else if err != nil {
				s.fail(w, req, err, started)
				return
			}
		}
		if err := form.Apply(action); err != nil {
			s.fail(w, req, err, started)
			return
		}

		if !isJSON && action == orchestrator.ActionSubmit {
			s.metrics.observe(rendererLabel(req), outcomeOK, started)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(form.Document.Bytes())
			return
		}
		s.respond(r.Context(), w, orch, form, req, http.StatusOK, started)
	}
}

// request derives the orchestrator request from the server template and the
// URL: the {type} route variable plus renderer, theme and variant query
// parameters.
func (s *Server) request(orch *orchestrator.Orchestrator, r *http.Request) (orchestrator.Request, error) {
	req := s.template
	query := r.URL.Query()
	if name := query.Get("renderer"); name != "" {
		req.Renderer = name
	}
	if name := query.Get("theme"); name != "" {
		req.ThemeName = name
	}
	if variant := query.Get("variant"); variant != "" {
		req.ThemeVariant = variant
	}
	if s.excluded[req.Renderer] {
		return req, fmt.Errorf("%w: %q", errRendererNotServed, req.Renderer)
	}

	typ, err := orch.ResolveType(mux.Vars(r)["type"])
	if err != nil {
		return req, err
	}
	req.Type = typ
	req.RenderOptions.Action = r.URL.RequestURI()
	req.RenderOptions.Method = http.MethodPost
	return req, nil
}

func (s *Server) respond(ctx context.Context, w http.ResponseWriter, orch *orchestrator.Orchestrator, form *orchestrator.Form, req orchestrator.Request, status int, started time.Time) {
	req.RenderOptions.HiddenFields = render.MergeHiddenFields(
		req.RenderOptions.HiddenFields,
		render.Hidden(DocumentField, string(form.Document.Bytes())),
	)
	out, err := orch.RenderForm(ctx, form, req)
	if err != nil {
		s.fail(w, req, err, started)
		return
	}

	outcome := outcomeOK
	if status >= http.StatusBadRequest {
		outcome = outcomeInvalid
	}
	s.metrics.observe(rendererLabel(req), outcome, started)
	w.Header().Set("Content-Type", out.ContentType)
	w.WriteHeader(status)
	_, _ = w.Write(out.Body)
}

func (s *Server) fail(w http.ResponseWriter, req orchestrator.Request, err error, started time.Time) {
	status, outcome := classify(err)
	s.metrics.observe(rendererLabel(req), outcome, started)
	http.Error(w, err.Error(), status)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownType),
		errors.Is(err, orchestrator.ErrTypeRequired):
		return http.StatusNotFound, outcomeNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, errRendererNotServed),
		errors.Is(err, orchestrator.ErrAmbiguousType),
		errors.Is(err, orchestrator.ErrUnknownAction),
		errors.Is(err, orchestrator.ErrThemeNotFound),
		errors.Is(err, orchestrator.ErrVariantNotFound),
		errors.Is(err, render.ErrUnknownRenderer):
		return http.StatusBadRequest, outcomeInvalid
	default:
		return http.StatusInternalServerError, outcomeError
	}
}

func rendererLabel(req orchestrator.Request) string {
	if req.Renderer == "" {
		return "default"
	}
	return req.Renderer
}

func mediaType(header string) string {
	parsed, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return parsed
}
