// Package server exposes the visualization over HTTP.
//
// The server owns one live visualization rendered by the SVG engine. Clients
// pull the rendered artifact from /viz.svg and the localized summary from
// /api/summary; they push viewport size, language, and zoom changes through
// the /api endpoints, which feed the visualization's change sources.
//
// Rendered artifacts are cached content-addressed: the cache key combines the
// tree hash with the render options, so any data, language, or size change
// produces a new key and stale entries simply age out.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lexatlas/wordmap/pkg/cache"
	"github.com/lexatlas/wordmap/pkg/chart"
	"github.com/lexatlas/wordmap/pkg/chart/treemap"
	"github.com/lexatlas/wordmap/pkg/errors"
	"github.com/lexatlas/wordmap/pkg/i18n"
	"github.com/lexatlas/wordmap/pkg/viz"
)

// Surface is the server-side render surface. Bounds changes arrive from
// HTTP handlers on arbitrary goroutines, so access is locked.
type Surface struct {
	mu   sync.Mutex
	w, h int
}

// NewSurface creates a surface with initial dimensions.
func NewSurface(w, h int) *Surface {
	return &Surface{w: w, h: h}
}

// Bounds implements chart.Surface.
func (s *Surface) Bounds() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

// SetBounds updates the surface dimensions.
func (s *Surface) SetBounds(w, h int) {
	s.mu.Lock()
	s.w, s.h = w, h
	s.mu.Unlock()
}

var _ chart.Surface = (*Surface)(nil)

// Server serves one visualization over HTTP.
type Server struct {
	addr    string
	viz     *viz.Visualization
	lang    *i18n.Setting
	surface *Surface
	cache   cache.Cache
	keyer   cache.Keyer
	opts    chart.Options
	logger  *log.Logger
}

// Options assembles a server.
type Options struct {
	Addr    string
	Viz     *viz.Visualization
	Lang    *i18n.Setting
	Surface *Surface

	// Cache holds rendered artifacts; nil disables caching.
	Cache cache.Cache
	Keyer cache.Keyer

	// ChartOpts is the option set the visualization renders with; it feeds
	// the artifact cache key.
	ChartOpts chart.Options

	Logger *log.Logger
}

// New creates a server. The visualization must already be constructed against
// opts.Surface; the server mounts it in Run.
func New(opts Options) *Server {
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	return &Server{
		addr:    opts.Addr,
		viz:     opts.Viz,
		lang:    opts.Lang,
		surface: opts.Surface,
		cache:   opts.Cache,
		keyer:   opts.Keyer,
		opts:    opts.ChartOpts,
		logger:  opts.Logger,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Get("/viz.svg", s.handleArtifact)

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
		r.Post("/resize", s.handleResize)
		r.Post("/language", s.handleLanguage)
		r.Post("/zoom", s.handleZoom)
	})

	return r
}

// Run mounts the visualization and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.viz.Mount(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.viz.Unmount(); err != nil {
			s.logger.Warn("unmount failed", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// artifactKey builds the cache key for the current render state.
func (s *Server) artifactKey(treeHash string) string {
	w, h := s.surface.Bounds()
	return s.keyer.ArtifactKey(treeHash, cache.ArtifactKeyOpts{
		Format:      "svg",
		Width:       w,
		Height:      h,
		Language:    s.lang.Language(),
		Palette:     strings.Join(s.opts.Palette, ","),
		Zoom:        s.opts.Zoom,
		Breadcrumbs: s.opts.Breadcrumbs,
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The cached artifact may predate an upstream failure; while the data
	// source reports an error the stale chart must not be served.
	if state := s.viz.Chrome().State; state == viz.StateError {
		s.writeError(w, errors.New(errors.ErrCodeData, "data source unavailable"))
		return
	}

	key := s.artifactKey(s.viz.TreeHash())
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		serveSVG(w, data)
		return
	}

	handle := s.viz.Handle()
	if handle == nil {
		s.writeError(w, errors.New(errors.ErrCodeLifecycle, "visualization not ready"))
		return
	}
	artifact := treemap.Artifact(handle.Instance())
	if artifact == nil {
		s.writeError(w, errors.New(errors.ErrCodeRender, "no rendered artifact yet"))
		return
	}

	if err := s.cache.Set(ctx, key, artifact, cache.TTLArtifact); err != nil {
		s.logger.Warn("artifact cache write failed", "err", err)
	}
	serveSVG(w, artifact)
}

// summaryPayload is the JSON shape of /api/summary.
type summaryPayload struct {
	Title       string `json:"title"`
	State       string `json:"state"`
	Placeholder string `json:"placeholder,omitempty"`

	ItemsLabel string `json:"items_label"`
	ItemsText  string `json:"items_text"`
	WordsLabel string `json:"words_label"`
	WordsText  string `json:"words_text"`

	AverageLabel string `json:"average_label,omitempty"`
	AverageText  string `json:"average_text,omitempty"`

	Language   string  `json:"language"`
	ZoomedNode *string `json:"zoomed_node"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	c := s.viz.Chrome()

	p := summaryPayload{
		Title:       c.Summary.Title,
		State:       c.State,
		Placeholder: c.Placeholder,
		ItemsLabel:  c.Summary.ItemsLabel,
		ItemsText:   c.Summary.ItemsText,
		WordsLabel:  c.Summary.WordsLabel,
		WordsText:   c.Summary.WordsText,
		Language:    s.lang.Language(),
	}
	if c.Summary.HasAverage {
		p.AverageLabel = c.Summary.AverageLabel
		p.AverageText = c.Summary.AverageText
	}
	if c.ZoomedNode != "" {
		p.ZoomedNode = &c.ZoomedNode
	}

	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode resize request"))
		return
	}
	if err := errors.ValidateDimensions(req.Width, req.Height); err != nil {
		s.writeError(w, err)
		return
	}

	s.surface.SetBounds(req.Width, req.Height)
	s.viz.NotifyResize()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode language request"))
		return
	}
	if err := s.lang.Set(req.Language); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Node string `json:"node"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode zoom request"))
		return
	}
	s.viz.SetZoom(req.Node)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Response helpers
// =============================================================================

func serveSVG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidLanguage, errors.ErrCodeInvalidDimensions:
		status = http.StatusBadRequest
	case errors.ErrCodeLifecycle, errors.ErrCodeRender, errors.ErrCodeData, errors.ErrCodeDataLoading:
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}
