package chart

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/lexatlas/wordmap/pkg/errors"
	"github.com/lexatlas/wordmap/pkg/hierarchy"
	"github.com/lexatlas/wordmap/pkg/observability"
)

// Handle is the live binding between one engine instance and one surface.
// A handle is exclusively owned by one visualization; it must be destroyed
// before its surface goes away and before a replacement handle is created
// for the same surface.
type Handle struct {
	id      uuid.UUID
	surface Surface
	inst    Instance
	opts    Options

	mu        sync.Mutex
	destroyed bool
	lastHash  string
	lastW     int
	lastH     int
}

// ID returns the handle's unique identifier.
func (h *Handle) ID() uuid.UUID { return h.id }

// Instance returns the wrapped engine instance, for engine-specific
// accessors (e.g. reading the rendered artifact). The instance must not be
// used after Destroy.
func (h *Handle) Instance() Instance { return h.inst }

// Service manages chart engine instances. One Service can serve many
// handles, but each handle wraps exactly one instance on one surface.
type Service struct {
	engine Engine
	logger *log.Logger
}

// NewService creates a chart service over the given engine.
func NewService(engine Engine, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{engine: engine, logger: logger}
}

// Engine returns the backing engine's name.
func (s *Service) Engine() string { return s.engine.Name() }

// Create allocates an engine instance against the surface.
// It fails if the surface is not yet measurable: callers must wait for the
// first nonzero layout before creating a handle.
func (s *Service) Create(surface Surface, opts Options) (*Handle, error) {
	w, h := surface.Bounds()
	if err := errors.ValidateDimensions(w, h); err != nil {
		return nil, err
	}
	if opts.Width == 0 {
		opts.Width = w
	}
	if opts.Height == 0 {
		opts.Height = h
	}
	if opts.Tooltip == nil {
		opts.Tooltip = DefaultTooltip
	}

	inst, err := s.engine.Create(surface, opts)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "create %s chart", s.engine.Name())
	}

	handle := &Handle{
		id:      uuid.New(),
		surface: surface,
		inst:    inst,
		opts:    opts,
		lastW:   w,
		lastH:   h,
	}
	s.logger.Debug("chart created", "engine", s.engine.Name(), "handle", handle.id, "size", [2]int{w, h})
	return handle, nil
}

// Render replaces the chart's displayed data with tree.
// Rendering an unchanged tree is a no-op: the tree's content hash is compared
// against the last rendered hash, so repeated renders cause no extra engine
// mutations or animation glitches.
func (s *Service) Render(ctx context.Context, h *Handle, tree *hierarchy.Node) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		return errors.New(errors.ErrCodeHandleDisposed, "render on destroyed handle %s", h.id)
	}

	hash := tree.Hash()
	if hash == h.lastHash {
		observability.Render().OnRenderSkipped(ctx, s.engine.Name())
		return nil
	}

	start := time.Now()
	observability.Render().OnRenderStart(ctx, s.engine.Name(), tree.CountNodes())
	err := h.inst.Render(tree)
	observability.Render().OnRenderComplete(ctx, s.engine.Name(), time.Since(start), err)
	if err != nil {
		// Last-good state stays visible; the hash is not advanced so the
		// next legitimate change retries naturally.
		return errors.Wrap(errors.ErrCodeRender, err, "render tree")
	}

	h.lastHash = hash
	return nil
}

// UpdateOptions merges new display options into the handle without
// discarding the rendered tree.
func (s *Service) UpdateOptions(ctx context.Context, h *Handle, p Partial) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		return errors.New(errors.ErrCodeHandleDisposed, "update options on destroyed handle %s", h.id)
	}

	p.Apply(&h.opts)
	if err := h.inst.UpdateOptions(p); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "update options")
	}
	return nil
}

// Resize re-measures the handle's surface and relays the new dimensions to
// the engine. It is a no-op when the dimensions are unchanged.
func (s *Service) Resize(ctx context.Context, h *Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		return errors.New(errors.ErrCodeHandleDisposed, "resize on destroyed handle %s", h.id)
	}

	w, hh := h.surface.Bounds()
	if w == h.lastW && hh == h.lastH {
		return nil
	}
	if err := errors.ValidateDimensions(w, hh); err != nil {
		return err
	}

	if err := h.inst.Resize(w, hh); err != nil {
		return errors.Wrap(errors.ErrCodeRender, err, "resize to %dx%d", w, hh)
	}
	h.lastW, h.lastH = w, hh
	h.opts.Width, h.opts.Height = w, hh
	return nil
}

// Destroy releases the handle's engine resources.
// A second Destroy on the same handle is a no-op, not an error, so teardown
// is safe in concurrent unmount races. A nil handle is also a no-op,
// simplifying callers that unmount before a handle was ever created.
func (s *Service) Destroy(h *Handle) error {
	if h == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.destroyed {
		return nil
	}
	h.destroyed = true

	if err := h.inst.Destroy(); err != nil {
		// Resources may be partially released; the handle stays destroyed
		// either way so a retry cannot double-release.
		s.logger.Warn("chart destroy failed", "handle", h.id, "err", err)
		return errors.Wrap(errors.ErrCodeLifecycle, err, "destroy chart")
	}
	s.logger.Debug("chart destroyed", "engine", s.engine.Name(), "handle", h.id)
	return nil
}
