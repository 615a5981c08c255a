// Package viz binds the data store, the language setting, and a chart handle
// into one live visualization, and schedules updates between them.
//
// # Lifecycle
//
// A Visualization moves through four phases:
//
//	Unmounted → Mounting → Live → Unmounting → Unmounted
//
// Mount subscribes to the store and the language setting and creates the
// chart handle; Unmount reverses both. Creation is deferred while the
// surface is unmeasurable (zero size): the visualization mounts without a
// handle and completes creation on the first nonzero resize.
//
// # Update scheduling
//
// Three change sources feed the scheduler, each behind an inequality gate:
//
//	data:     the store snapshot's revision counter
//	language: the active language code
//	size:     the surface's width and height
//
// Data and language changes rebuild the hierarchy and re-render; renders are
// deferred to the next frame, so a burst of changes collapses into one
// engine mutation. Size changes relay straight to the engine via Resize and
// never rebuild the tree.
//
// Notifications may arrive from any goroutine; one mutex serializes all
// state transitions and engine calls.
package viz

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/lexatlas/wordmap/pkg/chart"
	"github.com/lexatlas/wordmap/pkg/errors"
	"github.com/lexatlas/wordmap/pkg/hierarchy"
	"github.com/lexatlas/wordmap/pkg/i18n"
	"github.com/lexatlas/wordmap/pkg/observability"
	"github.com/lexatlas/wordmap/pkg/present"
	"github.com/lexatlas/wordmap/pkg/store"
)

// =============================================================================
// Phases
// =============================================================================

// Phase is a lifecycle state of the visualization.
type Phase int

const (
	PhaseUnmounted Phase = iota
	PhaseMounting
	PhaseLive
	PhaseUnmounting
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseUnmounted:
		return "unmounted"
	case PhaseMounting:
		return "mounting"
	case PhaseLive:
		return "live"
	case PhaseUnmounting:
		return "unmounting"
	default:
		return "unknown"
	}
}

// Display states for the chart area.
const (
	StateReady   = "ready"
	StateLoading = "loading"
	StateError   = "error"
	StateEmpty   = "empty"
)

// =============================================================================
// Chrome
// =============================================================================

// Chrome is the host-facing display snapshot: everything outside the chart
// itself that the surrounding page or terminal shows.
type Chrome struct {
	Summary present.Summary

	// State is one of the State* constants; Placeholder carries the
	// localized placeholder text for non-ready states and is empty when
	// State is StateReady.
	State       string
	Placeholder string

	// ZoomedNode is the name of the country the chart is zoomed into,
	// or "" when showing all countries.
	ZoomedNode string

	TotalWords int
	TotalItems int
}

// =============================================================================
// Visualization
// =============================================================================

// Visualization is the live binding of store, language, surface, and chart.
type Visualization struct {
	svc     *chart.Service
	store   store.Store
	lang    *i18n.Setting
	surface chart.Surface
	frame   Frame
	opts    chart.Options
	logger  *log.Logger

	mu    sync.Mutex
	phase Phase
	ctx   context.Context

	handle *chart.Handle

	// Inequality gates, one per change source.
	lastRevision uint64
	lastLang     string
	lastW, lastH int

	tree   *hierarchy.Node
	totals hierarchy.Totals
	state  string
	zoomed string

	cancelFrame func()
	cancelSubs  []func()
}

// New assembles a visualization. The zero options width and height are taken
// from the surface at mount time. A nil frame uses the production
// TimerFrame.
func New(svc *chart.Service, st store.Store, lang *i18n.Setting, surface chart.Surface, frame Frame, opts chart.Options, logger *log.Logger) *Visualization {
	if frame == nil {
		frame = &TimerFrame{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Visualization{
		svc:     svc,
		store:   st,
		lang:    lang,
		surface: surface,
		frame:   frame,
		opts:    opts,
		logger:  logger,
		phase:   PhaseUnmounted,
	}
}

// Phase returns the current lifecycle phase.
func (v *Visualization) Phase() Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

// Handle returns the chart handle, or nil while creation is deferred or the
// visualization is unmounted.
func (v *Visualization) Handle() *chart.Handle {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.handle
}

// TreeHash returns the content hash of the current tree, or "" before the
// first build. Artifact caches use it as the data component of their keys.
func (v *Visualization) TreeHash() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.tree == nil {
		return ""
	}
	return v.tree.Hash()
}

// Mount subscribes to the change sources, creates the chart handle if the
// surface is measurable, and schedules the first render. On an unmeasurable
// surface the visualization stays in Mounting; the first nonzero resize
// completes handle creation and moves it to Live. Mounting an already
// mounted visualization is an error.
func (v *Visualization) Mount(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.phase != PhaseUnmounted {
		return errors.New(errors.ErrCodeLifecycle, "mount in phase %s", v.phase)
	}
	v.phase = PhaseMounting
	v.ctx = ctx

	snap := v.store.Snapshot()
	v.lastRevision = snap.Revision
	v.lastLang = v.lang.Language()
	v.lastW, v.lastH = v.surface.Bounds()

	built := v.rebuildLocked(snap)

	if errors.ValidateDimensions(v.lastW, v.lastH) == nil {
		if err := v.createHandleLocked(); err != nil {
			v.phase = PhaseUnmounted
			return err
		}
		if built {
			v.requestFrameLocked()
		}
		v.phase = PhaseLive
	} else {
		v.logger.Debug("chart creation deferred", "size", [2]int{v.lastW, v.lastH})
	}

	v.cancelSubs = append(v.cancelSubs,
		v.store.Subscribe(v.onStoreChange),
		v.lang.Subscribe(v.onLanguageChange),
	)

	return nil
}

// Unmount cancels subscriptions and any pending frame, then destroys the
// chart handle. It tolerates a handle that was never created and is a no-op
// when already unmounted.
func (v *Visualization) Unmount() error {
	v.mu.Lock()
	if v.phase == PhaseUnmounted {
		v.mu.Unlock()
		return nil
	}
	v.phase = PhaseUnmounting

	if v.cancelFrame != nil {
		v.cancelFrame()
		v.cancelFrame = nil
	}
	for _, cancel := range v.cancelSubs {
		cancel()
	}
	v.cancelSubs = nil

	h := v.handle
	v.handle = nil
	v.tree = nil
	v.phase = PhaseUnmounted
	v.mu.Unlock()

	return v.svc.Destroy(h)
}

// NotifyResize re-reads the surface bounds and relays them to the engine.
// An unchanged size is suppressed. If handle creation was deferred at mount,
// the first valid size completes it and the visualization goes Live.
func (v *Visualization) NotifyResize() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.phase != PhaseLive && v.phase != PhaseMounting {
		return
	}

	w, h := v.surface.Bounds()
	if w == v.lastW && h == v.lastH {
		observability.Scheduler().OnChangeSuppressed(v.ctx, "size")
		return
	}
	observability.Scheduler().OnChangeDetected(v.ctx, "size")
	v.lastW, v.lastH = w, h

	if errors.ValidateDimensions(w, h) != nil {
		return
	}

	if v.handle == nil {
		// Deferred creation completes on the first measurable size.
		if err := v.createHandleLocked(); err != nil {
			v.logger.Warn("deferred chart creation failed", "err", err)
			return
		}
		v.phase = PhaseLive
		if v.tree != nil {
			v.requestFrameLocked()
		}
		return
	}

	if err := v.svc.Resize(v.ctx, v.handle); err != nil {
		v.logger.Warn("chart resize failed", "err", err)
	}
}

// SetZoom records the country the chart is zoomed into; "" returns to the
// full view. Zoom is host chrome state only and does not re-render.
func (v *Visualization) SetZoom(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if name == v.zoomed {
		return
	}
	v.zoomed = name
}

// UpdateOptions forwards display option changes to the chart.
func (v *Visualization) UpdateOptions(p chart.Partial) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.phase != PhaseLive {
		return errors.New(errors.ErrCodeLifecycle, "update options in phase %s", v.phase)
	}
	if v.handle == nil {
		return nil
	}
	p.Apply(&v.opts)
	return v.svc.UpdateOptions(v.ctx, v.handle, p)
}

// Chrome returns the current host-facing display snapshot.
func (v *Visualization) Chrome() Chrome {
	v.mu.Lock()
	defer v.mu.Unlock()

	tr := v.lang.Translator()
	c := Chrome{
		Summary:    present.Summarize(v.totals, tr),
		State:      v.state,
		ZoomedNode: v.zoomed,
		TotalWords: v.totals.Words,
		TotalItems: v.totals.Items,
	}
	if c.State != StateReady {
		c.Placeholder = present.Placeholder(c.State, tr)
	}
	return c
}

// =============================================================================
// Change sources
// =============================================================================

// Change notifications apply while Live and while Mounting with a deferred
// handle, so the first render after deferred creation shows current data.
func (v *Visualization) onStoreChange() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.phase != PhaseLive && v.phase != PhaseMounting {
		return
	}

	snap := v.store.Snapshot()
	if snap.Revision == v.lastRevision {
		observability.Scheduler().OnChangeSuppressed(v.ctx, "data")
		return
	}
	observability.Scheduler().OnChangeDetected(v.ctx, "data")
	v.lastRevision = snap.Revision

	if v.rebuildLocked(snap) {
		v.requestFrameLocked()
	}
}

func (v *Visualization) onLanguageChange() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.phase != PhaseLive && v.phase != PhaseMounting {
		return
	}

	code := v.lang.Language()
	if code == v.lastLang {
		observability.Scheduler().OnChangeSuppressed(v.ctx, "language")
		return
	}
	observability.Scheduler().OnChangeDetected(v.ctx, "language")
	v.lastLang = code

	// Fallback group names are localized, so the tree itself depends on the
	// language and must be rebuilt.
	if v.rebuildLocked(v.store.Snapshot()) {
		v.requestFrameLocked()
	}
}

// =============================================================================
// Internals
// =============================================================================

// rebuildLocked recomputes the tree, totals, and display state from a
// snapshot. Loading and error snapshots only update the display state; the
// last-good tree and totals are retained and no build runs until the
// condition clears. Returns whether a fresh tree was built and a render is
// warranted. Caller holds v.mu.
func (v *Visualization) rebuildLocked(snap store.Snapshot) bool {
	if snap.Loading {
		v.state = StateLoading
		return false
	}
	if snap.Err != "" {
		v.state = StateError
		return false
	}

	builder := hierarchy.NewBuilder(v.lang.Translator())
	v.tree, v.totals = builder.SafeBuild(v.ctx, v.logger, snap.Items)

	if len(snap.Items) == 0 {
		v.state = StateEmpty
	} else {
		v.state = StateReady
	}
	return true
}

// createHandleLocked creates the chart handle against the current surface.
// Caller holds v.mu.
func (v *Visualization) createHandleLocked() error {
	opts := v.opts
	opts.Width, opts.Height = v.lastW, v.lastH

	h, err := v.svc.Create(v.surface, opts)
	if err != nil {
		return err
	}
	v.handle = h
	return nil
}

// requestFrameLocked schedules a render on the next frame. A pending frame
// is cancelled first, so bursts collapse into one render of the latest tree.
// Caller holds v.mu.
func (v *Visualization) requestFrameLocked() {
	if v.handle == nil {
		return
	}
	if v.cancelFrame != nil {
		v.cancelFrame()
		observability.Scheduler().OnFrameCoalesced(v.ctx)
	}
	v.cancelFrame = v.frame.Schedule(v.flush)
}

// flush is the frame callback: it renders the latest tree.
func (v *Visualization) flush() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.cancelFrame = nil
	if v.phase != PhaseLive || v.handle == nil || v.tree == nil {
		return
	}

	if err := v.svc.Render(v.ctx, v.handle, v.tree); err != nil {
		// The last-good frame stays visible; the visualization stays live
		// and the next change retries.
		v.logger.Warn("render failed", "err", err)
	}
}
