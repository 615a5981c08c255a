package viz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lexatlas/wordmap/pkg/chart"
	"github.com/lexatlas/wordmap/pkg/hierarchy"
	"github.com/lexatlas/wordmap/pkg/i18n"
	"github.com/lexatlas/wordmap/pkg/observability"
	"github.com/lexatlas/wordmap/pkg/store"
)

// =============================================================================
// Spies
// =============================================================================

type spyInstance struct {
	renders   int
	updates   int
	resizes   int
	destroys  int
	renderErr error
}

func (i *spyInstance) Render(*hierarchy.Node) error {
	i.renders++
	return i.renderErr
}

func (i *spyInstance) UpdateOptions(chart.Partial) error { i.updates++; return nil }
func (i *spyInstance) Resize(int, int) error             { i.resizes++; return nil }
func (i *spyInstance) Destroy() error                    { i.destroys++; return nil }

type spyEngine struct {
	inst    spyInstance
	creates int
}

func (e *spyEngine) Name() string { return "spy" }

func (e *spyEngine) Create(chart.Surface, chart.Options) (chart.Instance, error) {
	e.creates++
	return &e.inst, nil
}

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	viz     *Visualization
	engine  *spyEngine
	store   *store.MemStore
	lang    *i18n.Setting
	surface *chart.FixedSurface
	frame   *ManualFrame
}

func newFixture(t *testing.T, w, h int) *fixture {
	t.Helper()
	f := &fixture{
		engine:  &spyEngine{},
		store:   store.NewMemStore(),
		lang:    i18n.NewSetting(i18n.NewBundle(), "en"),
		surface: &chart.FixedSurface{W: w, H: h},
		frame:   &ManualFrame{},
	}
	svc := chart.NewService(f.engine, nil)
	f.viz = New(svc, f.store, f.lang, f.surface, f.frame, chart.Options{}, nil)
	return f
}

func (f *fixture) mount(t *testing.T) {
	t.Helper()
	if err := f.viz.Mount(context.Background()); err != nil {
		t.Fatalf("Mount: %v", err)
	}
}

func items(n int) []store.Item {
	out := make([]store.Item, n)
	for i := range out {
		out[i] = store.Item{Country: "FR", Collection: "A", WordCount: 10 + i}
	}
	return out
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestMountRendersOnNextFrame(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.store.SetItems(items(2))
	f.mount(t)

	if got := f.viz.Phase(); got != PhaseLive {
		t.Fatalf("phase = %s, want live", got)
	}
	if f.engine.inst.renders != 0 {
		t.Fatalf("rendered before frame fired: %d", f.engine.inst.renders)
	}
	if f.frame.Pending() != 1 {
		t.Fatalf("pending frames = %d, want 1", f.frame.Pending())
	}

	f.frame.Fire()
	if f.engine.inst.renders != 1 {
		t.Errorf("renders after frame = %d, want 1", f.engine.inst.renders)
	}
}

func TestMountTwiceFails(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.mount(t)
	if err := f.viz.Mount(context.Background()); err == nil {
		t.Error("second Mount should fail")
	}
}

func TestUnmountCancelsPendingFrame(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.mount(t)
	f.frame.Fire()

	f.store.SetItems(items(3))
	if f.frame.Pending() != 1 {
		t.Fatalf("pending frames = %d, want 1", f.frame.Pending())
	}

	if err := f.viz.Unmount(); err != nil {
		t.Fatalf("Unmount: %v", err)
	}
	before := f.engine.inst.renders
	f.frame.Fire()

	if f.engine.inst.renders != before {
		t.Error("cancelled frame still rendered")
	}
	if f.engine.inst.destroys != 1 {
		t.Errorf("destroys = %d, want 1", f.engine.inst.destroys)
	}
	if got := f.viz.Phase(); got != PhaseUnmounted {
		t.Errorf("phase = %s, want unmounted", got)
	}
}

func TestUnmountIdempotent(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.mount(t)
	if err := f.viz.Unmount(); err != nil {
		t.Fatalf("Unmount: %v", err)
	}
	if err := f.viz.Unmount(); err != nil {
		t.Errorf("second Unmount: %v", err)
	}
	if f.engine.inst.destroys != 1 {
		t.Errorf("destroys = %d, want 1", f.engine.inst.destroys)
	}
}

func TestUnmountedChangesIgnored(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.mount(t)
	f.frame.Fire()
	if err := f.viz.Unmount(); err != nil {
		t.Fatalf("Unmount: %v", err)
	}

	f.store.SetItems(items(5))
	f.lang.Set("de")
	f.viz.NotifyResize()
	f.frame.Fire()

	if f.engine.inst.renders != 1 {
		t.Errorf("renders after unmount = %d, want 1", f.engine.inst.renders)
	}
}

// =============================================================================
// Deferred creation
// =============================================================================

func TestZeroSurfaceDefersCreation(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.store.SetItems(items(2))
	f.mount(t)

	if f.viz.Handle() != nil {
		t.Fatal("handle should not exist on unmeasurable surface")
	}
	if f.engine.creates != 0 {
		t.Fatalf("creates = %d, want 0", f.engine.creates)
	}
	if got := f.viz.Phase(); got != PhaseMounting {
		t.Fatalf("phase while deferred = %s, want mounting", got)
	}

	// Data changes while deferred must not panic or render.
	f.store.SetItems(items(3))
	f.frame.Fire()
	if f.engine.inst.renders != 0 {
		t.Fatalf("rendered without a handle: %d", f.engine.inst.renders)
	}

	// First measurable size completes creation, goes live, and renders.
	f.surface.SetBounds(800, 600)
	f.viz.NotifyResize()
	if f.viz.Handle() == nil {
		t.Fatal("handle not created on first valid resize")
	}
	if got := f.viz.Phase(); got != PhaseLive {
		t.Fatalf("phase after deferred creation = %s, want live", got)
	}
	f.frame.Fire()
	if f.engine.inst.renders != 1 {
		t.Errorf("renders = %d, want 1", f.engine.inst.renders)
	}
}

func TestUnmountWithoutHandle(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.mount(t)
	if err := f.viz.Unmount(); err != nil {
		t.Errorf("Unmount with deferred handle: %v", err)
	}
	if f.engine.inst.destroys != 0 {
		t.Errorf("destroys = %d, want 0", f.engine.inst.destroys)
	}
}

// =============================================================================
// Coalescing and gates
// =============================================================================

func TestBurstCoalescesToOneRender(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.mount(t)
	f.frame.Fire()

	f.store.SetItems(items(1))
	f.store.SetItems(items(2))
	f.store.SetItems(items(3))
	f.frame.Fire()

	if f.engine.inst.renders != 2 {
		t.Errorf("renders = %d, want 2 (initial + one coalesced)", f.engine.inst.renders)
	}
}

func TestResizeNeverRebuilds(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.store.SetItems(items(2))
	f.mount(t)
	f.frame.Fire()

	f.surface.SetBounds(1024, 768)
	f.viz.NotifyResize()

	if f.engine.inst.resizes != 1 {
		t.Errorf("resizes = %d, want 1", f.engine.inst.resizes)
	}
	if f.engine.inst.renders != 1 {
		t.Errorf("resize triggered a render: renders = %d, want 1", f.engine.inst.renders)
	}
	if f.frame.Pending() != 0 {
		t.Errorf("resize scheduled a frame: pending = %d", f.frame.Pending())
	}
}

func TestResizeSameSizeSuppressed(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.mount(t)
	f.frame.Fire()

	f.viz.NotifyResize()
	if f.engine.inst.resizes != 0 {
		t.Errorf("unchanged size reached engine: resizes = %d", f.engine.inst.resizes)
	}
}

func TestLanguageChangeRerenders(t *testing.T) {
	f := newFixture(t, 800, 600)
	// Empty attributes force localized fallback names into the tree.
	f.store.SetItems([]store.Item{{Country: "", Collection: "", WordCount: 5}})
	f.mount(t)
	f.frame.Fire()

	if err := f.lang.Set("de"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	f.frame.Fire()
	if f.engine.inst.renders != 2 {
		t.Errorf("renders = %d, want 2", f.engine.inst.renders)
	}

	// Same code again is suppressed before any frame is scheduled.
	f.lang.Set("de")
	if f.frame.Pending() != 0 {
		t.Errorf("repeated language set scheduled a frame: pending = %d", f.frame.Pending())
	}
}

// =============================================================================
// Loading and error snapshots
// =============================================================================

type countingBuildHooks struct {
	mu     sync.Mutex
	builds int
}

func (h *countingBuildHooks) OnBuildStart(context.Context, int) {
	h.mu.Lock()
	h.builds++
	h.mu.Unlock()
}

func (h *countingBuildHooks) OnBuildComplete(context.Context, int, int, time.Duration, error) {}

func (h *countingBuildHooks) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.builds
}

func TestErrorSnapshotSuppressesRebuild(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.store.SetItems(items(2))
	f.mount(t)
	f.frame.Fire()

	hash := f.viz.TreeHash()
	hooks := &countingBuildHooks{}
	observability.SetBuildHooks(hooks)
	t.Cleanup(observability.Reset)

	f.store.SetError("upstream down")

	if hooks.count() != 0 {
		t.Errorf("builder ran on error snapshot: %d builds", hooks.count())
	}
	if f.frame.Pending() != 0 {
		t.Errorf("error snapshot scheduled a frame: pending = %d", f.frame.Pending())
	}

	// Last-good tree and totals stay visible behind the placeholder.
	c := f.viz.Chrome()
	if c.State != StateError {
		t.Fatalf("state = %s, want error", c.State)
	}
	if c.TotalWords != 21 || c.TotalItems != 2 {
		t.Errorf("totals during error = %d/%d, want 21/2", c.TotalWords, c.TotalItems)
	}
	if f.viz.TreeHash() != hash {
		t.Error("tree replaced during error snapshot")
	}

	// Rebuilding resumes once the error clears.
	f.store.SetItems(items(3))
	if hooks.count() != 1 {
		t.Errorf("builds after recovery = %d, want 1", hooks.count())
	}
	f.frame.Fire()
	if f.engine.inst.renders != 2 {
		t.Errorf("renders = %d, want 2", f.engine.inst.renders)
	}
	if c := f.viz.Chrome(); c.State != StateReady {
		t.Errorf("state after recovery = %s, want ready", c.State)
	}
}

func TestLoadingSnapshotSuppressesRebuild(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.store.SetItems(items(2))
	f.mount(t)
	f.frame.Fire()

	hooks := &countingBuildHooks{}
	observability.SetBuildHooks(hooks)
	t.Cleanup(observability.Reset)

	f.store.SetLoading(true)

	if hooks.count() != 0 {
		t.Errorf("builder ran on loading snapshot: %d builds", hooks.count())
	}
	if f.frame.Pending() != 0 {
		t.Errorf("loading snapshot scheduled a frame: pending = %d", f.frame.Pending())
	}
	if c := f.viz.Chrome(); c.State != StateLoading || c.TotalWords != 21 {
		t.Errorf("loading chrome = %+v", c)
	}

	f.store.SetLoading(false)
	if hooks.count() != 1 {
		t.Errorf("builds after loading cleared = %d, want 1", hooks.count())
	}
}

func TestMountDuringErrorDefersFirstBuild(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.store.SetError("no connection")

	hooks := &countingBuildHooks{}
	observability.SetBuildHooks(hooks)
	t.Cleanup(observability.Reset)

	f.mount(t)

	if hooks.count() != 0 {
		t.Errorf("builder ran while mounting into error state: %d builds", hooks.count())
	}
	if f.frame.Pending() != 0 {
		t.Errorf("pending frames = %d, want 0", f.frame.Pending())
	}
	if c := f.viz.Chrome(); c.State != StateError {
		t.Errorf("state = %s, want error", c.State)
	}

	f.store.SetItems(items(1))
	f.frame.Fire()
	if f.engine.inst.renders != 1 {
		t.Errorf("renders after error cleared = %d, want 1", f.engine.inst.renders)
	}
}

// =============================================================================
// Failure handling
// =============================================================================

func TestRenderFailureStaysLive(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.store.SetItems(items(1))
	f.mount(t)
	f.frame.Fire()

	f.engine.inst.renderErr = errors.New("engine exploded")
	f.store.SetItems(items(2))
	f.frame.Fire()

	if got := f.viz.Phase(); got != PhaseLive {
		t.Fatalf("phase after render failure = %s, want live", got)
	}

	// Recovery: the next change renders again.
	f.engine.inst.renderErr = nil
	f.store.SetItems(items(3))
	f.frame.Fire()
	if f.engine.inst.renders != 3 {
		t.Errorf("renders = %d, want 3", f.engine.inst.renders)
	}
}

// =============================================================================
// Chrome
// =============================================================================

func TestChromeStates(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.mount(t)

	if c := f.viz.Chrome(); c.State != StateEmpty || c.Placeholder == "" {
		t.Errorf("empty store chrome = %+v", c)
	}

	f.store.SetItems([]store.Item{
		{Country: "FR", Collection: "A", WordCount: 100},
		{Country: "FR", Collection: "A", WordCount: 80},
		{Country: "DE", Collection: "C", WordCount: 30},
	})
	c := f.viz.Chrome()
	if c.State != StateReady || c.Placeholder != "" {
		t.Errorf("ready chrome = %+v", c)
	}
	if c.TotalWords != 210 || c.TotalItems != 3 {
		t.Errorf("totals = %d words / %d items, want 210/3", c.TotalWords, c.TotalItems)
	}
	if !c.Summary.HasAverage || c.Summary.AverageText != "70" {
		t.Errorf("average = %+v", c.Summary)
	}

	f.store.SetError("boom")
	if c := f.viz.Chrome(); c.State != StateError || c.Placeholder == "" {
		t.Errorf("error chrome = %+v", c)
	}

	f.store.SetLoading(true)
	if c := f.viz.Chrome(); c.State != StateLoading {
		t.Errorf("loading chrome = %+v", c)
	}
}

func TestChromeZoom(t *testing.T) {
	f := newFixture(t, 800, 600)
	f.mount(t)

	if c := f.viz.Chrome(); c.ZoomedNode != "" {
		t.Errorf("initial zoom = %q, want root", c.ZoomedNode)
	}
	f.viz.SetZoom("FR")
	if c := f.viz.Chrome(); c.ZoomedNode != "FR" {
		t.Errorf("zoom = %q, want FR", c.ZoomedNode)
	}
	f.viz.SetZoom("")
	if c := f.viz.Chrome(); c.ZoomedNode != "" {
		t.Errorf("zoom after reset = %q", c.ZoomedNode)
	}
}
