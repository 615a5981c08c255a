package chart

import (
	"context"
	"strings"
	"testing"

	"github.com/lexatlas/wordmap/pkg/errors"
	"github.com/lexatlas/wordmap/pkg/hierarchy"
	"github.com/lexatlas/wordmap/pkg/i18n"
	"github.com/lexatlas/wordmap/pkg/store"
)

// fakeEngine records every instance mutation for assertions.
type fakeEngine struct {
	createErr error
	instances []*fakeInstance
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Create(surface Surface, opts Options) (Instance, error) {
	if e.createErr != nil {
		return nil, e.createErr
	}
	inst := &fakeInstance{}
	e.instances = append(e.instances, inst)
	return inst, nil
}

type fakeInstance struct {
	renders    int
	updates    int
	resizes    [][2]int
	destroys   int
	renderErr  error
	destroyErr error
}

func (i *fakeInstance) Render(tree *hierarchy.Node) error {
	if i.renderErr != nil {
		return i.renderErr
	}
	i.renders++
	return nil
}

func (i *fakeInstance) UpdateOptions(p Partial) error {
	i.updates++
	return nil
}

func (i *fakeInstance) Resize(w, h int) error {
	i.resizes = append(i.resizes, [2]int{w, h})
	return nil
}

func (i *fakeInstance) Destroy() error {
	i.destroys++
	return i.destroyErr
}

func buildTree(t *testing.T, items []store.Item) *hierarchy.Node {
	t.Helper()
	tree, _ := hierarchy.NewBuilder(i18n.NewBundle().Translator("en")).Build(items)
	return tree
}

func TestCreateFailsOnUnmeasurableSurface(t *testing.T) {
	svc := NewService(&fakeEngine{}, nil)

	_, err := svc.Create(&FixedSurface{W: 0, H: 600}, Options{})
	if err == nil {
		t.Fatal("Create on zero-width surface should fail")
	}
	if !errors.Is(err, errors.ErrCodeInvalidDimensions) {
		t.Errorf("code = %s", errors.GetCode(err))
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	eng := &fakeEngine{}
	svc := NewService(eng, nil)
	ctx := context.Background()

	h, err := svc.Create(&FixedSurface{W: 800, H: 600}, Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tree := buildTree(t, []store.Item{{Country: "FR", Collection: "A", WordCount: 100}})

	if err := svc.Render(ctx, h, tree); err != nil {
		t.Fatalf("first Render: %v", err)
	}
	if err := svc.Render(ctx, h, tree); err != nil {
		t.Fatalf("second Render: %v", err)
	}

	inst := eng.instances[0]
	if inst.renders != 1 {
		t.Errorf("engine renders = %d, want 1 (unchanged tree must not re-render)", inst.renders)
	}

	// An equivalent tree built from identical items also hashes equal.
	same := buildTree(t, []store.Item{{Country: "FR", Collection: "A", WordCount: 100}})
	if err := svc.Render(ctx, h, same); err != nil {
		t.Fatalf("Render equal tree: %v", err)
	}
	if inst.renders != 1 {
		t.Errorf("renders = %d after equal tree, want 1", inst.renders)
	}

	// A changed tree does render.
	changed := buildTree(t, []store.Item{{Country: "FR", Collection: "A", WordCount: 101}})
	if err := svc.Render(ctx, h, changed); err != nil {
		t.Fatalf("Render changed tree: %v", err)
	}
	if inst.renders != 2 {
		t.Errorf("renders = %d after changed tree, want 2", inst.renders)
	}
}

func TestRenderErrorKeepsLastGoodHash(t *testing.T) {
	eng := &fakeEngine{}
	svc := NewService(eng, nil)
	ctx := context.Background()

	h, _ := svc.Create(&FixedSurface{W: 800, H: 600}, Options{})
	inst := eng.instances[0]

	good := buildTree(t, []store.Item{{Country: "FR", Collection: "A", WordCount: 100}})
	if err := svc.Render(ctx, h, good); err != nil {
		t.Fatalf("Render: %v", err)
	}

	bad := buildTree(t, []store.Item{{Country: "DE", Collection: "B", WordCount: 1}})
	inst.renderErr = errors.New(errors.ErrCodeInternal, "engine down")
	err := svc.Render(ctx, h, bad)
	if !errors.Is(err, errors.ErrCodeRender) {
		t.Fatalf("want RENDER_ERROR, got %v", err)
	}

	// After the engine recovers, the same tree renders (hash not advanced).
	inst.renderErr = nil
	if err := svc.Render(ctx, h, bad); err != nil {
		t.Fatalf("retry Render: %v", err)
	}
	if inst.renders != 2 {
		t.Errorf("renders = %d, want 2", inst.renders)
	}
}

func TestResizeNoopWhenUnchanged(t *testing.T) {
	eng := &fakeEngine{}
	svc := NewService(eng, nil)
	ctx := context.Background()

	surface := &FixedSurface{W: 800, H: 600}
	h, _ := svc.Create(surface, Options{})
	inst := eng.instances[0]

	// Unchanged dimensions: no engine call.
	if err := svc.Resize(ctx, h); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if len(inst.resizes) != 0 {
		t.Errorf("resizes = %v, want none", inst.resizes)
	}

	// Changed dimensions relay once.
	surface.SetBounds(1024, 768)
	if err := svc.Resize(ctx, h); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if len(inst.resizes) != 1 || inst.resizes[0] != [2]int{1024, 768} {
		t.Errorf("resizes = %v", inst.resizes)
	}

	// And the no-op applies at the new size.
	if err := svc.Resize(ctx, h); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if len(inst.resizes) != 1 {
		t.Errorf("resizes = %v, want 1", inst.resizes)
	}
}

func TestUpdateOptionsMerges(t *testing.T) {
	eng := &fakeEngine{}
	svc := NewService(eng, nil)
	ctx := context.Background()

	h, _ := svc.Create(&FixedSurface{W: 800, H: 600}, Options{Palette: []string{"#111111"}})

	w := 1024
	if err := svc.UpdateOptions(ctx, h, Partial{Width: &w}); err != nil {
		t.Fatalf("UpdateOptions: %v", err)
	}
	if h.opts.Width != 1024 {
		t.Errorf("Width = %d, want 1024", h.opts.Width)
	}
	if h.opts.Height != 600 {
		t.Errorf("Height = %d, want unchanged 600", h.opts.Height)
	}
	if len(h.opts.Palette) != 1 {
		t.Errorf("Palette = %v, want unchanged", h.opts.Palette)
	}
	if eng.instances[0].updates != 1 {
		t.Errorf("engine updates = %d", eng.instances[0].updates)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	eng := &fakeEngine{}
	svc := NewService(eng, nil)

	h, _ := svc.Create(&FixedSurface{W: 800, H: 600}, Options{})
	inst := eng.instances[0]

	if err := svc.Destroy(h); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := svc.Destroy(h); err != nil {
		t.Fatalf("second Destroy should be a no-op: %v", err)
	}
	if inst.destroys != 1 {
		t.Errorf("engine destroys = %d, want 1 (no double release)", inst.destroys)
	}

	// Destroying a nil handle tolerates unmount-before-create.
	if err := svc.Destroy(nil); err != nil {
		t.Errorf("Destroy(nil): %v", err)
	}

	// Operations on a destroyed handle report a lifecycle error.
	err := svc.Render(context.Background(), h, hierarchy.EmptyRoot())
	if !errors.Is(err, errors.ErrCodeHandleDisposed) {
		t.Errorf("Render after Destroy = %v", err)
	}
}

func TestDefaultTooltip(t *testing.T) {
	got := DefaultTooltip(NodeContext{
		Name: "A", WordCount: 100, ItemCount: 2, TotalWords: 180, TotalItems: 3,
	})
	if !strings.Contains(got, "55.6%") {
		t.Errorf("tooltip %q should contain percentage 55.6%%", got)
	}
	if !strings.Contains(got, "50 words/item") {
		t.Errorf("tooltip %q should contain average 50", got)
	}

	// Zero totals degrade to "0" rather than NaN or panic.
	zero := DefaultTooltip(NodeContext{Name: "empty"})
	if !strings.Contains(zero, "(0%)") || !strings.Contains(zero, "0 words/item") {
		t.Errorf("zero tooltip = %q", zero)
	}
}
