package treemap

import (
	"sync"

	"github.com/lexatlas/wordmap/pkg/chart"
	"github.com/lexatlas/wordmap/pkg/errors"
	"github.com/lexatlas/wordmap/pkg/hierarchy"
)

// Engine renders squarified treemap SVGs.
// It is a pure in-memory engine: each instance keeps the last rendered
// artifact, which the host serves (HTTP) or writes (CLI).
type Engine struct {
	// RootLabel is shown as the breadcrumb origin. Defaults to "All".
	RootLabel string
}

// Name implements chart.Engine.
func (e *Engine) Name() string { return "svg" }

// Create implements chart.Engine.
func (e *Engine) Create(surface chart.Surface, opts chart.Options) (chart.Instance, error) {
	w, h := surface.Bounds()
	if err := errors.ValidateDimensions(w, h); err != nil {
		return nil, err
	}

	label := e.RootLabel
	if label == "" {
		label = "All"
	}
	return &instance{opts: opts, rootLabel: label}, nil
}

// instance is one live SVG treemap.
type instance struct {
	mu        sync.Mutex
	opts      chart.Options
	rootLabel string
	tree      *hierarchy.Node
	artifact  []byte
	destroyed bool
}

// Render implements chart.Instance.
func (i *instance) Render(tree *hierarchy.Node) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return errors.New(errors.ErrCodeHandleDisposed, "render on destroyed instance")
	}
	i.tree = tree
	i.redraw()
	return nil
}

// UpdateOptions implements chart.Instance. Dimensional changes redraw from
// the retained tree; no new Render call is needed.
func (i *instance) UpdateOptions(p chart.Partial) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return errors.New(errors.ErrCodeHandleDisposed, "update on destroyed instance")
	}
	p.Apply(&i.opts)
	i.redraw()
	return nil
}

// Resize implements chart.Instance.
func (i *instance) Resize(width, height int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return errors.New(errors.ErrCodeHandleDisposed, "resize on destroyed instance")
	}
	i.opts.Width, i.opts.Height = width, height
	i.redraw()
	return nil
}

// Destroy implements chart.Instance.
func (i *instance) Destroy() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.destroyed = true
	i.tree = nil
	i.artifact = nil
	return nil
}

// Artifact returns the last rendered SVG bytes, or nil before the first
// render and after destroy.
func (i *instance) Artifact() []byte {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.artifact
}

// redraw rebuilds the artifact from the retained tree. Caller holds i.mu.
func (i *instance) redraw() {
	if i.tree == nil {
		i.artifact = nil
		return
	}

	// Totals for the tooltip denominator, summed from the leaves of the
	// tree being drawn so tooltip percentages always match the picture.
	totalWords, totalItems := 0, 0
	i.tree.Leaves(func(_, leaf *hierarchy.Node) {
		totalWords += leaf.WordCount
		totalItems += leaf.ItemCount
	})

	blocks := ComputeLayout(i.tree, float64(i.opts.Width), float64(i.opts.Height))
	i.artifact = renderSVG(blocks, i.opts, totalWords, totalItems, i.rootLabel)
}

// Artifact extracts the rendered SVG from an instance created by this
// engine. Returns nil for foreign instances.
func Artifact(inst chart.Instance) []byte {
	if i, ok := inst.(*instance); ok {
		return i.Artifact()
	}
	return nil
}

// Ensure interface compliance.
var (
	_ chart.Engine   = (*Engine)(nil)
	_ chart.Instance = (*instance)(nil)
)
