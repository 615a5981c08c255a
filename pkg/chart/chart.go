// Package chart defines the charting engine contract and the service that
// manages engine instances.
//
// The engine is a capability-abstracted external dependency: anything that
// can draw a treemap given nodes, dimensions, colors, and callbacks can back
// the visualization. The scheduler and hierarchy logic never see a concrete
// engine; they talk to [Service], which adds handle lifecycle, render
// idempotence, and error classification on top of the raw [Engine].
//
// Concrete engines live in subpackages: treemap (SVG), term (terminal),
// dot (Graphviz export).
package chart

import (
	"fmt"

	"github.com/lexatlas/wordmap/pkg/hierarchy"
)

// Surface is the drawing area a chart instance is bound to.
// Bounds is re-measured on resize; a zero dimension means the surface is not
// attached or not yet laid out, and no instance may be created against it.
type Surface interface {
	Bounds() (width, height int)
}

// FixedSurface is a Surface with explicit, updatable dimensions.
// It is the common case for server-side rendering where the "layout" is
// whatever the host last reported.
type FixedSurface struct {
	W, H int
}

// Bounds implements Surface.
func (s *FixedSurface) Bounds() (int, int) { return s.W, s.H }

// SetBounds updates the surface dimensions.
func (s *FixedSurface) SetBounds(w, h int) { s.W, s.H = w, h }

// LabelStyle selects how node labels are drawn.
type LabelStyle string

// Label styles.
const (
	LabelPlain LabelStyle = "plain"
	LabelBold  LabelStyle = "bold"
)

// NodeContext is the information handed to the tooltip callback for a
// hovered node: the node's own counts, the grand totals, and the ancestor
// path from the root (excluding the synthetic root itself).
type NodeContext struct {
	Name       string
	WordCount  int
	ItemCount  int
	TotalWords int
	TotalItems int
	Path       []string
}

// TooltipFunc computes the tooltip display string for a node.
// Implementations must be pure and must not fail on zero totals.
type TooltipFunc func(NodeContext) string

// Options configure an engine instance at creation time.
type Options struct {
	Width       int
	Height      int
	Palette     []string
	Zoom        bool // drill-down on click
	Breadcrumbs bool // ancestor navigation strip
	LabelStyle  LabelStyle
	Tooltip     TooltipFunc
}

// Partial is a partial option set merged into existing options by
// UpdateOptions. Nil fields are left unchanged.
type Partial struct {
	Width      *int
	Height     *int
	Palette    []string
	LabelStyle *LabelStyle
}

// Apply merges p into opts.
func (p Partial) Apply(opts *Options) {
	if p.Width != nil {
		opts.Width = *p.Width
	}
	if p.Height != nil {
		opts.Height = *p.Height
	}
	if p.Palette != nil {
		opts.Palette = p.Palette
	}
	if p.LabelStyle != nil {
		opts.LabelStyle = *p.LabelStyle
	}
}

// Engine creates chart instances. Implementations draw the deepest two
// levels of the hierarchy (countries as branches, collections as leaves);
// the synthetic root is never rendered as a node.
type Engine interface {
	// Name identifies the engine in logs and metrics ("svg", "term", "dot").
	Name() string

	// Create allocates an instance bound to the surface.
	// The surface must be measurable (nonzero bounds) at call time.
	Create(surface Surface, opts Options) (Instance, error)
}

// Instance is one live chart bound to one surface.
// Instances are not safe for concurrent use; Service serializes access.
type Instance interface {
	// Render replaces the displayed data with tree.
	Render(tree *hierarchy.Node) error

	// UpdateOptions merges new display options without discarding the
	// currently rendered tree. Dimensional changes take effect without a
	// full Render call.
	UpdateOptions(p Partial) error

	// Resize relays new surface dimensions to the engine.
	Resize(width, height int) error

	// Destroy releases engine resources. Called at most once by Service.
	Destroy() error
}

// DefaultTooltip renders percentage-of-total and average words per item.
// Division by zero degrades to "0" rather than failing, per the display
// contract: the tooltip may be asked about nodes while totals are zero.
func DefaultTooltip(nc NodeContext) string {
	pct := "0"
	if nc.TotalWords > 0 {
		pct = fmt.Sprintf("%.1f", float64(nc.WordCount)/float64(nc.TotalWords)*100)
	}
	avg := "0"
	if nc.ItemCount > 0 {
		avg = fmt.Sprintf("%d", nc.WordCount/nc.ItemCount)
	}
	return fmt.Sprintf("%s: %d words (%s%%), %s words/item", nc.Name, nc.WordCount, pct, avg)
}
