// Package term renders the hierarchy as proportional bars for terminal
// display. It backs the `wordmap watch` TUI: countries become styled section
// headers, collections become bars scaled to their word counts.
package term

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/lexatlas/wordmap/pkg/chart"
	"github.com/lexatlas/wordmap/pkg/errors"
	"github.com/lexatlas/wordmap/pkg/hierarchy"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	countStyle  = lipgloss.NewStyle().Faint(true)
)

// Engine renders terminal bar charts.
type Engine struct{}

// Name implements chart.Engine.
func (e *Engine) Name() string { return "term" }

// Create implements chart.Engine. Width is interpreted as columns.
func (e *Engine) Create(surface chart.Surface, opts chart.Options) (chart.Instance, error) {
	w, h := surface.Bounds()
	if err := errors.ValidateDimensions(w, h); err != nil {
		return nil, err
	}
	return &instance{opts: opts}, nil
}

type instance struct {
	mu        sync.Mutex
	opts      chart.Options
	tree      *hierarchy.Node
	frame     string
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

// UpdateOptions implements chart.Instance.
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
	i.frame = ""
	return nil
}

// redraw rebuilds the frame from the retained tree. Caller holds i.mu.
func (i *instance) redraw() {
	if i.tree == nil || len(i.tree.Children) == 0 {
		i.frame = ""
		return
	}

	maxWords := 0
	for _, country := range i.tree.Children {
		for _, leaf := range country.Children {
			if leaf.WordCount > maxWords {
				maxWords = leaf.WordCount
			}
		}
	}
	if maxWords == 0 {
		i.frame = ""
		return
	}

	// Reserve space for "name bar count".
	nameW := 14
	barW := i.opts.Width - nameW - 10
	if barW < 4 {
		barW = 4
	}

	var b strings.Builder
	for ci, country := range i.tree.Children {
		style := headerStyle
		if len(i.opts.Palette) > 0 {
			style = style.Foreground(lipgloss.Color(i.opts.Palette[ci%len(i.opts.Palette)]))
		}
		b.WriteString(style.Render(fmt.Sprintf("%s  %d words / %d items", country.Name, country.WordCount, country.ItemCount)))
		b.WriteString("\n")

		for _, leaf := range country.Children {
			bar := strings.Repeat("█", 1+leaf.WordCount*(barW-1)/maxWords)
			// Pad by display width, not byte length, so multi-byte names
			// keep the bar column aligned.
			name := runewidth.FillRight(clip(leaf.Name, nameW), nameW)
			b.WriteString(fmt.Sprintf("  %s %s %s\n",
				name, bar, countStyle.Render(fmt.Sprintf("%d", leaf.WordCount))))
		}
	}

	i.frame = b.String()
}

// Frame returns the last rendered frame, or "" before the first render.
func (i *instance) Frame() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.frame
}

// Frame extracts the rendered frame from an instance created by this engine.
// Returns "" for foreign instances.
func Frame(inst chart.Instance) string {
	if i, ok := inst.(*instance); ok {
		return i.Frame()
	}
	return ""
}

// clip shortens s to at most max display columns, ellipsizing on a rune
// boundary.
func clip(s string, max int) string {
	return runewidth.Truncate(s, max, "…")
}

// Ensure interface compliance.
var (
	_ chart.Engine   = (*Engine)(nil)
	_ chart.Instance = (*instance)(nil)
)
