// Package treemap renders the hierarchy as a squarified treemap SVG.
//
// Layout and emission are split: ComputeLayout produces draw-ready blocks
// from the tree and the frame dimensions, and renderSVG turns blocks into
// markup. The split keeps the geometry testable without parsing SVG.
package treemap

import (
	"math"
	"sort"

	"github.com/lexatlas/wordmap/pkg/hierarchy"
)

// Layout constants, in pixels.
const (
	countryPad    = 4.0  // inner padding inside country rects
	countryLabelH = 18.0 // space reserved for the country title strip
	minSidePx     = 4.0  // blocks thinner than this are dropped, leaving whitespace
)

// Block is one draw-ready rectangle.
type Block struct {
	X, Y, W, H float64

	Name    string
	Country string // parent country for leaves, empty for country blocks
	Words   int
	Items   int
	Leaf    bool

	// ColorIndex selects the palette color; leaves inherit their country's.
	ColorIndex int
}

// ComputeLayout lays the two-level tree into a width×height frame.
// Countries are squarified over the full frame by word count; each country's
// collections are squarified into its interior, below the label strip.
// Blocks whose final size falls under minSidePx are omitted but still
// consume area, so tiny collections appear as whitespace instead of
// distorting their siblings.
func ComputeLayout(root *hierarchy.Node, width, height float64) []Block {
	if root == nil || width <= 0 || height <= 0 || len(root.Children) == 0 {
		return nil
	}

	total := 0
	for _, c := range root.Children {
		total += c.WordCount
	}
	if total <= 0 {
		return nil
	}

	out := make([]Block, 0, root.CountNodes())

	countryRects := squarify(wordAreas(root.Children, float64(total), width*height), frame{0, 0, width, height})
	for i, country := range root.Children {
		r := countryRects[i]
		if r.w < minSidePx || r.h < minSidePx {
			continue
		}
		out = append(out, Block{
			X: r.x, Y: r.y, W: r.w, H: r.h,
			Name:       country.Name,
			Words:      country.WordCount,
			Items:      country.ItemCount,
			ColorIndex: i,
		})

		inner := frame{
			x: r.x + countryPad,
			y: r.y + countryPad + countryLabelH,
			w: r.w - 2*countryPad,
			h: r.h - 2*countryPad - countryLabelH,
		}
		if inner.w < minSidePx || inner.h < minSidePx || country.WordCount <= 0 {
			continue
		}

		leafRects := squarify(wordAreas(country.Children, float64(country.WordCount), inner.w*inner.h), inner)
		for j, leaf := range country.Children {
			lr := leafRects[j]
			if lr.w < minSidePx || lr.h < minSidePx {
				continue
			}
			out = append(out, Block{
				X: lr.x, Y: lr.y, W: lr.w, H: lr.h,
				Name:       leaf.Name,
				Country:    country.Name,
				Words:      leaf.WordCount,
				Items:      leaf.ItemCount,
				Leaf:       true,
				ColorIndex: i,
			})
		}
	}

	return out
}

// frame is a working rectangle during layout.
type frame struct {
	x, y, w, h float64
}

// wordAreas scales node word counts so their areas sum to the target area.
// Zero-count nodes get zero area and collapse to empty rects.
func wordAreas(nodes []*hierarchy.Node, totalWords, area float64) []float64 {
	areas := make([]float64, len(nodes))
	if totalWords <= 0 {
		return areas
	}
	for i, n := range nodes {
		if n.WordCount > 0 {
			areas[i] = float64(n.WordCount) / totalWords * area
		}
	}
	return areas
}

// squarify lays out one level of areas into r using the squarified treemap
// algorithm. The returned slice is indexed like areas: out[i] is the rect for
// areas[i], so callers can match rects back to their nodes. Processing order
// is by descending area (stable on the original index), which the algorithm
// needs for good aspect ratios; output order is unaffected.
func squarify(areas []float64, r frame) []frame {
	out := make([]frame, len(areas))

	// Processing order: descending area, stable.
	order := make([]int, 0, len(areas))
	for i, a := range areas {
		if a > 0 {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return areas[order[a]] > areas[order[b]]
	})

	free := r
	i := 0
	for i < len(order) {
		short := math.Min(free.w, free.h)
		if short <= 0 {
			break
		}

		// Greedily grow the row while the worst aspect ratio improves.
		rowSum := areas[order[i]]
		rowEnd := i + 1
		for rowEnd < len(order) {
			next := areas[order[rowEnd]]
			if worst(areas, order[i:rowEnd], rowSum, short) <
				worst(areas, order[i:rowEnd+1], rowSum+next, short) {
				break
			}
			rowSum += next
			rowEnd++
		}

		free = placeRow(out, areas, order[i:rowEnd], rowSum, free)
		i = rowEnd
	}

	return out
}

// worst returns the worst aspect ratio in a row of sum s laid along a side of
// length l.
func worst(areas []float64, row []int, s, l float64) float64 {
	if s <= 0 {
		return math.MaxFloat64
	}
	maxA, minA := 0.0, math.MaxFloat64
	for _, idx := range row {
		a := areas[idx]
		if a > maxA {
			maxA = a
		}
		if a < minA {
			minA = a
		}
	}
	l2s2 := l * l / (s * s)
	return math.Max(l2s2*maxA, 1/(l2s2*minA))
}

// placeRow lays one row along the free rect's shorter side and returns the
// remaining free rect.
func placeRow(out []frame, areas []float64, row []int, rowSum float64, free frame) frame {
	if rowSum <= 0 {
		return free
	}

	if free.w >= free.h {
		// Vertical strip on the left.
		stripW := rowSum / free.h
		y := free.y
		for _, idx := range row {
			h := areas[idx] / stripW
			out[idx] = frame{free.x, y, stripW, h}
			y += h
		}
		return frame{free.x + stripW, free.y, free.w - stripW, free.h}
	}

	// Horizontal strip on top.
	stripH := rowSum / free.w
	x := free.x
	for _, idx := range row {
		w := areas[idx] / stripH
		out[idx] = frame{x, free.y, w, stripH}
		x += w
	}
	return frame{free.x, free.y + stripH, free.w, free.h - stripH}
}
