// Package dot exports the hierarchy as a Graphviz node-link diagram.
//
// The treemap is the primary visualization; the DOT export exists for hosts
// that want the country → collection structure in graph tooling, and for the
// `wordmap render --format dot|graph-svg` CLI path. Rendering uses
// [github.com/goccy/go-graphviz], which runs Graphviz in-process (no system
// binary required).
package dot

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/lexatlas/wordmap/pkg/hierarchy"
)

// ToDOT converts a hierarchy to Graphviz DOT format.
// The synthetic root becomes the graph's root node labeled rootLabel;
// collections carry their counts in the label.
func ToDOT(root *hierarchy.Node, rootLabel string) string {
	var buf bytes.Buffer
	buf.WriteString("digraph wordmap {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.15,0.08\"];\n")
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  %q [style=\"rounded,filled,bold\"];\n", rootLabel)

	for _, country := range root.Children {
		countryID := "country/" + country.Name
		fmt.Fprintf(&buf, "  %q [label=%q];\n", countryID, fmt.Sprintf("%s\n%d words", country.Name, country.WordCount))
		fmt.Fprintf(&buf, "  %q -> %q;\n", rootLabel, countryID)

		for _, leaf := range country.Children {
			leafID := countryID + "/" + leaf.Name
			label := fmt.Sprintf("%s\n%d words / %d items", leaf.Name, leaf.WordCount, leaf.ItemCount)
			fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=lightgrey];\n", leafID, label)
			fmt.Fprintf(&buf, "  %q -> %q;\n", countryID, leafID)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
