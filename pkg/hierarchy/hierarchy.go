// Package hierarchy builds the country → collection tree the treemap renders.
//
// The builder is a pure transform: the full item collection goes in, a
// two-level tree of aggregated counts comes out, together with running totals
// accumulated from the leaf collections in the same pass. Totals are never
// recomputed from the tree at read time; tree and totals always describe the
// same build, so they cannot drift apart.
//
// Grouping order is first-seen and therefore deterministic for identical
// input. Rebuilds of unchanged data produce identically ordered trees, which
// keeps chart node identity stable across renders.
package hierarchy

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lexatlas/wordmap/pkg/cache"
	"github.com/lexatlas/wordmap/pkg/i18n"
	"github.com/lexatlas/wordmap/pkg/observability"
	"github.com/lexatlas/wordmap/pkg/store"
)

// RootName is the name of the synthetic root node.
// The root itself is never rendered; only its descendants are.
const RootName = "root"

// Node is one node of the hierarchy.
// The root carries only children; countries carry children; collections are
// leaves carrying the counts.
type Node struct {
	Name      string  `json:"name"`
	WordCount int     `json:"wordCount,omitempty"`
	ItemCount int     `json:"itemCount,omitempty"`
	Children  []*Node `json:"children,omitempty"`
}

// Totals are the aggregate counts accumulated from leaf collections during a
// build. They are owned by the build pass that produced the tree.
type Totals struct {
	Words int
	Items int
}

// EmptyRoot returns the canonical empty tree.
func EmptyRoot() *Node {
	return &Node{Name: RootName}
}

// Hash returns a content hash of the subtree, used for render idempotence
// and artifact cache keys. Identical trees hash identically because child
// order is deterministic.
func (n *Node) Hash() string {
	data, _ := json.Marshal(n)
	return cache.Hash(data)
}

// CountNodes returns the number of nodes in the subtree, including n.
func (n *Node) CountNodes() int {
	count := 1
	for _, c := range n.Children {
		count += c.CountNodes()
	}
	return count
}

// Leaves calls fn for every leaf (collection) node with its country parent.
func (n *Node) Leaves(fn func(country, leaf *Node)) {
	for _, country := range n.Children {
		if len(country.Children) == 0 {
			fn(n, country)
			continue
		}
		for _, leaf := range country.Children {
			fn(country, leaf)
		}
	}
}

// Builder groups items into the two-level tree.
type Builder struct {
	tr i18n.Translator
}

// NewBuilder creates a builder whose fallback labels ("Unknown" country,
// "No set" collection) come from tr's language.
func NewBuilder(tr i18n.Translator) *Builder {
	if tr == nil {
		tr = i18n.NewBundle().Translator("en")
	}
	return &Builder{tr: tr}
}

// Build groups items by country, then by collection within country, summing
// word counts and counting items per collection. Totals accumulate from the
// leaves in the same pass.
//
// Behavior on malformed input: a missing or empty grouping attribute falls
// back to the localized label; a negative word count is treated as zero.
// Build never mutates its input and is safe to call concurrently.
func (b *Builder) Build(items []store.Item) (*Node, Totals) {
	root := EmptyRoot()
	totals := Totals{}

	countryIdx := make(map[string]int)
	leafIdx := make(map[string]map[string]int)

	for _, item := range items {
		country := item.Country
		if country == "" {
			country = b.tr.T(i18n.KeyUnknownCountry)
		}
		collection := item.Collection
		if collection == "" {
			collection = b.tr.T(i18n.KeyNoCollection)
		}
		words := item.WordCount
		if words < 0 {
			words = 0
		}

		ci, ok := countryIdx[country]
		if !ok {
			ci = len(root.Children)
			countryIdx[country] = ci
			leafIdx[country] = make(map[string]int)
			root.Children = append(root.Children, &Node{Name: country})
		}
		cn := root.Children[ci]

		li, ok := leafIdx[country][collection]
		if !ok {
			li = len(cn.Children)
			leafIdx[country][collection] = li
			cn.Children = append(cn.Children, &Node{Name: collection})
		}
		leaf := cn.Children[li]

		leaf.WordCount += words
		leaf.ItemCount++
		cn.WordCount += words
		cn.ItemCount++
		totals.Words += words
		totals.Items++
	}

	return root, totals
}

// SafeBuild wraps Build with panic recovery and observability hooks.
// Any failure degrades to the empty tree plus zeroed totals; the chart is
// never handed a partially built tree.
func (b *Builder) SafeBuild(ctx context.Context, logger *log.Logger, items []store.Item) (root *Node, totals Totals) {
	start := time.Now()
	observability.Build().OnBuildStart(ctx, len(items))

	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Error("hierarchy build failed", "panic", r)
			}
			root = EmptyRoot()
			totals = Totals{}
		}
		observability.Build().OnBuildComplete(ctx, len(items), root.CountNodes(), time.Since(start), nil)
	}()

	root, totals = b.Build(items)
	return root, totals
}
