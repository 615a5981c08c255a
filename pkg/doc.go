// Package pkg provides the core libraries for wordmap visualization.
//
// # Overview
//
// Wordmap renders the distribution of words across countries and their
// collections as a treemap that updates live as the underlying data, the
// display language, or the viewport changes. The pkg directory is organized
// into these areas:
//
//  1. [store] - Item data stores (in-memory, MongoDB) with change subscriptions
//  2. [hierarchy] - Grouping items into the country → collection tree
//  3. [chart] - Chart engine contract plus the treemap, terminal, and DOT engines
//  4. [viz] - The live visualization: lifecycle, change gating, frame coalescing
//  5. [present] - Localized summary values for the host chrome
//  6. [i18n], [config], [cache], [errors], [observability] - Supporting infrastructure
//
// # Architecture
//
// The typical data flow through wordmap:
//
//	Item store (memory or MongoDB)
//	         ↓
//	    [hierarchy] package (group into country → collection tree)
//	         ↓
//	    [viz] package (gate changes, coalesce renders)
//	         ↓
//	    [chart] package (treemap SVG, terminal bars, DOT)
//	         ↓
//	    HTTP server, terminal UI, or file output
//
// # Quick Start
//
//	st := store.NewMemStore()
//	st.SetItems(items)
//
//	lang := i18n.NewSetting(i18n.NewBundle(), "en")
//	svc := chart.NewService(&treemap.Engine{}, nil)
//	v := viz.New(svc, st, lang, surface, nil, chart.Options{}, nil)
//
//	if err := v.Mount(ctx); err != nil {
//	    return err
//	}
//	defer v.Unmount()
package pkg
