// Package present maps aggregate counts and the active language into the
// display values the host chrome shows: localized labels, locale-formatted
// numbers, and the derived average.
//
// The adapter is a pure mapping; it holds no state and can be re-run on
// every language or data change.
package present

import (
	"math"

	"github.com/lexatlas/wordmap/pkg/hierarchy"
	"github.com/lexatlas/wordmap/pkg/i18n"
)

// Summary holds the display strings for the header and summary panel.
// AverageText is empty when the item count is zero; the UI omits the stat
// rather than showing a division artifact.
type Summary struct {
	Title string

	ItemsLabel string
	ItemsText  string

	WordsLabel string
	WordsText  string

	AverageLabel string
	AverageText  string
	HasAverage   bool
}

// Summarize renders totals for the translator's language.
func Summarize(totals hierarchy.Totals, tr i18n.Translator) Summary {
	s := Summary{
		Title:        tr.T(i18n.KeyTitle),
		ItemsLabel:   tr.T(i18n.KeyItems),
		ItemsText:    tr.FormatNumber(totals.Items),
		WordsLabel:   tr.T(i18n.KeyWords),
		WordsText:    tr.FormatNumber(totals.Words),
		AverageLabel: tr.T(i18n.KeyAverage),
	}

	if totals.Items > 0 {
		avg := int(math.Round(float64(totals.Words) / float64(totals.Items)))
		s.AverageText = tr.FormatNumber(avg)
		s.HasAverage = true
	}

	return s
}

// Placeholder returns the localized placeholder text for a display state.
// State is one of "loading", "error", "empty".
func Placeholder(state string, tr i18n.Translator) string {
	switch state {
	case "loading":
		return tr.T(i18n.KeyLoading)
	case "error":
		return tr.T(i18n.KeyDataError)
	default:
		return tr.T(i18n.KeyNoData)
	}
}
