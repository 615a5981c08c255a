package treemap

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lexatlas/wordmap/pkg/chart"
)

const breadcrumbH = 24.0

const interactionCSS = `
    .leaf { transition: opacity 0.15s ease; cursor: pointer; }
    .leaf:hover { opacity: 0.85; stroke-width: 2; }
    .country-label { font-weight: bold; pointer-events: none; }
    .breadcrumb { cursor: pointer; }`

// interactionJS implements drill-down by narrowing the viewBox to the
// clicked country and restoring it from the breadcrumb.
const interactionJS = `
    var svg = document.currentScript.closest('svg') || document.querySelector('svg');
    var home = svg.getAttribute('viewBox');
    var crumb = svg.querySelector('.breadcrumb-current');
    function zoom(el) {
      svg.setAttribute('viewBox', el.dataset.vb);
      if (crumb) crumb.textContent = ' / ' + el.dataset.name;
    }
    function reset() {
      svg.setAttribute('viewBox', home);
      if (crumb) crumb.textContent = '';
    }
    svg.querySelectorAll('.country-hit').forEach(function (el) {
      el.addEventListener('click', function () { zoom(el); });
    });
    svg.querySelectorAll('.breadcrumb').forEach(function (el) {
      el.addEventListener('click', reset);
    });`

// renderSVG emits the blocks as a standalone SVG document.
// The tooltip callback supplies the <title> content per block; totals give
// it the percentage denominator.
func renderSVG(blocks []Block, opts chart.Options, totalWords, totalItems int, rootLabel string) []byte {
	var buf bytes.Buffer

	w, h := float64(opts.Width), float64(opts.Height)
	top := 0.0
	if opts.Breadcrumbs {
		top = breadcrumbH
	}

	fmt.Fprintf(&buf,
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.0f %.0f" width="%.0f" height="%.0f" font-family="sans-serif">`+"\n",
		w, h+top, w, h+top)
	fmt.Fprintf(&buf, "<style>%s</style>\n", interactionCSS)

	if opts.Breadcrumbs {
		fmt.Fprintf(&buf,
			`<text class="breadcrumb" x="8" y="%.0f" font-size="13">%s<tspan class="breadcrumb-current"></tspan></text>`+"\n",
			breadcrumbH-8, escape(rootLabel))
	}

	fmt.Fprintf(&buf, `<g transform="translate(0 %.0f)">`+"\n", top)

	for _, b := range blocks {
		if b.Leaf {
			continue
		}
		color := paletteColor(opts.Palette, b.ColorIndex)
		fmt.Fprintf(&buf,
			`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" fill-opacity="0.25" stroke="%s"/>`+"\n",
			b.X, b.Y, b.W, b.H, color, color)
		fmt.Fprintf(&buf,
			`<text class="country-label" x="%.1f" y="%.1f" font-size="12"%s>%s</text>`+"\n",
			b.X+countryPad, b.Y+countryLabelH-4, labelWeight(opts.LabelStyle), escape(b.Name))
		if opts.Zoom {
			// Invisible hit target over the whole country rect.
			fmt.Fprintf(&buf,
				`<rect class="country-hit" x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="transparent" data-name="%s" data-vb="%.1f %.1f %.1f %.1f"/>`+"\n",
				b.X, b.Y, b.W, b.H, escape(b.Name), b.X, b.Y+top, b.W, b.H)
		}
	}

	for _, b := range blocks {
		if !b.Leaf {
			continue
		}
		color := paletteColor(opts.Palette, b.ColorIndex)
		tooltip := ""
		if opts.Tooltip != nil {
			tooltip = opts.Tooltip(chart.NodeContext{
				Name:       b.Name,
				WordCount:  b.Words,
				ItemCount:  b.Items,
				TotalWords: totalWords,
				TotalItems: totalItems,
				Path:       []string{b.Country},
			})
		}
		fmt.Fprintf(&buf,
			`<g class="leaf"><rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" stroke="white"/>`,
			b.X, b.Y, b.W, b.H, color)
		if tooltip != "" {
			fmt.Fprintf(&buf, "<title>%s</title>", escape(tooltip))
		}
		if b.W > 40 && b.H > 16 {
			fmt.Fprintf(&buf,
				`<text x="%.1f" y="%.1f" font-size="10" fill="white"%s>%s</text>`,
				b.X+3, b.Y+12, labelWeight(opts.LabelStyle), escape(fitLabel(b.Name, b.W)))
		}
		buf.WriteString("</g>\n")
	}

	buf.WriteString("</g>\n")
	if opts.Zoom {
		fmt.Fprintf(&buf, "<script><![CDATA[%s]]></script>\n", interactionJS)
	}
	buf.WriteString("</svg>\n")

	return buf.Bytes()
}

func paletteColor(palette []string, i int) string {
	if len(palette) == 0 {
		return "#4F46E5"
	}
	return palette[i%len(palette)]
}

func labelWeight(style chart.LabelStyle) string {
	if style == chart.LabelBold {
		return ` font-weight="bold"`
	}
	return ""
}

// fitLabel truncates a label to roughly fit the block width. Truncation is
// on rune boundaries so multi-byte names stay valid UTF-8.
func fitLabel(name string, w float64) string {
	max := int(w / 6)
	if max < 1 {
		return ""
	}
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	if max <= 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
