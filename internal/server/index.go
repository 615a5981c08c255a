package server

import (
	"html/template"
	"net/http"
)

// indexTemplate is the host page: header chrome around the embedded chart.
// The page pushes its viewport size on load and on window resize, so the
// server-side surface tracks the client.
var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="{{.Language}}">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { margin: 0; font-family: system-ui, sans-serif; display: flex; flex-direction: column; height: 100vh; }
  header { padding: 12px 16px; border-bottom: 1px solid #ddd; display: flex; gap: 24px; align-items: baseline; }
  header h1 { font-size: 18px; margin: 0; }
  header .stat { color: #555; font-size: 14px; }
  main { flex: 1; min-height: 0; }
  main img { width: 100%; height: 100%; }
  .placeholder { display: flex; height: 100%; align-items: center; justify-content: center; color: #888; }
</style>
</head>
<body>
<header>
  <h1>{{.Title}}</h1>
  <span class="stat">{{.ItemsLabel}}: {{.ItemsText}}</span>
  <span class="stat">{{.WordsLabel}}: {{.WordsText}}</span>
  {{if .AverageText}}<span class="stat">{{.AverageLabel}}: {{.AverageText}}</span>{{end}}
</header>
<main>
  {{if .Placeholder}}
  <div class="placeholder">{{.Placeholder}}</div>
  {{else}}
  <img src="/viz.svg" alt="{{.Title}}">
  {{end}}
</main>
<script>
function pushSize() {
  const m = document.querySelector('main');
  fetch('/api/resize', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({width: m.clientWidth, height: m.clientHeight})
  });
}
window.addEventListener('load', pushSize);
let t;
window.addEventListener('resize', () => { clearTimeout(t); t = setTimeout(pushSize, 200); });
</script>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	c := s.viz.Chrome()

	data := struct {
		Language     string
		Title        string
		ItemsLabel   string
		ItemsText    string
		WordsLabel   string
		WordsText    string
		AverageLabel string
		AverageText  string
		Placeholder  string
	}{
		Language:    s.lang.Language(),
		Title:       c.Summary.Title,
		ItemsLabel:  c.Summary.ItemsLabel,
		ItemsText:   c.Summary.ItemsText,
		WordsLabel:  c.Summary.WordsLabel,
		WordsText:   c.Summary.WordsText,
		Placeholder: c.Placeholder,
	}
	if c.Summary.HasAverage {
		data.AverageLabel = c.Summary.AverageLabel
		data.AverageText = c.Summary.AverageText
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Warn("index render failed", "err", err)
	}
}
