package cli

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/lexatlas/wordmap/pkg/chart"
	"github.com/lexatlas/wordmap/pkg/chart/term"
	"github.com/lexatlas/wordmap/pkg/config"
	"github.com/lexatlas/wordmap/pkg/i18n"
	"github.com/lexatlas/wordmap/pkg/viz"
)

// watchLanguages is the cycle order for the "l" key.
var watchLanguages = []string{"en", "de", "fr"}

// TUI styles.
var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	statStyle  = lipgloss.NewStyle().Faint(true)
	helpStyle  = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

// newWatchCmd creates the watch command running the terminal UI.
func newWatchCmd() *cobra.Command {
	var itemsPath, configPath string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the live visualization in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), itemsPath, configPath)
		},
	}

	cmd.Flags().StringVarP(&itemsPath, "items", "i", "", "JSON items file for the in-memory store")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")

	return cmd
}

func runWatch(ctx context.Context, itemsPath, configPath string) error {
	logger := loggerFromContext(ctx)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	st, cleanup, err := buildStore(ctx, cfg, itemsPath, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	lang := i18n.NewSetting(i18n.NewBundle(), cfg.Language)
	surface := &termSurface{}
	svc := chart.NewService(&term.Engine{}, logger)
	v := viz.New(svc, st, lang, surface, nil, chartOptions(cfg), logger)

	if err := v.Mount(ctx); err != nil {
		return err
	}
	defer func() {
		if err := v.Unmount(); err != nil {
			logger.Warn("unmount failed", "err", err)
		}
	}()

	m := watchModel{viz: v, lang: lang, surface: surface}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// termSurface is the terminal render surface. The bubbletea loop resizes it
// while the visualization reads it from notification goroutines.
type termSurface struct {
	mu   sync.Mutex
	w, h int
}

func (s *termSurface) Bounds() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

func (s *termSurface) SetBounds(w, h int) {
	s.mu.Lock()
	s.w, s.h = w, h
	s.mu.Unlock()
}

var _ chart.Surface = (*termSurface)(nil)

// headerRows is the vertical space the chrome takes above the chart.
const headerRows = 3

// tickMsg drives periodic view refreshes so background renders show up.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// watchModel is the bubbletea model for the watch command.
type watchModel struct {
	viz     *viz.Visualization
	lang    *i18n.Setting
	surface *termSurface
}

func (m watchModel) Init() tea.Cmd {
	return tick()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "l":
			m.cycleLanguage()
		}

	case tea.WindowSizeMsg:
		m.surface.SetBounds(msg.Width, max(msg.Height-headerRows, 1))
		m.viz.NotifyResize()

	case tickMsg:
		return m, tick()
	}
	return m, nil
}

// cycleLanguage switches to the next language in watchLanguages.
func (m watchModel) cycleLanguage() {
	current := m.lang.Language()
	for i, code := range watchLanguages {
		if code == current {
			_ = m.lang.Set(watchLanguages[(i+1)%len(watchLanguages)])
			return
		}
	}
	_ = m.lang.Set(watchLanguages[0])
}

func (m watchModel) View() string {
	c := m.viz.Chrome()

	header := titleStyle.Render(c.Summary.Title)
	stats := statStyle.Render(
		c.Summary.ItemsLabel + ": " + c.Summary.ItemsText + "   " +
			c.Summary.WordsLabel + ": " + c.Summary.WordsText +
			averageStat(c))

	body := c.Placeholder
	if c.State == viz.StateReady {
		if handle := m.viz.Handle(); handle != nil {
			body = term.Frame(handle.Instance())
		}
	}

	help := helpStyle.Render("l: language  q: quit")
	return header + "\n" + stats + "\n\n" + body + help
}

func averageStat(c viz.Chrome) string {
	if !c.Summary.HasAverage {
		return ""
	}
	return "   " + c.Summary.AverageLabel + ": " + c.Summary.AverageText
}
