// Package tui provides the BubbleTea-based lesson row preview.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/Yersmagit/cw2-lessons-displayer/internal/adapter/input"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/adapter/output"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/config"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/core"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/model"
	"github.com/Yersmagit/cw2-lessons-displayer/internal/store"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeRow Mode = iota
	ModeDetail
	ModeHelp
)

// Model is the preview model.
type Model struct {
	cfg        *config.Config
	store      *store.Store
	source     input.SnapshotSource
	reconciler *core.Reconciler

	mode Mode
	help help.Model
	keys KeyMap

	result output.Result
	cursor int
	marks  [2][2]string

	width  int
	height int
	ready  bool

	statusMsg string
	statusErr bool

	refreshCh <-chan store.ChangeEvent
}

// New creates a preview model. source may be nil when snapshots are fed
// in by the caller.
func New(cfg *config.Config, s *store.Store, source input.SnapshotSource, rec *core.Reconciler) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if rec == nil {
		rec = core.NewReconciler(nil)
	}

	curOpen, curClose := config.MarkPair(cfg.Show.Marks, config.DefaultCurrentMark)
	nextOpen, nextClose := config.MarkPair(cfg.Show.Next, config.DefaultNextMark)

	h := help.New()
	h.ShowAll = true

	m := Model{
		cfg:        cfg,
		store:      s,
		source:     source,
		reconciler: rec,
		mode:       ModeRow,
		help:       h,
		keys:       DefaultKeyMap(),
		marks:      [2][2]string{{curOpen, curClose}, {nextOpen, nextClose}},
	}
	if s != nil {
		m.refreshCh = s.Subscribe()
	}
	return m
}

// Init loads the snapshot and starts following the store.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadSnapshot,
		m.watchForChanges,
	)
}

type reloadMsg struct{}

type snapshotMsg struct {
	snapshot *model.RuntimeSnapshot
	err      error
}

type refreshMsg struct{}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

// loadSnapshot reads the snapshot source.
func (m Model) loadSnapshot() tea.Msg {
	if m.source == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snap, err := m.source.Load(ctx)
	return snapshotMsg{snapshot: snap, err: err}
}

// watchForChanges waits for the next store change.
func (m Model) watchForChanges() tea.Msg {
	if m.refreshCh == nil {
		return nil
	}
	if _, ok := <-m.refreshCh; !ok {
		return nil
	}
	return refreshMsg{}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		return m, nil

	case reloadMsg:
		return m, m.loadSnapshot

	case snapshotMsg:
		if msg.err != nil {
			return m, status("Load failed: "+msg.err.Error(), true)
		}
		m.apply(*msg.snapshot)
		return m, nil

	case refreshMsg:
		m.syncFromStore()
		return m, m.watchForChanges

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, status("Copy failed: "+msg.err.Error(), true)
		}
		return m, status("Copied to clipboard", false)
	}

	return m, nil
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// apply reconciles a snapshot into the store, or straight into the view
// when there is no store.
func (m *Model) apply(snap model.RuntimeSnapshot) {
	lessons, highlight := m.reconciler.ReconcileSnapshot(snap)
	if m.store == nil {
		m.result = output.Result{Lessons: lessons, Highlight: highlight}
		m.cursor = scrollTarget(m.result)
		return
	}
	if _, err := m.store.SetLessons(lessons, highlight); err != nil {
		slog.Debug("preview store rejected lessons", "error", err)
		return
	}
	m.syncFromStore()
}

// syncFromStore copies the published state and moves the cursor to the
// lesson the overlay would scroll to.
func (m *Model) syncFromStore() {
	if m.store == nil {
		return
	}
	rev := m.store.Revision()
	m.result = output.Result{
		Revision:  rev,
		UpdatedAt: model.RevisionTime(rev),
		Lessons:   m.store.Lessons(),
		Highlight: m.store.Highlight(),
	}
	m.cursor = scrollTarget(m.result)
}

func scrollTarget(r output.Result) int {
	return max(r.IndexOf(r.Highlight.ScrollTarget()), 0)
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeRow
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	switch m.mode {
	case ModeRow:
		return m.handleRowKey(msg)
	case ModeDetail, ModeHelp:
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeRow
		}
	}
	return m, nil
}

// handleRowKey handles keys in row mode.
func (m Model) handleRowKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.result.Lessons)

	switch {
	case key.Matches(msg, m.keys.Left):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(msg, m.keys.Right):
		m.cursor = min(m.cursor+1, max(n-1, 0))
	case key.Matches(msg, m.keys.Home):
		m.cursor = 0
	case key.Matches(msg, m.keys.End):
		m.cursor = max(n-1, 0)
	case key.Matches(msg, m.keys.Current):
		m.cursor = scrollTarget(m.result)

	case key.Matches(msg, m.keys.Enter):
		if n > 0 {
			m.mode = ModeDetail
		}

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadSnapshot

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyToClipboard(m.plainRow())

	case key.Matches(msg, m.keys.CopyJSON):
		data, err := json.MarshalIndent(m.result, "", "  ")
		if err != nil {
			return m, status("Failed to marshal JSON: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))

	case key.Matches(msg, m.keys.CopyYAML):
		data, err := yaml.Marshal(m.result)
		if err != nil {
			return m, status("Failed to marshal YAML: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))
	}

	return m, nil
}

func (m Model) copyToClipboard(text string) tea.Cmd {
	command := m.cfg.Preview.Clipboard
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text, command)}
	}
}

// plainRow renders the row the way `lessons show --format row` does.
func (m Model) plainRow() string {
	opts := output.DefaultFormatterOptions()
	opts.CurrentMarks = m.marks[0]
	opts.NextMarks = m.marks[1]
	return output.NewRowFormatter(opts).Row(m.result)
}

// View renders the preview.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeRow:
		return m.viewRow()
	case ModeDetail:
		return m.viewDetail()
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	currentStyle = cellStyle.Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
	nextStyle    = cellStyle.Underline(true).Foreground(lipgloss.Color("12"))
	activity     = cellStyle.Faint(true)
)

func (m Model) viewRow() string {
	var sb strings.Builder

	header := "Today"
	if m.result.Highlight.InClass() {
		header += " · in class"
	} else {
		header += " · idle"
	}
	sb.WriteString(titleStyle.Render(header))
	if !m.result.UpdatedAt.IsZero() {
		sb.WriteString(dimStyle.Render("updated " + humanize.Time(m.result.UpdatedAt)))
	}
	sb.WriteString("\n\n")

	if len(m.result.Lessons) == 0 {
		sb.WriteString(dimStyle.Render("  no lessons today"))
	} else {
		sb.WriteString(m.renderRow(max(m.width, m.cfg.Preview.Width)))
	}
	sb.WriteString("\n\n")

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		sb.WriteString(statusStyle.Render(m.statusMsg))
	} else {
		sb.WriteString(m.buildKeybindBar(m.width, "row"))
	}
	return sb.String()
}

// renderRow renders the visible window of cells with a caret line under
// the cursor.
func (m Model) renderRow(width int) string {
	cells := make([]string, len(m.result.Lessons))
	widths := make([]int, len(cells))
	for i, l := range m.result.Lessons {
		cells[i] = m.renderCell(l)
		widths[i] = lipgloss.Width(cells[i])
	}

	start, end := visibleRange(widths, m.cursor, width)

	var row, caret strings.Builder
	for i := start; i < end; i++ {
		row.WriteString(cells[i])
		if i == m.cursor {
			caret.WriteString(lipgloss.PlaceHorizontal(widths[i], lipgloss.Center, "^"))
		} else {
			caret.WriteString(strings.Repeat(" ", widths[i]))
		}
	}

	line := row.String()
	if start > 0 {
		line = dimStyle.Render("…") + line
	}
	if end < len(cells) {
		line += dimStyle.Render("…")
	}
	prefix := ""
	if start > 0 {
		prefix = " "
	}
	return line + "\n" + prefix + caret.String()
}

func (m Model) renderCell(l model.DisplayLesson) string {
	h := m.result.Highlight
	switch {
	case l.ID != "" && l.ID == h.CurrentLessonID:
		return currentStyle.Render(m.marks[0][0] + l.Abbr + m.marks[0][1])
	case l.ID != "" && l.ID == h.NextLessonID:
		return nextStyle.Render(m.marks[1][0] + l.Abbr + m.marks[1][1])
	case !l.IsClass:
		return activity.Render(l.Abbr)
	default:
		return cellStyle.Render(l.Abbr)
	}
}

// visibleRange returns the cells [start, end) that fit in width while
// keeping cursor visible. The window starts at the left edge and scrolls
// only as far as needed.
func visibleRange(widths []int, cursor, width int) (start, end int) {
	n := len(widths)
	if n == 0 {
		return 0, 0
	}
	cursor = min(max(cursor, 0), n-1)

	total := 0
	for end < n && total+widths[end] <= width {
		total += widths[end]
		end++
	}
	for end <= cursor {
		total += widths[end]
		end++
		for start < cursor && total > width {
			total -= widths[start]
			start++
		}
	}
	return start, end
}

func (m Model) viewDetail() string {
	if m.cursor >= len(m.result.Lessons) {
		return ""
	}
	l := m.result.Lessons[m.cursor]
	h := m.result.Highlight

	role := "-"
	switch {
	case l.ID != "" && l.ID == h.CurrentLessonID:
		role = "current"
	case l.ID != "" && l.ID == h.NextLessonID:
		role = "next"
	}
	kind := "class"
	if !l.IsClass {
		kind = "activity"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Lesson Detail") + "\n\n")
	fmt.Fprintf(&sb, "  Label:    %s\n", l.Abbr)
	fmt.Fprintf(&sb, "  ID:       %s\n", l.ID)
	fmt.Fprintf(&sb, "  Kind:     %s\n", kind)
	fmt.Fprintf(&sb, "  Position: %d of %d\n", m.cursor+1, len(m.result.Lessons))
	fmt.Fprintf(&sb, "  Role:     %s\n", role)
	if m.result.Revision != "" {
		fmt.Fprintf(&sb, "  Revision: %s\n", m.result.Revision)
	}
	sb.WriteString("\n" + m.buildKeybindBar(m.width, "detail"))
	return sb.String()
}

func (m Model) viewHelp() string {
	return titleStyle.Render("Keyboard Shortcuts") + "\n\n" +
		m.help.View(m.keys) + "\n\n" +
		dimStyle.Render("Press ? or esc to return")
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
func (m Model) buildKeybindBar(width int, mode string) string {
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind
	switch mode {
	case "row":
		binds = []keybind{
			{"q", "quit", 1},
			{"←/→", "move", 2},
			{"?", "help", 3},
			{".", "current", 4},
			{"enter", "details", 5},
			{"c", "copy", 6},
			{"r", "reload", 7},
		}
	case "detail":
		binds = []keybind{
			{"q", "quit", 1},
			{"esc", "back", 2},
		}
	}

	const separator = "  "
	var result string
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		next := lipgloss.Width(result) + lipgloss.Width(b.key+" "+b.desc)
		if result != "" {
			next += len(separator)
		}
		if width > 0 && next > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return dimStyle.Render(result)
}

// RunOptions configures the preview.
type RunOptions struct {
	Config     *config.Config
	Source     input.SnapshotSource
	Reconciler *core.Reconciler
	WatchPath  string // Snapshot file to follow; empty disables live reload
	Logger     *slog.Logger
}

// Run starts the preview and blocks until the user quits.
func Run(opts RunOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := store.NewStore(0)
	defer s.Close()

	m := New(opts.Config, s, opts.Source, opts.Reconciler)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if opts.WatchPath != "" {
		watcher, err := store.NewFileWatcher(opts.WatchPath, func(string) {
			p.Send(reloadMsg{})
		}, logger)
		if err != nil {
			logger.Warn("failed to create file watcher", "error", err)
		} else {
			if err := watcher.Start(); err != nil {
				logger.Warn("failed to start file watcher", "error", err)
			}
			defer watcher.Stop()
		}
	}

	_, err := p.Run()
	return err
}
