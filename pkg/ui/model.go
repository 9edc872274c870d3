package ui

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/browse"
	"github.com/vanderheijden86/spacewalk/pkg/config"
	"github.com/vanderheijden86/spacewalk/pkg/debug"
	"github.com/vanderheijden86/spacewalk/pkg/metrics"
	"github.com/vanderheijden86/spacewalk/pkg/search"
	"github.com/vanderheijden86/spacewalk/pkg/watcher"
)

// focus identifies which surface consumes key input.
type focus int

const (
	focusTree focus = iota
	focusSearch
	focusFilter
	focusHelp
)

const (
	// memorySaveDelay is how long after the last structural change the
	// expansion memory is flushed to disk.
	memorySaveDelay = 2 * time.Second

	// minSplitWidth is the narrowest window that still fits the attribute
	// pane next to the tree.
	minSplitWidth = 70

	// maxAttrsPaneWidth caps the attribute pane on very wide windows.
	maxAttrsPaneWidth = 44
)

// Options configure NewModel.
type Options struct {
	Dir         addrspace.Directory
	SourceLabel string
	Config      *config.Config
	MemoryPath  string           // expansion memory file; empty disables persistence
	Watcher     *watcher.Watcher // non-nil enables live reload
}

// Model is the root bubbletea model: one tree, one optional attribute
// pane, one search session at a time.
type Model struct {
	dir    addrspace.Directory
	tree   *browse.TreeModel
	vp     *browse.ViewportController
	coord  *SearchCoordinator
	appCfg config.Config
	theme  Theme

	sourceLabel string
	memoryPath  string
	watcher     *watcher.Watcher

	width  int
	height int
	ready  bool

	focused         focus
	focusBeforeHelp focus

	prompt textinput.Model
	filter filterState

	attrsVisible bool
	attrs        attrsState
	attrSeq      int

	statusMsg     string
	statusIsError bool

	showHelp     bool
	helpVP       viewport.Model
	helpRendered string

	showMetrics bool
	spinnerIdx  int

	loadingRoots bool
	lastReveal   addrspace.NodeRef

	lastForceRefresh time.Time
	lastStructChange time.Time

	tick time.Duration
}

// NewModel builds the root model. The model starts ready with default
// dimensions so slow terminals (tmux, ssh) render immediately; the first
// WindowSizeMsg corrects them.
func NewModel(opts Options) Model {
	cfg := config.DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}

	mem := browse.NewExpansionMemory()
	if opts.MemoryPath != "" {
		mem = browse.LoadExpansionMemory(opts.MemoryPath)
	}

	theme := DefaultTheme(lipgloss.NewRenderer(os.Stdout))

	const defaultWidth = 120
	const defaultHeight = 40

	ti := textinput.New()
	ti.CharLimit = 128
	ti.PromptStyle = theme.Renderer.NewStyle().Foreground(theme.Primary).Bold(true)
	ti.TextStyle = theme.Base

	help := renderHelpMarkdown(defaultWidth)
	hvp := viewport.New(defaultWidth, defaultHeight-2)
	hvp.SetContent(help)

	return Model{
		dir:          opts.Dir,
		tree:         browse.NewTreeModel(opts.Dir, mem),
		vp:           browse.NewViewportController(defaultHeight - 2),
		coord:        &SearchCoordinator{},
		appCfg:       cfg,
		theme:        theme,
		sourceLabel:  opts.SourceLabel,
		memoryPath:   opts.MemoryPath,
		watcher:      opts.Watcher,
		width:        defaultWidth,
		height:       defaultHeight,
		ready:        true,
		prompt:       ti,
		attrsVisible: cfg.AttributesVisible(),
		loadingRoots: true,
		tick:         time.Duration(cfg.TickMs()) * time.Millisecond,
		helpVP:       hvp,
		helpRendered: help,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		loadRootsCmd(m.dir, false),
		drainTickCmd(m.tick),
	}
	if m.watcher != nil {
		cmds = append(cmds, WatchSnapshotCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.vp.SetVisibleHeight(m.bodyHeight())
		m.vp.Clamp(m.tree.Len())
		m.helpRendered = renderHelpMarkdown(m.width)
		m.helpVP.SetContent(m.helpRendered)
		m.sizeHelpViewport()

	case rootsLoadedMsg:
		m.loadingRoots = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Load error: %v", msg.err)
			m.statusIsError = true
			if msg.reload && m.watcher != nil {
				cmds = append(cmds, WatchSnapshotCmd(m.watcher))
			}
			return m, tea.Batch(cmds...)
		}
		m.tree.ApplyRoots(msg.kids)
		m.structureChanged()
		cmds = append(cmds, m.restoreRememberedCmds()...)
		cmds = append(cmds, m.selectionMoved())
		if msg.reload {
			m.statusMsg = "Snapshot reloaded"
			m.statusIsError = false
			if m.watcher != nil {
				cmds = append(cmds, WatchSnapshotCmd(m.watcher))
			}
		}

	case childrenLoadedMsg:
		if msg.err != nil {
			// A dead directory makes expansion a silent no-op; anything
			// else is surfaced once and the node stays collapsed.
			if !errors.Is(msg.err, addrspace.ErrNotConnected) {
				m.statusMsg = fmt.Sprintf("Expand failed: %v", msg.err)
				m.statusIsError = true
			}
			return m, nil
		}
		m.tree.ApplyChildren(msg.parentKey, msg.kids)
		m.structureChanged()
		// Remembered grandchildren keep the cascade going, one level per
		// round trip.
		for _, key := range m.tree.RememberedCollapsed() {
			if idx, ok := m.tree.FindIndexByKey(key); ok {
				if row, ok := m.tree.Row(idx); ok {
					cmds = append(cmds, fetchChildrenCmd(m.dir, row.PathKey, row.Ref))
				}
			}
		}
		cmds = append(cmds, m.selectionMoved())

	case attrDebounceMsg:
		if msg.seq != m.attrSeq || !m.attrsVisible {
			return m, nil
		}
		node, ok := m.tree.SelectedNode()
		if !ok {
			return m, nil
		}
		m.attrs = attrsState{ref: node.Ref, loading: true}
		cmds = append(cmds, readAttrsCmd(m.dir, node.Ref, msg.seq))

	case attrsLoadedMsg:
		if msg.seq != m.attrSeq {
			// A newer selection superseded this read.
			return m, nil
		}
		m.attrs = attrsState{ref: msg.ref, attrs: msg.attrs, err: msg.err}

	case revealMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Could not navigate to result: %v", msg.err)
			m.statusIsError = true
			return m, nil
		}
		if err := m.tree.ApplyRevealSteps(msg.target, msg.steps); err != nil {
			m.statusMsg = "Could not navigate to result"
			m.statusIsError = true
			return m, nil
		}
		m.lastReveal = msg.target
		m.structureChanged()
		cmds = append(cmds, m.selectionMoved())

	case drainTickMsg:
		cmds = append(cmds, m.onDrainTick()...)
		cmds = append(cmds, drainTickCmd(m.tick))

	case FileChangedMsg:
		// Snapshot changed on disk. Roots reload off-loop; the expansion
		// memory re-applies remembered drill-down as children arrive. The
		// watch subscription is re-armed when the reload lands.
		cmds = append(cmds, loadRootsCmd(m.dir, true))

	case tea.KeyMsg:
		// Clear status message on any keypress
		m.statusMsg = ""
		m.statusIsError = false

		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}

		if (msg.String() == "?" || msg.String() == "f1") && m.focused != focusSearch && m.focused != focusFilter {
			m.showHelp = !m.showHelp
			if m.showHelp {
				m.focusBeforeHelp = m.focused
				m.focused = focusHelp
				m.helpVP.GotoTop()
				m.sizeHelpViewport()
			} else {
				m.focused = m.focusBeforeHelp
			}
			return m, nil
		}

		switch m.focused {
		case focusHelp:
			return m.handleHelpKeys(msg)
		case focusSearch:
			return m.handleSearchInputKeys(msg)
		case focusFilter:
			return m.handleFilterInputKeys(msg)
		default:
			if msg.String() == "q" {
				return m, m.quit()
			}
			var cmd tea.Cmd
			m, cmd = m.handleTreeKeys(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	stop := metrics.Timer(metrics.UIRender)
	defer stop()

	header := m.renderHeader()
	footer := m.renderFooter()
	searchbar := m.renderSearchbar()

	bodyH := m.bodyHeight()
	m.vp.SetVisibleHeight(bodyH)

	var body string
	if m.showHelp {
		body = m.renderHelpOverlay()
	} else if m.attrsVisible && m.width >= minSplitWidth {
		body = m.renderSplitBody(bodyH)
	} else {
		body = m.renderTreePane(m.width, bodyH)
	}

	finalStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		MaxHeight(m.height)

	parts := []string{header, body}
	if searchbar != "" {
		parts = append(parts, searchbar)
	}
	parts = append(parts, footer)
	return finalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// renderSplitBody lays the attribute pane to the right of the tree.
func (m *Model) renderSplitBody(bodyH int) string {
	attrsWidth := m.width / 3
	if attrsWidth > maxAttrsPaneWidth {
		attrsWidth = maxAttrsPaneWidth
	}
	if attrsWidth < 24 {
		attrsWidth = 24
	}
	treeWidth := m.width - attrsWidth

	attrsStyle := m.theme.Renderer.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(m.theme.Border).
		PaddingLeft(1)

	tree := m.renderTreePane(treeWidth, bodyH)
	attrs := attrsStyle.Render(m.renderAttrsPane(attrsWidth-2, bodyH))
	return lipgloss.JoinHorizontal(lipgloss.Top, tree, attrs)
}

// bodyHeight is the line budget between header and footer, minus the
// searchbar when visible.
func (m *Model) bodyHeight() int {
	h := m.height - 2
	if m.searchbarVisible() {
		h--
	}
	if h < 3 {
		h = 3
	}
	return h
}

// sizeHelpViewport fits the help viewport to the body, reserving one line
// for the scroll hint when the content overflows.
func (m *Model) sizeHelpViewport() {
	h := m.bodyHeight()
	if m.helpVP.TotalLineCount() > h {
		h--
	}
	m.helpVP.Width = m.width
	m.helpVP.Height = h
}

// onDrainTick advances the spinner, drains the search engine, and kicks
// the deferred memory flush.
func (m *Model) onDrainTick() []tea.Cmd {
	var cmds []tea.Cmd

	if m.coord.Searching() {
		m.spinnerIdx++
	}

	sum := m.coord.Drain()
	if sum.firstHit != nil {
		// First hit: stop the walk and navigate to it.
		m.coord.Cancel()
		if idx, ok := m.tree.FindIndexByRef(sum.firstHit.Ref); ok {
			m.tree.SetSelection(idx)
			m.lastReveal = sum.firstHit.Ref
			cmds = append(cmds, m.selectionMoved())
		} else {
			cmds = append(cmds, resolvePathCmd(m.dir, sum.firstHit.Ref))
		}
	}
	if sum.terminal {
		m.statusMsg = m.coord.StatusLine()
		m.statusIsError = false
	}

	m.maybeSaveMemory(time.Now())
	return cmds
}

// selectionMoved re-centers the viewport and arms the attribute debounce.
func (m *Model) selectionMoved() tea.Cmd {
	m.vp.OnSelectionChanged(m.tree.Selection(), m.tree.Len())
	if !m.attrsVisible || m.dir == nil {
		return nil
	}
	m.attrSeq++
	return attrDebounceCmd(m.attrSeq)
}

// structureChanged reclamps the viewport, refreshes the filter, and stamps
// the memory-flush clock after rows were added or removed.
func (m *Model) structureChanged() {
	m.vp.Clamp(m.tree.Len())
	if m.filter.applied {
		m.filter.Recompute(m.tree.Rows())
	}
	m.lastStructChange = time.Now()
}

// restoreRememberedCmds starts the level-by-level re-expansion of
// remembered branches after a root (re)load.
func (m *Model) restoreRememberedCmds() []tea.Cmd {
	var cmds []tea.Cmd
	if m.dir == nil || !m.dir.IsConnected() {
		return nil
	}
	for _, key := range m.tree.RememberedCollapsed() {
		if idx, ok := m.tree.FindIndexByKey(key); ok {
			if row, ok := m.tree.Row(idx); ok {
				cmds = append(cmds, fetchChildrenCmd(m.dir, row.PathKey, row.Ref))
			}
		}
	}
	return cmds
}

// maybeSaveMemory flushes the expansion memory once the tree has been
// structurally quiet for memorySaveDelay.
func (m *Model) maybeSaveMemory(now time.Time) {
	if m.memoryPath == "" || !m.tree.Memory().Dirty() {
		return
	}
	if m.lastStructChange.IsZero() || now.Sub(m.lastStructChange) < memorySaveDelay {
		return
	}
	m.saveMemory()
}

// saveMemory persists the expansion memory; failures are logged, never
// surfaced.
func (m *Model) saveMemory() {
	if m.memoryPath == "" {
		return
	}
	mem := m.tree.Memory()
	if !mem.Dirty() {
		return
	}
	if err := mem.Save(m.memoryPath); err != nil {
		debug.Log("ui: save expansion memory: %v", err)
	}
}

// quit flushes state and stops the program.
func (m *Model) quit() tea.Cmd {
	m.saveMemory()
	return tea.Quit
}

// FocusState names the focused surface, for tests and robot output.
func (m Model) FocusState() string {
	switch m.focused {
	case focusSearch:
		return "search"
	case focusFilter:
		return "filter"
	case focusHelp:
		return "help"
	default:
		return "tree"
	}
}

// Tree exposes the tree model for tests and robot output.
func (m Model) Tree() *browse.TreeModel { return m.tree }

// StatusMessage returns the current footer message.
func (m Model) StatusMessage() string { return m.statusMsg }

// Searching reports whether a search session is in flight.
func (m Model) Searching() bool { return m.coord.Searching() }

// SearchResults returns the matches collected by the current session.
func (m Model) SearchResults() []search.Result { return m.coord.Results() }
