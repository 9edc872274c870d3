package ui

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/spacewalk/pkg/addrspace"
	"github.com/vanderheijden86/spacewalk/pkg/browse"
	"github.com/vanderheijden86/spacewalk/pkg/search"
)

// handleTreeKeys handles keyboard input when the tree has focus.
func (m Model) handleTreeKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg.String() {
	case "j", "down":
		m.tree.MoveSelection(1)
		cmds = append(cmds, m.selectionMoved())

	case "k", "up":
		m.tree.MoveSelection(-1)
		cmds = append(cmds, m.selectionMoved())

	case "g", "home":
		m.tree.SetSelection(0)
		cmds = append(cmds, m.selectionMoved())

	case "G", "end":
		m.tree.SetSelection(m.tree.Len() - 1)
		cmds = append(cmds, m.selectionMoved())

	case "ctrl+d", "pgdown":
		m.tree.MoveSelection(m.vp.VisibleHeight() / 2)
		cmds = append(cmds, m.selectionMoved())

	case "ctrl+u", "pgup":
		m.tree.MoveSelection(-m.vp.VisibleHeight() / 2)
		cmds = append(cmds, m.selectionMoved())

	case "l", "right", "enter":
		cmds = append(cmds, m.expandOrDescend())

	case "h", "left":
		cmds = append(cmds, m.collapseOrAscend())

	case "p":
		if idx, ok := m.tree.ParentIndex(m.tree.Selection()); ok {
			m.tree.SetSelection(idx)
			cmds = append(cmds, m.selectionMoved())
		}

	case "tab":
		m.attrsVisible = !m.attrsVisible
		if m.attrsVisible {
			cmds = append(cmds, m.selectionMoved())
		}

	case "/":
		m.focused = focusSearch
		m.prompt.Prompt = "/"
		m.prompt.Placeholder = "search below the selection"
		m.prompt.SetValue("")
		cmds = append(cmds, m.prompt.Focus())

	case "f":
		m.focused = focusFilter
		m.prompt.Prompt = "f "
		m.prompt.Placeholder = "type to filter..."
		m.prompt.SetValue(m.filter.query)
		m.prompt.CursorEnd()
		cmds = append(cmds, m.prompt.Focus())

	case "n":
		cmds = append(cmds, m.jumpToNextHit(false))

	case "N":
		cmds = append(cmds, m.jumpToNextHit(true))

	case "esc":
		switch {
		case m.coord.Searching():
			m.coord.Cancel()
		case m.filter.applied:
			m.filter.Reset()
		default:
			m.lastReveal = ""
		}

	case "y":
		if node, ok := m.tree.SelectedNode(); ok {
			if err := clipboard.WriteAll(string(node.Ref)); err != nil {
				m.statusMsg = fmt.Sprintf("Copy failed: %v", err)
				m.statusIsError = true
			} else {
				m.statusMsg = fmt.Sprintf("Copied %s", node.Ref)
			}
		}

	case "Y":
		if _, ok := m.tree.SelectedNode(); ok {
			path := m.selectedPath()
			if err := clipboard.WriteAll(path); err != nil {
				m.statusMsg = fmt.Sprintf("Copy failed: %v", err)
				m.statusIsError = true
			} else {
				m.statusMsg = fmt.Sprintf("Copied %s", path)
			}
		}

	case "m":
		m.showMetrics = !m.showMetrics

	case "ctrl+r", "f5":
		now := time.Now()
		if !m.lastForceRefresh.IsZero() && now.Sub(m.lastForceRefresh) < time.Second {
			return m, nil
		}
		m.lastForceRefresh = now
		m.statusMsg = "Refreshing…"
		cmds = append(cmds, loadRootsCmd(m.dir, true))
	}

	return m, tea.Batch(cmds...)
}

// expandOrDescend expands a collapsed node (dispatching the fetch off the
// loop) or steps into an already expanded one.
func (m *Model) expandOrDescend() tea.Cmd {
	sel := m.tree.Selection()
	node, ok := m.tree.Row(sel)
	if !ok {
		return nil
	}
	if node.Expanded {
		m.tree.MoveSelection(1)
		return m.selectionMoved()
	}
	if !m.tree.CanExpand(sel) {
		return nil
	}
	if m.dir == nil || !m.dir.IsConnected() {
		// Expansion on a dead directory is a silent no-op.
		return nil
	}
	return fetchChildrenCmd(m.dir, node.PathKey, node.Ref)
}

// collapseOrAscend collapses an expanded node or jumps to the parent of a
// collapsed one.
func (m *Model) collapseOrAscend() tea.Cmd {
	sel := m.tree.Selection()
	node, ok := m.tree.Row(sel)
	if !ok {
		return nil
	}
	if node.Expanded {
		m.tree.Collapse(sel)
		m.structureChanged()
		return m.selectionMoved()
	}
	if idx, ok := m.tree.ParentIndex(sel); ok {
		m.tree.SetSelection(idx)
		return m.selectionMoved()
	}
	return nil
}

// jumpToNextHit advances through filter hits when the filter is applied,
// otherwise through collected search results.
func (m *Model) jumpToNextHit(backwards bool) tea.Cmd {
	if m.filter.applied {
		var idx int
		var ok bool
		if backwards {
			idx, ok = m.filter.Prev(m.tree.Selection())
		} else {
			idx, ok = m.filter.Next(m.tree.Selection())
		}
		if ok {
			m.tree.SetSelection(idx)
			return m.selectionMoved()
		}
		return nil
	}

	var res search.Result
	var ok bool
	if backwards {
		res, ok = m.coord.PrevResult()
	} else {
		res, ok = m.coord.NextResult()
	}
	if !ok {
		return nil
	}
	// Already materialized: plain selection. Otherwise resolve the path.
	if idx, found := m.tree.FindIndexByRef(res.Ref); found {
		m.tree.SetSelection(idx)
		m.lastReveal = res.Ref
		return m.selectionMoved()
	}
	return resolvePathCmd(m.dir, res.Ref)
}

// handleSearchInputKeys edits the search prompt. Editing keys are the
// text input's business; only esc and enter leave the prompt.
func (m Model) handleSearchInputKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.focused = focusTree
		m.prompt.Blur()
		m.prompt.SetValue("")
		return m, nil

	case "enter":
		query := m.prompt.Value()
		m.focused = focusTree
		m.prompt.Blur()
		m.prompt.SetValue("")
		if query == "" {
			return m, nil
		}
		return m.startSearch(query)

	default:
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
}

// handleFilterInputKeys edits the quick-filter prompt. The filter applies
// live while typing.
func (m Model) handleFilterInputKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.focused = focusTree
		m.prompt.Blur()
		m.prompt.SetValue("")
		m.filter.Reset()
		return m, nil

	case "enter":
		m.focused = focusTree
		m.prompt.Blur()
		if m.filter.applied && len(m.filter.order) > 0 {
			m.tree.SetSelection(m.filter.order[0])
			return m, m.selectionMoved()
		}
		return m, nil

	default:
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		m.filter.query = m.prompt.Value()
		m.filter.Recompute(m.tree.Rows())
		return m, cmd
	}
}

// handleHelpKeys scrolls the help overlay. The viewport owns the usual
// movement keys; g/G and the close keys stay explicit.
func (m Model) handleHelpKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "g", "home":
		m.helpVP.GotoTop()
	case "G", "end":
		m.helpVP.GotoBottom()
	case "esc", "q", "?", "f1":
		m.showHelp = false
		m.focused = m.focusBeforeHelp
	default:
		var cmd tea.Cmd
		m.helpVP, cmd = m.helpVP.Update(msg)
		return m, cmd
	}
	return m, nil
}

// startSearch launches a search session rooted at the selection.
func (m Model) startSearch(query string) (Model, tea.Cmd) {
	if m.tree.Len() == 0 {
		m.statusMsg = "Nothing to search"
		m.statusIsError = true
		return m, nil
	}
	m.lastReveal = ""
	m.coord.Start(m.dir, m.sessionFromSelection(query), search.Config{
		ResultCap:     m.appCfg.Search.ResultCap,
		ProgressEvery: m.appCfg.Search.ProgressEvery,
	})
	return m, nil
}

// sessionFromSelection builds the session: the walk covers the selected
// row's subtree first, then its later siblings under the same parent. With
// no usable selection the first root seeds the walk.
func (m *Model) sessionFromSelection(query string) search.Session {
	rows := m.tree.Rows()
	sel := m.tree.Selection()
	if sel < 0 || sel >= len(rows) {
		sel = 0
	}
	node := rows[sel]

	var cont []addrspace.Descriptor
	for i := sel + 1; i < len(rows); i++ {
		if rows[i].Level < node.Level {
			break
		}
		if rows[i].Level == node.Level {
			cont = append(cont, descriptorOf(rows[i]))
		}
	}

	return search.Session{
		Query:         query,
		IncludeValues: m.appCfg.Search.IncludeValues,
		Start:         descriptorOf(node),
		Continue:      cont,
	}
}

func descriptorOf(n browse.TreeNode) addrspace.Descriptor {
	return addrspace.Descriptor{
		Ref:         n.Ref,
		DisplayName: n.Name,
		Class:       n.Class,
		HasChildren: n.HasChildren,
	}
}

// selectedPath joins the display names from the root to the selection.
func (m *Model) selectedPath() string {
	idx := m.tree.Selection()
	rows := m.tree.Rows()
	if idx < 0 || idx >= len(rows) {
		return ""
	}
	names := []string{rows[idx].Name}
	for {
		parent, ok := m.tree.ParentIndex(idx)
		if !ok {
			break
		}
		names = append([]string{rows[parent].Name}, names...)
		idx = parent
	}
	path := ""
	for i, n := range names {
		if i > 0 {
			path += "/"
		}
		path += n
	}
	return path
}
