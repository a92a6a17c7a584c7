// Package tui is the interactive list: a Bubble Tea program bound to the
// synchronized todo store.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store/todostore"
	"github.com/Makepad-fr/tada/internal/ui"
)

// CreateFunc creates a task from a title typed in the list.
type CreateFunc func(ctx context.Context, title string) (model.Item, error)

// Options wire the program to its data.
type Options struct {
	Store  *todostore.Store
	Create CreateFunc
	// Timeout bounds each remote call started from the list.
	Timeout time.Duration
}

type mode int

const (
	browsing mode = iota
	adding
	editing
	confirmingDelete
)

// listItem adapts a todo to bubbles/list.Item
type listItem struct {
	item model.Item
	busy bool
}

func (i listItem) FilterValue() string { return i.item.Title }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                         { return 1 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	t := ui.Current()
	box, text := t.Muted.Render(t.BoxUnchecked), it.item.Title
	if it.item.Completed {
		box, text = t.Success.Render(t.BoxChecked), t.Done.Render(it.item.Title)
	}
	line := fmt.Sprintf("%s %s%s", box, text, t.Muted.Render(ui.Badges(it.item)))
	if it.busy {
		line += " " + t.Muted.Render(t.SymBusy)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = t.Selected.Render("> ")
	}
	fmt.Fprint(w, prefix+line)
}

// Messages produced by remote calls.
type (
	fetchedMsg struct{ err error }
	opDoneMsg  struct {
		id  string
		err error
	}
	createdMsg struct {
		item model.Item
		err  error
	}
	storeChangedMsg struct{}
)

var (
	addBind     = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind    = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	toggleBind  = key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle"))
	deleteBind  = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	refreshBind = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
	clearBind   = key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss error"))
)

// Model is the Bubble Tea model. The store is the source of truth; the list
// only mirrors it.
type Model struct {
	opt     Options
	list    list.Model
	ti      textinput.Model
	spinner spinner.Model

	mode     mode
	targetID string // item being edited or deleted
	inputErr string
	// notice holds failures that never reach the store, such as a create
	// rejected by validation.
	notice   string
	busy     map[string]bool
	creating bool
	width    int
	height   int
}

// New builds the model. Call Init (or Run) to load the list.
func New(opt Options) Model {
	if opt.Timeout <= 0 {
		opt.Timeout = 15 * time.Second
	}
	t := ui.Current()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = t.Title
	l.Styles.HelpStyle = t.Muted
	l.Styles.PaginationStyle = t.Muted
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("task", "tasks")
	extra := func() []key.Binding {
		return []key.Binding{toggleBind, addBind, editBind, deleteBind, refreshBind, clearBind}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		opt:     opt,
		list:    l,
		ti:      ti,
		spinner: sp,
		busy:    map[string]bool{},
		width:   80,
		height:  24,
	}
	m.syncFromStore()
	return m
}

// Run starts the program full-screen and blocks until the user quits.
func Run(opt Options) error {
	m := New(opt)
	p := tea.NewProgram(m, tea.WithAltScreen())
	opt.Store.OnChange(func() { go p.Send(storeChangedMsg{}) })
	defer opt.Store.OnChange(nil)
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.spinner.Tick)
}

func (m Model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.opt.Timeout)
}

func (m Model) fetch() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		return fetchedMsg{err: m.opt.Store.FetchAll(ctx)}
	}
}

func (m Model) toggle(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		_, _, err := m.opt.Store.Toggle(ctx, id)
		return opDoneMsg{id: id, err: err}
	}
}

func (m Model) rename(id, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		_, err := m.opt.Store.Update(ctx, id, model.UpdateInput{Title: model.Ptr(title)})
		return opDoneMsg{id: id, err: err}
	}
}

func (m Model) remove(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		return opDoneMsg{id: id, err: m.opt.Store.Remove(ctx, id)}
	}
}

func (m Model) create(title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		it, err := m.opt.Create(ctx, title)
		return createdMsg{item: it, err: err}
	}
}

// syncFromStore rebuilds the list rows from the store, keeping the cursor on
// the same item when it still exists.
func (m *Model) syncFromStore() tea.Cmd {
	selected := m.selectedID()
	items := m.opt.Store.Items()
	rows := make([]list.Item, 0, len(items))
	cursor := -1
	for i, it := range items {
		rows = append(rows, listItem{item: it, busy: m.busy[it.ID]})
		if it.ID == selected {
			cursor = i
		}
	}
	cmd := m.list.SetItems(rows)
	if cursor >= 0 {
		m.list.Select(cursor)
	}
	st := m.opt.Store.Stats()
	m.list.Title = ui.Header(st.Done, st.Pending)
	return cmd
}

func (m Model) selectedID() string {
	if it, ok := m.list.SelectedItem().(listItem); ok {
		return it.item.ID
	}
	return ""
}

func (m Model) selected() (model.Item, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it.item, ok
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case storeChangedMsg, fetchedMsg:
		return m, m.syncFromStore()

	case opDoneMsg:
		delete(m.busy, msg.id)
		return m, m.syncFromStore()

	case createdMsg:
		m.creating = false
		if msg.err != nil && m.opt.Store.Err() == "" {
			m.notice = todostore.NormalizeError(msg.err)
		}
		return m, m.syncFromStore()
	}

	switch m.mode {
	case adding, editing:
		return m.updateInput(msg)
	case confirmingDelete:
		return m.updateConfirm(msg)
	}
	return m.updateBrowse(msg)
}

func (m Model) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, isKey := msg.(tea.KeyMsg)
	if !isKey || m.list.SettingFilter() {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch km.String() {
	case "q", "esc", "ctrl+c":
		if km.String() == "esc" && m.list.IsFiltered() {
			break
		}
		return m, tea.Quit
	case " ":
		it, ok := m.selected()
		if !ok || m.busy[it.ID] {
			return m, nil
		}
		m.busy[it.ID] = true
		return m, tea.Batch(m.syncFromStore(), m.toggle(it.ID))
	case "d":
		it, ok := m.selected()
		if !ok || m.busy[it.ID] {
			return m, nil
		}
		m.mode, m.targetID = confirmingDelete, it.ID
		return m, nil
	case "a":
		if m.creating {
			return m, nil
		}
		m.mode, m.inputErr = adding, ""
		m.ti.SetValue("")
		m.ti.Placeholder = "New task title..."
		return m, m.ti.Focus()
	case "e":
		it, ok := m.selected()
		if !ok || m.busy[it.ID] {
			return m, nil
		}
		m.mode, m.targetID, m.inputErr = editing, it.ID, ""
		m.ti.SetValue(it.Title)
		m.ti.CursorEnd()
		m.ti.Placeholder = "Edit task title..."
		return m, m.ti.Focus()
	case "r":
		return m, m.fetch()
	case "x":
		m.opt.Store.ClearError()
		m.notice = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			title := strings.TrimSpace(m.ti.Value())
			if title == "" {
				m.inputErr = "Title cannot be empty"
				return m, nil
			}
			var cmd tea.Cmd
			if m.mode == adding {
				m.creating = true
				cmd = m.create(title)
			} else {
				m.busy[m.targetID] = true
				cmd = tea.Batch(m.syncFromStore(), m.rename(m.targetID, title))
			}
			m.leaveInput()
			return m, cmd
		case "esc":
			m.leaveInput()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *Model) leaveInput() {
	m.mode, m.inputErr = browsing, ""
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	id := m.targetID
	m.mode, m.targetID = browsing, ""
	switch km.String() {
	case "y", "Y", "enter":
		m.busy[id] = true
		return m, tea.Batch(m.syncFromStore(), m.remove(id))
	}
	return m, nil
}

func (m Model) View() string {
	t := ui.Current()
	w, h := m.width, m.height
	listHeight := h - 4
	if m.mode != browsing {
		listHeight = h - 6
	}
	errMsg := m.opt.Store.Err()
	if errMsg == "" {
		errMsg = m.notice
	}
	if errMsg != "" {
		listHeight--
	}
	m.list.SetSize(w-4, listHeight)

	var b strings.Builder
	b.WriteString(m.list.View())

	if errMsg != "" {
		b.WriteString("\n" + t.Error.Render(t.SymFail+" "+errMsg) + t.Muted.Render("  (x to dismiss)"))
	}
	if m.opt.Store.Loading() || m.creating {
		b.WriteString("\n" + m.spinner.View() + t.Muted.Render(" syncing..."))
	}

	switch m.mode {
	case adding, editing:
		title := "Add new task"
		if m.mode == editing {
			title = "Edit task"
		}
		if m.inputErr != "" {
			title += " - " + t.Error.Render(m.inputErr)
		}
		b.WriteString("\n" + ui.Panel([]string{title, m.ti.View()}))
	case confirmingDelete:
		name := ""
		if it, ok := m.opt.Store.Item(m.targetID); ok {
			name = ui.Title(it.Title, 40)
		}
		b.WriteString("\n" + ui.Panel([]string{
			t.Error.Render(fmt.Sprintf("Delete %q?", name)),
			t.Muted.Render("y to confirm, any other key to cancel"),
		}))
	}
	return ui.Panel([]string{b.String()})
}
