package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cfpicker.dev/cli/internal/application/services"
	"cfpicker.dev/cli/internal/core/browse"
	"cfpicker.dev/cli/internal/core/catalog"
	"cfpicker.dev/cli/internal/core/handoff"
	"cfpicker.dev/cli/internal/core/selection"
)

// actionDoneMsg is sent when a controller action returns
type actionDoneMsg struct {
	action string
	err    error
}

// confirmedMsg is sent when the selection was handed off
type confirmedMsg struct {
	msg handoff.Message
	err error
}

// pickerModel is the Bubble Tea model of the interactive picker
type pickerModel struct {
	ctx     context.Context
	service *services.PickerService
	session *services.PickerSession

	keys    pickerKeys
	help    help.Model
	spinner spinner.Model
	input   textinput.Model

	view      browse.View
	cursor    int
	history   []string
	searching bool
	notice    string
	result    *handoff.Message
	width     int
	height    int
}

func newPickerModel(ctx context.Context, service *services.PickerService, session *services.PickerSession) pickerModel {
	input := textinput.New()
	input.Placeholder = "Search products"
	input.Prompt = "/ "
	input.CharLimit = 128

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	m := pickerModel{
		ctx:     ctx,
		service: service,
		session: session,
		keys:    defaultPickerKeys(),
		help:    help.New(),
		spinner: spin,
		input:   input,
	}
	m.view = session.Controller.Snapshot()
	return m
}

// Init implements tea.Model
func (m pickerModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.run("load", m.session.Controller.Load),
	)
}

// Update implements tea.Model
func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case actionDoneMsg:
		m.refresh()
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			var loadErr *browse.LoadError
			if !errors.As(msg.err, &loadErr) {
				m.notice = msg.err.Error()
			}
		}
		return m, nil

	case confirmedMsg:
		if msg.err != nil {
			m.notice = describeConfirmError(msg.err)
			return m, nil
		}
		result := msg.msg
		m.result = &result
		return m, tea.Quit

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearchInput(msg)
		}
		return m.updateBrowse(msg)
	}

	return m, nil
}

func (m pickerModel) updateSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Submit):
		m.searching = false
		m.input.Blur()
		m.cursor = 0
		term := m.input.Value()
		return m, m.run("search", func(ctx context.Context) error {
			return m.session.Controller.Search(ctx, term)
		})

	case key.Matches(msg, m.keys.Abandon):
		m.searching = false
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m pickerModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""
	controller := m.session.Controller

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		m.history = nil
		m.cursor = 0
		return m, m.run("load", controller.Load)
	}

	// Everything below needs a usable browser
	if m.view.Status == browse.StatusError {
		m.notice = "Press r to reload"
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.view.Entries)-1 {
			m.cursor++
			return m, nil
		}
		if m.view.PageInfo.HasMore() {
			return m, m.run("load-more", controller.LoadMore)
		}
		return m, nil

	case key.Matches(msg, m.keys.More):
		return m, m.run("load-more", controller.LoadMore)

	case key.Matches(msg, m.keys.Open), key.Matches(msg, m.keys.Toggle):
		entry, ok := m.current()
		if !ok {
			return m, nil
		}
		if entry.Folder {
			if key.Matches(msg, m.keys.Toggle) {
				return m, nil
			}
			return m.openFolder(entry.Key.CategoryID())
		}
		session := m.session
		return m, m.run("toggle", func(ctx context.Context) error {
			return session.Toggle(ctx, entry.Key)
		})

	case key.Matches(msg, m.keys.Parent):
		if m.view.Searching() {
			m.cursor = 0
			m.input.Reset()
			return m, m.run("search", func(ctx context.Context) error {
				return controller.Search(ctx, "")
			})
		}
		if len(m.history) == 0 {
			return m, nil
		}
		parent := m.history[len(m.history)-1]
		m.history = m.history[:len(m.history)-1]
		m.cursor = 0
		return m, m.run("folder", func(ctx context.Context) error {
			return controller.SelectFolder(ctx, parent)
		})

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.input.SetValue(m.view.SearchTerm)
		m.input.CursorEnd()
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Cancel):
		if !m.view.Searching() {
			return m, nil
		}
		m.cursor = 0
		m.input.Reset()
		return m, m.run("search", func(ctx context.Context) error {
			return controller.Search(ctx, "")
		})

	case key.Matches(msg, m.keys.Config), key.Matches(msg, m.keys.Previous):
		step := 1
		if key.Matches(msg, m.keys.Previous) {
			step = -1
		}
		name, ok := cycleConfig(m.view.ConfigNames, m.view.ConfigName, step)
		if !ok {
			return m, nil
		}
		m.history = nil
		m.cursor = 0
		return m, m.run("config", func(ctx context.Context) error {
			return controller.SelectConfig(ctx, name)
		})

	case key.Matches(msg, m.keys.Clear):
		controller.ClearSelection()
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		if m.view.Status == browse.StatusLoading {
			m.notice = "Still loading"
			return m, nil
		}
		return m, m.confirm()
	}

	return m, nil
}

func (m pickerModel) openFolder(id string) (tea.Model, tea.Cmd) {
	if m.view.FolderID != "" && m.view.FolderID != id {
		m.history = append(m.history, m.view.FolderID)
	}
	m.cursor = 0
	controller := m.session.Controller
	return m, m.run("folder", func(ctx context.Context) error {
		return controller.SelectFolder(ctx, id)
	})
}

// run executes a controller action off the update loop
func (m pickerModel) run(action string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn(ctx)}
	}
}

func (m pickerModel) confirm() tea.Cmd {
	ctx, service, session := m.ctx, m.service, m.session
	return func() tea.Msg {
		msg, err := service.Confirm(ctx, session)
		return confirmedMsg{msg: msg, err: err}
	}
}

func (m *pickerModel) refresh() {
	m.view = m.session.Controller.Snapshot()
	if m.cursor >= len(m.view.Entries) {
		m.cursor = len(m.view.Entries) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m pickerModel) current() (browse.Entry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.view.Entries) {
		return browse.Entry{}, false
	}
	return m.view.Entries[m.cursor], true
}

func (m pickerModel) disabled() map[catalog.Key]bool {
	keys := make([]catalog.Key, 0, len(m.view.Entries))
	for _, e := range m.view.Entries {
		keys = append(keys, e.Key)
	}
	return m.session.Block.DisabledKeys(keys)
}

// Result returns the handed off message, nil if the picker was abandoned
func (m pickerModel) Result() *handoff.Message {
	return m.result
}

// View implements tea.Model
func (m pickerModel) View() string {
	sections := []string{m.renderHeader()}

	if m.view.Status == browse.StatusError {
		sections = append(sections, errorStyle.Render(m.view.Error), "", noticeStyle.Render("Press r to reload, q to quit"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.searching {
		sections = append(sections, m.input.View())
	}
	sections = append(sections, m.renderEntries())

	if m.notice != "" {
		sections = append(sections, noticeStyle.Render(m.notice))
	}
	sections = append(sections, m.renderSelection(), m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m pickerModel) renderHeader() string {
	title := titleStyle.Render(fmt.Sprintf("%s · %s", m.session.Block.Name, m.view.ConfigName))
	if m.view.Status == browse.StatusLoading {
		title = lipgloss.JoinHorizontal(lipgloss.Left, title, " ", m.spinner.View())
	}

	var crumb string
	switch {
	case m.view.Searching():
		crumb = fmt.Sprintf("Search: %q", m.view.SearchTerm)
	case len(m.view.Path) > 0:
		names := make([]string, 0, len(m.view.Path))
		for _, c := range m.view.Path {
			names = append(names, c.Name)
		}
		crumb = strings.Join(names, " / ")
	default:
		crumb = m.view.FolderID
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, crumbStyle.Render(crumb))
}

func (m pickerModel) renderEntries() string {
	if len(m.view.Entries) == 0 {
		if m.view.Status == browse.StatusLoading {
			return crumbStyle.Render("  Loading...")
		}
		return crumbStyle.Render("  Nothing here")
	}

	disabled := m.disabled()
	start, end := m.window()
	rows := make([]string, 0, end-start+1)
	for i := start; i < end; i++ {
		row := renderEntry(m.view.Entries[i], disabled[m.view.Entries[i].Key])
		if i == m.cursor {
			row = cursorStyle.Render(row)
		}
		rows = append(rows, row)
	}

	if m.view.PageInfo.HasMore() {
		rows = append(rows, crumbStyle.Render(fmt.Sprintf("  page %d of %d, m for more",
			m.view.PageInfo.CurrentPage, m.view.PageInfo.TotalPages)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// window returns the visible slice of entries around the cursor
func (m pickerModel) window() (int, int) {
	total := len(m.view.Entries)
	rows := m.height - 8
	if rows <= 0 || total <= rows {
		return 0, total
	}
	start := m.cursor - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > total {
		start = total - rows
	}
	return start, start + rows
}

func renderEntry(e browse.Entry, disabled bool) string {
	if e.Folder {
		return folderStyle.Render(fmt.Sprintf("  ▸ %s (%d)", e.Name, e.ChildCount))
	}
	mark := "[ ]"
	if e.Selected {
		mark = "[x]"
	}
	row := fmt.Sprintf("  %s %-16s %s", mark, e.Key.Value(), e.Name)
	switch {
	case disabled:
		return disabledStyle.Render(row)
	case e.Selected:
		return selectedStyle.Render(row)
	}
	return row
}

func (m pickerModel) renderSelection() string {
	if len(m.view.SelectedItems) == 0 {
		return crumbStyle.Render("Nothing selected")
	}
	skus := make([]string, 0, len(m.view.SelectedItems))
	for _, item := range m.view.SelectedItems {
		skus = append(skus, item.SKU)
	}
	label := "Selected"
	if m.view.Mode == selection.ModeMultiple {
		label = fmt.Sprintf("Selected (%d)", len(skus))
	}
	return selectedStyle.Render(fmt.Sprintf("%s: %s", label, strings.Join(skus, ", ")))
}

// cycleConfig returns the config name step positions away from current
func cycleConfig(names []string, current string, step int) (string, bool) {
	if len(names) < 2 {
		return "", false
	}
	idx := 0
	for i, n := range names {
		if n == current {
			idx = i
			break
		}
	}
	idx = (idx + step + len(names)) % len(names)
	return names[idx], true
}

func describeConfirmError(err error) string {
	switch {
	case errors.Is(err, services.ErrNothingSelected):
		return "Select something first"
	case errors.Is(err, handoff.ErrRejected):
		return fmt.Sprintf("Fragment rejected the selection: %v", err)
	default:
		return err.Error()
	}
}
