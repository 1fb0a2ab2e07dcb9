package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/jmcdonald/savebak/internal/metadata"
	"github.com/jmcdonald/savebak/internal/pagination"
)

// View represents the current view state
type View int

const (
	WelcomeView View = iota
	SaveView         // Entering a description for a new save
	LoadView         // Paginated list of saves
	ConfirmView      // Confirming a restore
)

// frameRows is the height taken by the app padding, title and blank line
// around every view. The rest is the display handed to pagination.
const frameRows = 4

const defaultHeight = 24

// Service provides the archive operations the menu needs.
type Service interface {
	Saves() (map[int]metadata.Slot, error)
	Save(description string) (metadata.Slot, error)
	Restore(saveNumber int) error
}

var welcomeItems = []string{
	"Save the current game (save in-game first)",
	"Load a previous game",
	"Exit",
}

var confirmItems = []string{"Yes", "No"}

// Model is the main TUI model
type Model struct {
	svc      Service
	view     View
	width    int
	height   int
	quitting bool

	// Welcome and confirm menus
	menuCursor int

	// Save view
	input textinput.Model

	// Load view; page is per-session navigation state
	saves      map[int]metadata.Slot
	page       int
	window     []metadata.Slot
	loadCursor int
	selected   int // Save number awaiting confirmation

	// Status message
	statusMsg string
	statusErr bool
}

// Key bindings
type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Back  key.Binding
	Next  key.Binding
	Prev  key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Next: key.NewBinding(
		key.WithKeys("n", "right", "pgdown"),
		key.WithHelp("n", "next page"),
	),
	Prev: key.NewBinding(
		key.WithKeys("p", "left", "pgup"),
		key.WithHelp("p", "previous page"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// NewModel creates a new TUI model backed by svc
func NewModel(svc Service) *Model {
	input := textinput.New()
	input.Placeholder = "what just happened?"
	input.Prompt = "> "
	input.CharLimit = 200

	return &Model{
		svc:    svc,
		view:   WelcomeView,
		height: defaultHeight,
		input:  input,
		page:   1,
	}
}

// displayHeight is the number of rows available to the save list and its
// header, help and status lines.
func (m *Model) displayHeight() int {
	return max(m.height-frameRows, 0)
}

func (m *Model) maxPage() int {
	return pagination.MaxPage(len(m.saves), m.displayHeight())
}

// loadSaves reloads the collection and recomputes the current page
func (m *Model) loadSaves() error {
	saves, err := m.svc.Saves()
	if err != nil {
		return err
	}
	m.saves = saves
	m.setPage(m.page)
	return nil
}

// setPage clamps page into range and refreshes the visible window
func (m *Model) setPage(page int) {
	m.page = pagination.Clamp(page, m.maxPage())
	m.window = pagination.PageWindow(m.saves, m.page, m.displayHeight())
	if m.loadCursor >= len(m.window) {
		m.loadCursor = max(len(m.window)-1, 0)
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == LoadView {
			m.setPage(m.page)
		}
		return m, nil

	case savedMsg:
		m.view = WelcomeView
		m.menuCursor = 0
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Save failed: %v", msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("✓ Game saved as #%d", msg.slot.SaveNumber), false)
		}
		return m, nil

	case restoredMsg:
		m.view = WelcomeView
		m.menuCursor = 0
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Restore failed: %v", msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("✓ Save #%d restored", msg.saveNumber), false)
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == SaveView {
			return m.updateSaveView(msg)
		}

		// Clear status on any key
		m.setStatus("", false)

		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)

		case key.Matches(msg, keys.Down):
			m.moveCursor(1)

		case key.Matches(msg, keys.Back):
			switch m.view {
			case LoadView:
				m.view = WelcomeView
				m.menuCursor = 0
			case ConfirmView:
				m.view = LoadView
			}

		case key.Matches(msg, keys.Next):
			if m.view == LoadView {
				m.setPage(m.page + 1)
			}

		case key.Matches(msg, keys.Prev):
			if m.view == LoadView {
				m.setPage(m.page - 1)
			}

		case key.Matches(msg, keys.Enter):
			return m.choose()

		case msg.Type == tea.KeyRunes && len(msg.Runes) == 1:
			// Menu entries can be picked by number, as the prompt suggests
			idx := int(msg.Runes[0] - '1')
			if idx >= 0 && idx < len(m.menuItems()) {
				m.menuCursor = idx
				return m.choose()
			}
		}
	}

	return m, nil
}

func (m *Model) updateSaveView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		m.view = WelcomeView
		m.setStatus("", false)
		return m, nil
	case tea.KeyEnter:
		description := strings.TrimSpace(m.input.Value())
		if description == "" {
			m.setStatus("Enter a save description", true)
			return m, nil
		}
		m.input.Blur()
		m.setStatus("Saving...", false)
		return m, m.runSave(description)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// menuItems returns the numbered entries of the current menu view
func (m *Model) menuItems() []string {
	switch m.view {
	case WelcomeView:
		return welcomeItems
	case ConfirmView:
		return confirmItems
	}
	return nil
}

func (m *Model) choose() (tea.Model, tea.Cmd) {
	switch m.view {
	case WelcomeView:
		switch m.menuCursor {
		case 0:
			m.view = SaveView
			m.input.Reset()
			return m, m.input.Focus()
		case 1:
			if err := m.loadSaves(); err != nil {
				m.setStatus(fmt.Sprintf("Error: %v", err), true)
				return m, nil
			}
			m.view = LoadView
			m.setPage(1)
			m.loadCursor = 0
		case 2:
			m.quitting = true
			return m, tea.Quit
		}

	case LoadView:
		if len(m.window) > 0 {
			m.selected = m.window[m.loadCursor].SaveNumber
			m.view = ConfirmView
			m.menuCursor = 1 // Default to No
		}

	case ConfirmView:
		if m.menuCursor == 0 {
			m.setStatus("Restoring...", false)
			return m, m.runRestore(m.selected)
		}
		m.view = LoadView
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.view {
	case WelcomeView, ConfirmView:
		m.menuCursor = clamp(m.menuCursor+delta, 0, len(m.menuItems())-1)
	case LoadView:
		m.loadCursor = clamp(m.loadCursor+delta, 0, max(len(m.window)-1, 0))
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusErr = isErr
}

type savedMsg struct {
	slot metadata.Slot
	err  error
}

type restoredMsg struct {
	saveNumber int
	err        error
}

func (m *Model) runSave(description string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		slot, err := svc.Save(description)
		return savedMsg{slot: slot, err: err}
	}
}

func (m *Model) runRestore(saveNumber int) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return restoredMsg{saveNumber: saveNumber, err: svc.Restore(saveNumber)}
	}
}

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.view {
	case WelcomeView:
		content = m.renderMenu(" savebak ", []string{
			"Welcome to the savebak save manager.",
			"Please select a task from the list below.",
		}, welcomeItems)
	case SaveView:
		content = m.renderSaveView()
	case LoadView:
		content = m.renderLoadView()
	case ConfirmView:
		content = m.renderMenu(" Restore ", []string{
			fmt.Sprintf("Do you want to restore save %d?", m.selected),
			"This overwrites the game's current save files.",
		}, confirmItems)
	}

	return appStyle.Render(content)
}

func (m *Model) renderMenu(title string, header, items []string) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	for _, line := range header {
		b.WriteString(dimStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, item := range items {
		cursor := "  "
		style := normalStyle
		if i == m.menuCursor {
			cursor = "▸ "
			style = selectedStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%d. %s", cursor, i+1, item)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	m.renderStatus(&b)
	b.WriteString(helpStyle.Render("[↑/↓] navigate  [enter] select  [q] quit"))
	return b.String()
}

func (m *Model) renderSaveView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" Save game "))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Ensure that you have saved in the game before continuing."))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Enter a save description:"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	m.renderStatus(&b)
	b.WriteString(helpStyle.Render("[enter] save  [esc] back"))
	return b.String()
}

func (m *Model) renderLoadView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(" Load game "))
	b.WriteString("\n\n")

	// The four rows pagination reserves: two header lines, status, help
	total := len(m.saves)
	plural := "s"
	if total == 1 {
		plural = ""
	}
	b.WriteString(fmt.Sprintf("Page %d of %d (%d save%s).\n", m.page, max(m.maxPage(), 1), total, plural))
	b.WriteString(dimStyle.Render("Choose a game to restore. Use n (next) or p (previous)"))
	b.WriteString("\n")

	if total == 0 {
		b.WriteString(dimStyle.Render("  No saves yet"))
		b.WriteString("\n")
	}

	for i, slot := range m.window {
		cursor := "  "
		style := normalStyle
		if i == m.loadCursor {
			cursor = "▸ "
			style = selectedStyle
		}
		line := fmt.Sprintf("%s%d. [%s] %s", cursor, slot.SaveNumber, slot.Date, slot.Description)
		if t, err := slot.Time(); err == nil {
			line += dimStyle.Render(" (" + humanize.Time(t) + ")")
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	m.renderStatus(&b)
	b.WriteString(helpStyle.Render("[↑/↓] navigate  [n/p] page  [enter] restore  [esc] back  [q] quit"))
	return b.String()
}

func (m *Model) renderStatus(b *strings.Builder) {
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorBadge.Render(m.statusMsg))
		} else {
			b.WriteString(successBadge.Render(m.statusMsg))
		}
	}
	b.WriteString("\n")
}

// Run starts the TUI
func Run(svc Service) error {
	p := tea.NewProgram(NewModel(svc), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
