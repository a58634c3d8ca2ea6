// Package tui is an interactive terminal view of the setup wizard. It is
// passive: every page change, field update and button state comes from the
// controller's notifications, and every key press that means something is
// turned into a controller action.
package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/presenter"
	"github.com/mark3labs/syncwizard/internal/preset"
	"github.com/mark3labs/syncwizard/internal/setup"
	"github.com/mark3labs/syncwizard/internal/tui/theme"
)

// Actions is the controller surface the view drives. *setup.Controller
// implements it.
type Actions interface {
	CheckSetupPage(name, email string)
	SetupPageCompleted(name, email string)
	CheckAddPage(address, remotePath string)
	SelectedPresetChanged(index int)
	HistoryItemChanged(fetchHistory bool)
	AddPageCompleted(address, remotePath string)
	InvitePageCompleted()
	StoragePageCompleted(t setup.StorageType)
	CheckCryptoSetupPage(password string)
	CheckCryptoPasswordPage(password string)
	CryptoSetupPageCompleted(password string)
	CryptoPasswordPageCompleted(password string)
	ErrorPageCompleted()
	SyncingCancelled()
	PageCancelled()
	CryptoPageCancelled()
	FinishPageCompleted()
	ShowFilesClicked()
	Snapshot() (setup.Session, bool)
}

// Options configures a Model.
type Options struct {
	Presets  []preset.Preset
	Identity setup.Identity
	// Start opens the wizard, e.g. Controller.Start. Called from Init.
	Start func()
	// Exec runs an action off the Update goroutine, in call order.
	Exec func(func())
}

// sessionMsg carries a controller snapshot taken after entering the add page.
type sessionMsg struct {
	session setup.Session
}

// Add page focus targets.
const (
	focusPresets = iota
	focusAddress
	focusPath
)

// Model is the bubbletea model of the wizard.
type Model struct {
	actions Actions
	exec    func(func())
	start   func()
	presets []preset.Preset

	visible  bool
	page     setup.PageType
	warnings []string
	context  setup.PageContext
	folder   string
	buttons  map[setup.Button]bool

	nameInput     textinput.Model
	emailInput    textinput.Model
	addressInput  textinput.Model
	pathInput     textinput.Model
	passwordInput textinput.Model
	addressState  setup.FieldState
	pathState     setup.FieldState

	focus        int
	presetIndex  int
	fetchHistory bool
	storageIndex int

	progress float64
	speed    string
	spinner  spinner.Model

	opened   string
	finished bool
	quitting bool

	width  int
	height int
}

// New creates the view for actions.
func New(actions Actions, opts Options) *Model {
	exec := opts.Exec
	if exec == nil {
		exec = func(fn func()) { go fn() }
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Current().Primary))

	m := &Model{
		actions:       actions,
		exec:          exec,
		start:         opts.Start,
		presets:       opts.Presets,
		buttons:       make(map[setup.Button]bool),
		nameInput:     newInput("Your name"),
		emailInput:    newInput("you@example.com"),
		addressInput:  newInput(""),
		pathInput:     newInput(""),
		passwordInput: newInput("Password"),
		spinner:       s,
		width:         80,
		height:        24,
	}
	m.nameInput.SetValue(opts.Identity.Name)
	m.emailInput.SetValue(opts.Identity.Email)
	m.passwordInput.EchoMode = textinput.EchoPassword
	m.passwordInput.EchoCharacter = '•'
	return m
}

func newInput(placeholder string) textinput.Model {
	th := theme.Current()
	input := textinput.New()
	input.Placeholder = placeholder
	input.Prompt = "> "
	input.SetStyles(textinput.Styles{
		Focused: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(th.FgBase)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(th.BgOverlay)),
			Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color(th.Tertiary)),
		},
		Blurred: textinput.StyleState{
			Text:        lipgloss.NewStyle().Foreground(lipgloss.Color(th.FgMuted)),
			Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color(th.BgOverlay)),
			Prompt:      lipgloss.NewStyle().Foreground(lipgloss.Color(th.BgOverlay)),
		},
		Cursor: textinput.CursorStyle{
			Color: lipgloss.Color(th.Primary),
			Shape: tea.CursorBar,
		},
	})
	input.SetWidth(50)
	return input
}

// Page returns the page currently shown.
func (m *Model) Page() setup.PageType { return m.page }

// Finished reports whether the wizard closed after reaching the finished page.
func (m *Model) Finished() bool { return m.finished }

// Folder returns the folder of the last project added, if any.
func (m *Model) Folder() string { return m.folder }

// Opened returns the folder the user asked to see, "" if none.
func (m *Model) Opened() string { return m.opened }

// Init starts the wizard.
func (m *Model) Init() tea.Cmd {
	if m.start != nil {
		m.exec(m.start)
	}
	return nil
}

// Update handles controller notifications and key presses.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case setup.WindowVisibilityMsg:
		m.visible = msg.Visible
		if !msg.Visible {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case setup.PageChangedMsg:
		return m, m.enter(msg)

	case setup.ButtonEnabledMsg:
		m.buttons[msg.Button] = msg.Enabled
		return m, nil

	case setup.AddressFieldMsg:
		m.addressInput.SetValue(msg.Text)
		m.addressInput.Placeholder = msg.Example
		m.addressState = msg.State
		return m, m.fixAddFocus()

	case setup.PathFieldMsg:
		m.pathInput.SetValue(msg.Text)
		m.pathInput.Placeholder = msg.Example
		m.pathState = msg.State
		return m, m.fixAddFocus()

	case setup.ProgressMsg:
		m.progress = msg.Percentage
		m.speed = msg.Speed
		return m, nil

	case setup.FolderOpenMsg:
		m.opened = msg.Folder
		return m, nil

	case sessionMsg:
		if msg.session.Page == setup.PageAdd {
			m.presetIndex = msg.session.PresetIndex
			m.fetchHistory = msg.session.FetchHistory
		}
		return m, nil

	case spinner.TickMsg:
		if m.page != setup.PageSyncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	}

	return m, m.updateFocused(msg)
}

// enter resets the view for a new page.
func (m *Model) enter(msg setup.PageChangedMsg) tea.Cmd {
	logger.Debug("View showing page %s", msg.Page)
	m.page = msg.Page
	m.warnings = msg.Warnings
	m.context = msg.Context
	if msg.Context.Folder != "" {
		m.folder = msg.Context.Folder
	}
	m.buttons = make(map[setup.Button]bool)
	m.blurAll()

	switch msg.Page {
	case setup.PageSetup:
		m.focus = 0
		return m.nameInput.Focus()
	case setup.PageAdd:
		m.focus = focusPresets
		actions := m.actions
		return func() tea.Msg {
			s, _ := actions.Snapshot()
			return sessionMsg{session: s}
		}
	case setup.PageSyncing:
		m.progress = 0
		m.speed = ""
		return m.spinner.Tick
	case setup.PageStorageSetup:
		m.storageIndex = 0
	case setup.PageCryptoSetup, setup.PageCryptoPassword:
		m.passwordInput.SetValue("")
		return m.passwordInput.Focus()
	case setup.PageFinished:
		m.finished = true
	case setup.PageHidden:
		m.quitting = true
	}
	return nil
}

func (m *Model) blurAll() {
	m.nameInput.Blur()
	m.emailInput.Blur()
	m.addressInput.Blur()
	m.pathInput.Blur()
	m.passwordInput.Blur()
}

// enabled reports whether a forward button may be used. Buttons the
// controller never mentioned on this page are enabled.
func (m *Model) enabled(b setup.Button) bool {
	enabled, ok := m.buttons[b]
	return !ok || enabled
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m.cancel()
	}

	switch m.page {
	case setup.PageSetup:
		return m.setupKey(msg)
	case setup.PageAdd:
		return m.addKey(msg)
	case setup.PageInvite:
		if msg.String() == "enter" {
			m.exec(m.actions.InvitePageCompleted)
		}
	case setup.PageError:
		if msg.String() == "enter" {
			m.exec(m.actions.ErrorPageCompleted)
		}
	case setup.PageStorageSetup:
		m.storageKey(msg)
	case setup.PageCryptoSetup:
		return m.cryptoKey(msg, m.actions.CheckCryptoSetupPage, m.actions.CryptoSetupPageCompleted)
	case setup.PageCryptoPassword:
		return m.cryptoKey(msg, m.actions.CheckCryptoPasswordPage, m.actions.CryptoPasswordPageCompleted)
	case setup.PageFinished:
		switch msg.String() {
		case "enter":
			m.exec(m.actions.FinishPageCompleted)
		case "o":
			m.exec(m.actions.ShowFilesClicked)
		}
	}
	return nil
}

func (m *Model) cancel() tea.Cmd {
	switch {
	case !m.visible && m.page == setup.PageHidden:
		m.quitting = true
		return tea.Quit
	case m.page == setup.PageSyncing:
		m.exec(m.actions.SyncingCancelled)
	case m.page == setup.PageCryptoSetup || m.page == setup.PageCryptoPassword:
		m.exec(m.actions.CryptoPageCancelled)
	default:
		m.exec(m.actions.PageCancelled)
	}
	return nil
}

func (m *Model) setupKey(msg tea.KeyPressMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab", "up", "down":
		if m.focus == 0 {
			m.focus = 1
			m.nameInput.Blur()
			return m.emailInput.Focus()
		}
		m.focus = 0
		m.emailInput.Blur()
		return m.nameInput.Focus()
	case "enter":
		if m.enabled(setup.ButtonContinue) {
			name, email := m.nameInput.Value(), m.emailInput.Value()
			m.exec(func() { m.actions.SetupPageCompleted(name, email) })
		}
		return nil
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.nameInput, cmd = m.nameInput.Update(msg)
	} else {
		m.emailInput, cmd = m.emailInput.Update(msg)
	}
	name, email := m.nameInput.Value(), m.emailInput.Value()
	m.exec(func() { m.actions.CheckSetupPage(name, email) })
	return cmd
}

// addTargets lists the add page's focusable parts in tab order.
func (m *Model) addTargets() []int {
	targets := []int{focusPresets}
	if m.addressState == setup.FieldEnabled {
		targets = append(targets, focusAddress)
	}
	if m.pathState == setup.FieldEnabled {
		targets = append(targets, focusPath)
	}
	return targets
}

// fixAddFocus moves focus off an entry that has just become fixed.
func (m *Model) fixAddFocus() tea.Cmd {
	if m.page != setup.PageAdd {
		return nil
	}
	for _, t := range m.addTargets() {
		if t == m.focus {
			return nil
		}
	}
	return m.focusAdd(focusPresets)
}

func (m *Model) focusAdd(target int) tea.Cmd {
	m.focus = target
	m.addressInput.Blur()
	m.pathInput.Blur()
	switch target {
	case focusAddress:
		return m.addressInput.Focus()
	case focusPath:
		return m.pathInput.Focus()
	}
	return nil
}

func (m *Model) addKey(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()
	switch key {
	case "tab", "shift+tab":
		targets := m.addTargets()
		pos := 0
		for i, t := range targets {
			if t == m.focus {
				pos = i
			}
		}
		step := 1
		if key == "shift+tab" {
			step = len(targets) - 1
		}
		return m.focusAdd(targets[(pos+step)%len(targets)])
	case "ctrl+t":
		m.fetchHistory = !m.fetchHistory
		fetch := m.fetchHistory
		m.exec(func() { m.actions.HistoryItemChanged(fetch) })
		return nil
	case "enter":
		if m.enabled(setup.ButtonAdd) {
			address, remotePath := m.addressInput.Value(), m.pathInput.Value()
			m.exec(func() { m.actions.AddPageCompleted(address, remotePath) })
		}
		return nil
	}

	if m.focus == focusPresets {
		step := 0
		switch key {
		case "up", "k":
			step = -1
		case "down", "j":
			step = 1
		default:
			return nil
		}
		index := m.nextPreset(step)
		if index == m.presetIndex {
			return nil
		}
		m.presetIndex = index
		m.exec(func() { m.actions.SelectedPresetChanged(index) })
		return nil
	}

	var cmd tea.Cmd
	if m.focus == focusAddress {
		m.addressInput, cmd = m.addressInput.Update(msg)
	} else {
		m.pathInput, cmd = m.pathInput.Update(msg)
	}
	address, remotePath := m.addressInput.Value(), m.pathInput.Value()
	m.exec(func() { m.actions.CheckAddPage(address, remotePath) })
	return cmd
}

// nextPreset moves through the catalog followed by the manual entry,
// wrapping at both ends.
func (m *Model) nextPreset(step int) int {
	choices := make([]int, 0, len(m.presets)+1)
	for i := range m.presets {
		choices = append(choices, i)
	}
	choices = append(choices, setup.ManualPreset)

	pos := 0
	for i, c := range choices {
		if c == m.presetIndex {
			pos = i
		}
	}
	return choices[(pos+step+len(choices))%len(choices)]
}

func (m *Model) storageKey(msg tea.KeyPressMsg) {
	types := m.context.StorageTypes
	if len(types) == 0 {
		return
	}
	switch msg.String() {
	case "up", "k":
		m.storageIndex = (m.storageIndex - 1 + len(types)) % len(types)
	case "down", "j":
		m.storageIndex = (m.storageIndex + 1) % len(types)
	case "enter":
		t := types[m.storageIndex].Type
		m.exec(func() { m.actions.StoragePageCompleted(t) })
	}
}

func (m *Model) cryptoKey(msg tea.KeyPressMsg, check, complete func(string)) tea.Cmd {
	if msg.String() == "enter" {
		if m.enabled(setup.ButtonContinue) {
			password := m.passwordInput.Value()
			m.exec(func() { complete(password) })
		}
		return nil
	}

	var cmd tea.Cmd
	m.passwordInput, cmd = m.passwordInput.Update(msg)
	password := m.passwordInput.Value()
	m.exec(func() { check(password) })
	return cmd
}

// updateFocused forwards non-key messages (cursor blinks, pastes) to the
// focused entry.
func (m *Model) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case m.page == setup.PageSetup && m.focus == 0:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case m.page == setup.PageSetup:
		m.emailInput, cmd = m.emailInput.Update(msg)
	case m.page == setup.PageAdd && m.focus == focusAddress:
		m.addressInput, cmd = m.addressInput.Update(msg)
	case m.page == setup.PageAdd && m.focus == focusPath:
		m.pathInput, cmd = m.pathInput.Update(msg)
	case m.page == setup.PageCryptoSetup || m.page == setup.PageCryptoPassword:
		m.passwordInput, cmd = m.passwordInput.Update(msg)
	}
	return cmd
}

// View renders the wizard.
func (m *Model) View() tea.View {
	var view tea.View
	if m.quitting {
		view.Content = lipgloss.NewLayer("")
		return view
	}
	view.AltScreen = true

	canvas := uv.NewScreenBuffer(m.width, m.height)
	uv.NewStyledString(m.render()).Draw(canvas, uv.Rectangle{
		Min: uv.Position{X: 0, Y: 0},
		Max: uv.Position{X: m.width, Y: m.height},
	})
	view.Content = lipgloss.NewLayer(canvas.Render())
	return view
}

func (m *Model) modalWidth() int {
	w := m.width - 10
	if w < 60 {
		w = 60
	}
	if w > 100 {
		w = 100
	}
	return w
}

// render returns the wizard content centered on screen.
func (m *Model) render() string {
	s := theme.Current().S()
	if m.page == setup.PageHidden {
		return ""
	}

	var sections []string
	sections = append(sections, s.ModalTitle.Render(presenter.Header(m.page, m.folder)))
	if d := presenter.Description(m.page); d != "" {
		sections = append(sections, s.Label.Render(d))
	}
	sections = append(sections, "")
	if body := m.renderBody(); body != "" {
		sections = append(sections, body, "")
	}
	if w := m.renderWarnings(); w != "" {
		sections = append(sections, w, "")
	}

	width := m.modalWidth()
	sections = append(sections, renderButtons(m.pageButtons(), width-6), "", m.renderHints())

	modal := s.ModalContainer.Width(width).Render(strings.Join(sections, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

func (m *Model) renderBody() string {
	th := theme.Current()
	s := th.S()
	var b strings.Builder

	switch m.page {
	case setup.PageSetup:
		b.WriteString(s.Label.Render("Full name") + "\n" + m.nameInput.View() + "\n\n")
		b.WriteString(s.Label.Render("Email") + "\n" + m.emailInput.View())

	case setup.PageAdd:
		for i, p := range m.presets {
			b.WriteString(m.renderChoice(i == m.presetIndex, p.Name, p.Description) + "\n")
		}
		b.WriteString(m.renderChoice(m.presetIndex == setup.ManualPreset, "On another host", "Enter the address yourself") + "\n\n")
		b.WriteString(m.renderEntry("Address", m.addressInput, m.addressState) + "\n\n")
		b.WriteString(m.renderEntry("Remote path", m.pathInput, m.pathState) + "\n\n")
		check := "[ ]"
		if m.fetchHistory {
			check = "[x]"
		}
		b.WriteString(s.Text.Render(check + " Fetch prior revisions"))

	case setup.PageInvite:
		if inv := m.context.Invite; inv != nil {
			b.WriteString(s.Label.Render("Address:     ") + s.Text.Render(inv.Address) + "\n")
			b.WriteString(s.Label.Render("Remote path: ") + s.Text.Render(inv.RemotePath))
		}

	case setup.PageSyncing:
		if m.context.URL != "" {
			b.WriteString(s.Muted.Render(m.context.URL) + "\n\n")
		}
		line := fmt.Sprintf("%s %s %3.0f%%", m.spinner.View(), th.ProgressBar(m.progress, 40), m.progress)
		if m.speed != "" {
			line += "  " + s.Muted.Render(m.speed)
		}
		b.WriteString(line)

	case setup.PageStorageSetup:
		for i, t := range m.context.StorageTypes {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(m.renderChoice(i == m.storageIndex, t.Name, t.Description))
		}

	case setup.PageCryptoSetup, setup.PageCryptoPassword:
		b.WriteString(s.Label.Render("Password") + "\n" + m.passwordInput.View())

	case setup.PageFinished:
		if m.folder != "" {
			b.WriteString(s.Success.Render("✓ " + m.folder))
		}
	}
	return b.String()
}

func (m *Model) renderChoice(selected bool, name, description string) string {
	s := theme.Current().S()
	if selected {
		return s.ListItemSelected.Render("▸ "+name) + "  " + s.Muted.Render(description)
	}
	return s.ListItem.Render("  "+name) + "  " + s.Muted.Render(description)
}

func (m *Model) renderEntry(label string, input textinput.Model, state setup.FieldState) string {
	s := theme.Current().S()
	if state == setup.FieldDisabled {
		return s.Label.Render(label) + "\n" + s.Muted.Render("  "+input.Value()+" (fixed)")
	}
	return s.Label.Render(label) + "\n" + input.View()
}

func (m *Model) renderWarnings() string {
	if len(m.warnings) == 0 {
		return ""
	}
	s := theme.Current().S()
	style, prefix := s.Warning, "! "
	if m.page == setup.PageError {
		style, prefix = s.Error, "✗ "
	}
	lines := make([]string, len(m.warnings))
	for i, w := range m.warnings {
		lines[i] = style.Render(prefix + w)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) forward(b setup.Button, label string) Button {
	if m.enabled(b) {
		return Button{Label: label, State: ButtonFocused}
	}
	return Button{Label: label, State: ButtonDisabled}
}

func (m *Model) pageButtons() []Button {
	cancel := Button{Label: "Cancel", State: ButtonNormal}
	switch m.page {
	case setup.PageSetup, setup.PageStorageSetup, setup.PageCryptoSetup, setup.PageCryptoPassword:
		return []Button{cancel, m.forward(setup.ButtonContinue, "Continue")}
	case setup.PageAdd:
		return []Button{cancel, m.forward(setup.ButtonAdd, "Add")}
	case setup.PageInvite:
		return []Button{cancel, {Label: "Add", State: ButtonFocused}}
	case setup.PageSyncing:
		return []Button{cancel}
	case setup.PageError:
		return []Button{cancel, {Label: "Try again", State: ButtonFocused}}
	case setup.PageFinished:
		return []Button{{Label: "Show files", State: ButtonNormal}, m.forward(setup.ButtonFinish, "Finish")}
	}
	return nil
}

func (m *Model) renderHints() string {
	switch m.page {
	case setup.PageSetup:
		return renderHintBar("tab", "next field", "enter", "continue", "esc", "cancel")
	case setup.PageAdd:
		return renderHintBar("↑↓", "host", "tab", "next field", "ctrl+t", "history", "enter", "add", "esc", "cancel")
	case setup.PageStorageSetup:
		return renderHintBar("↑↓", "select", "enter", "continue", "esc", "cancel")
	case setup.PageFinished:
		return renderHintBar("o", "show files", "enter", "finish")
	case setup.PageError:
		return renderHintBar("enter", "try again", "esc", "cancel")
	case setup.PageSyncing:
		return renderHintBar("esc", "cancel")
	default:
		return renderHintBar("enter", "continue", "esc", "cancel")
	}
}
