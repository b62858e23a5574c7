package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/leonardomso/webcheck/internal/checker"
	"github.com/leonardomso/webcheck/internal/helpers"
	"github.com/leonardomso/webcheck/internal/session"
)

// =============================================================================
// VIEWS AND FIELDS
// =============================================================================

type view int

const (
	viewForm    view = iota // Editing targets and request options
	viewResults             // Browsing results
)

type field int

const (
	fieldTargets field = iota
	fieldUserAgent
	fieldCookie
	fieldTimeout
	fieldHeaders
)

const fieldCount = 5

func (f field) label() string {
	switch f {
	case fieldTargets:
		return "Targets"
	case fieldUserAgent:
		return "User-Agent"
	case fieldCookie:
		return "Cookie"
	case fieldTimeout:
		return "Timeout (s)"
	case fieldHeaders:
		return "Headers"
	default:
		return ""
	}
}

// =============================================================================
// FILTER TYPES
// =============================================================================

type filterType int

const (
	filterAll       filterType = iota // Every result
	filterFailures                    // 4xx, 5xx and errors
	filterRedirects                   // 3xx only
)

const filterCount = 3

func (f filterType) String() string {
	switch f {
	case filterAll:
		return "All"
	case filterFailures:
		return "Failures"
	case filterRedirects:
		return "Redirects"
	default:
		return "Unknown"
	}
}

func (f filterType) Next() filterType {
	return (f + 1) % filterCount
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the main application model.
type Model struct {
	ctrl Controller

	view     view
	focus    field
	filter   filterType
	quitting bool
	showHelp bool

	// Last snapshot received from the controller.
	state session.State
	// Alert text shown in the status line until the next start.
	alert string

	// Form inputs
	targets   textarea.Model
	userAgent textinput.Model
	cookie    textinput.Model
	timeout   textinput.Model
	headers   textarea.Model

	// Components
	spinner spinner.Model
	list    list.Model
	help    help.Model
	keys    KeyMap

	width  int
	height int
}

// New creates a Model whose form is filled from c's current state.
func New(c Controller) Model {
	st := c.Snapshot()

	targets := textarea.New()
	targets.Placeholder = "https://example.com\nhttps://example.org"
	targets.ShowLineNumbers = false
	targets.SetHeight(6)
	targets.SetValue(st.Targets)

	headers := textarea.New()
	headers.Placeholder = "Accept-Language: en\nX-Token: secret"
	headers.ShowLineNumbers = false
	headers.SetHeight(3)
	headers.SetValue(st.Headers)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle()

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = SelectedStyle
	delegate.Styles.SelectedDesc = StatusStyle

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Results"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false) // We use our own help
	l.Styles.Title = TitleStyle

	m := Model{
		ctrl:      c,
		state:     st,
		targets:   targets,
		userAgent: newInput(st.UserAgent, "Mozilla/5.0 ..."),
		cookie:    newInput(st.Cookie, "session=abc"),
		timeout:   newInput(st.Timeout, "30"),
		headers:   headers,
		spinner:   s,
		list:      l,
		help:      help.New(),
		keys:      DefaultKeyMap(),
	}
	m.targets.Focus()
	m.syncList()
	return m
}

func newInput(value, placeholder string) textinput.Model {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.SetValue(value)
	return in
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StateChangedMsg:
		return m.handleStateChanged(msg)

	case AlertMsg:
		m.alert = msg.Message
		return m, nil

	case checkStartedMsg:
		if errors.Is(msg.Err, session.ErrNoTargets) {
			m.view = viewForm
			return m, m.setFocus(fieldTargets)
		}
		return m, nil

	case checkStoppedMsg:
		return m, nil
	}

	return m.updateActive(msg)
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Start):
		if m.state.IsRunning {
			return m, nil
		}
		m.alert = ""
		return m, startCheckCmd(m.ctrl, m.formValues())

	case key.Matches(msg, m.keys.Stop):
		if !m.state.IsRunning {
			return m, nil
		}
		return m, stopCheckCmd(m.ctrl)

	case key.Matches(msg, m.keys.Switch):
		if m.view == viewForm {
			m.view = viewResults
			m.blurAll()
			return m, nil
		}
		m.view = viewForm
		return m, m.setFocus(m.focus)
	}

	if m.view == viewForm {
		switch {
		case key.Matches(msg, m.keys.Next):
			return m, m.setFocus((m.focus + 1) % fieldCount)
		case key.Matches(msg, m.keys.Prev):
			return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		}
	} else if key.Matches(msg, m.keys.Filter) {
		m.filter = m.filter.Next()
		m.syncList()
		return m, nil
	}

	return m.updateActive(msg)
}

// updateActive passes msg to the focused input or to the list.
func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.view == viewResults {
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch m.focus {
	case fieldTargets:
		m.targets, cmd = m.targets.Update(msg)
	case fieldUserAgent:
		m.userAgent, cmd = m.userAgent.Update(msg)
	case fieldCookie:
		m.cookie, cmd = m.cookie.Update(msg)
	case fieldTimeout:
		m.timeout, cmd = m.timeout.Update(msg)
	case fieldHeaders:
		m.headers, cmd = m.headers.Update(msg)
	}
	return m, cmd
}

func (m Model) handleStateChanged(msg StateChangedMsg) (tea.Model, tea.Cmd) {
	if msg.State.Version <= m.state.Version {
		return m, nil
	}
	wasRunning := m.state.IsRunning
	m.state = msg.State

	if m.state.IsRunning && !wasRunning {
		m.view = viewResults
		m.blurAll()
	}
	m.syncList()
	return m, nil
}

func (m *Model) setFocus(f field) tea.Cmd {
	m.blurAll()
	m.focus = f
	switch f {
	case fieldTargets:
		return m.targets.Focus()
	case fieldUserAgent:
		return m.userAgent.Focus()
	case fieldCookie:
		return m.cookie.Focus()
	case fieldTimeout:
		return m.timeout.Focus()
	case fieldHeaders:
		return m.headers.Focus()
	}
	return nil
}

func (m *Model) blurAll() {
	m.targets.Blur()
	m.userAgent.Blur()
	m.cookie.Blur()
	m.timeout.Blur()
	m.headers.Blur()
}

func (m *Model) resize() {
	w := max(m.width-14, 20)
	m.targets.SetWidth(w)
	m.headers.SetWidth(w)
	m.userAgent.Width = w
	m.cookie.Width = w
	m.timeout.Width = 8
	// Reserve space for header, summary and detail panel
	m.list.SetSize(m.width, max(m.height-18, 5))
}

func (m Model) formValues() formValues {
	return formValues{
		targets:   m.targets.Value(),
		userAgent: m.userAgent.Value(),
		cookie:    m.cookie.Value(),
		timeout:   m.timeout.Value(),
		headers:   m.headers.Value(),
	}
}

// syncList rebuilds the list items from the current state and filter.
func (m *Model) syncList() {
	filtered := m.filteredResults()
	items := make([]list.Item, len(filtered))
	for i, r := range filtered {
		items[i] = ResultItem{Result: r}
	}
	m.list.SetItems(items)
}

func (m Model) filteredResults() []checker.Result {
	switch m.filter {
	case filterFailures:
		return checker.FilterFailures(m.state.Results)
	case filterRedirects:
		return checker.FilterByStatus(m.state.Results, checker.StatusRedirect)
	default:
		return m.state.Results
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("webcheck"))
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n\n")

	if m.view == viewForm {
		b.WriteString(m.renderForm())
	} else {
		b.WriteString(m.renderResults())
	}

	if m.showHelp {
		b.WriteString("\n\n" + m.help.View(m.keys))
	} else {
		b.WriteString("\n\n" + m.renderShortHelp())
	}
	return b.String()
}

func (m Model) renderStatusLine() string {
	if m.alert != "" {
		return AlertStyle.Render(m.alert)
	}

	sum := m.state.Summary()
	switch m.state.Phase() {
	case session.PhaseRunning:
		return m.spinner.View() + fmt.Sprintf(" Checking... %s received", helpers.Plural(sum.Total, "result"))
	case session.PhaseCompleted:
		return SuccessStyle.Render("Done: ") + m.renderCounts(sum)
	case session.PhaseFailed:
		return ErrorStyle.Render("Last check failed")
	default:
		return MutedStyle.Render("Enter targets, one per line, then press ctrl+r")
	}
}

func (Model) renderCounts(sum checker.Summary) string {
	return fmt.Sprintf("%s | %s | %s",
		statusStyle(checker.StatusAlive).Render(fmt.Sprintf("✓ %d alive", sum.Alive)),
		statusStyle(checker.StatusRedirect).Render(fmt.Sprintf("→ %d redirects", sum.Redirects)),
		statusStyle(checker.StatusError).Render(fmt.Sprintf("✗ %d failed", sum.Failures())))
}

func (m Model) renderForm() string {
	var b strings.Builder
	rows := []struct {
		f    field
		view string
	}{
		{fieldTargets, m.targets.View()},
		{fieldUserAgent, m.userAgent.View()},
		{fieldCookie, m.cookie.View()},
		{fieldTimeout, m.timeout.View()},
		{fieldHeaders, m.headers.View()},
	}
	for _, row := range rows {
		style := LabelStyle
		if row.f == m.focus {
			style = FocusedLabelStyle
		}
		b.WriteString(style.Render(row.f.label()))
		b.WriteString(" ")
		b.WriteString(row.view)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderResults() string {
	if len(m.state.Results) == 0 {
		if m.state.IsRunning {
			return MutedStyle.Render("Waiting for the first result...")
		}
		return MutedStyle.Render("No results yet.")
	}

	var b strings.Builder
	if n := len(m.state.Ignored); n > 0 {
		b.WriteString(MutedStyle.Render(helpers.Plural(n, "target") + " ignored by rules"))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Filter: %s (%d/%d)\n\n",
		SelectedStyle.Render(m.filter.String()),
		len(m.filteredResults()),
		len(m.state.Results))

	b.WriteString(m.list.View())

	if selected := m.list.SelectedItem(); selected != nil {
		if item, ok := selected.(ResultItem); ok {
			b.WriteString("\n" + item.DetailView())
		}
	}
	return b.String()
}

func (m Model) renderShortHelp() string {
	if m.view == viewForm {
		return HelpStyle.Render("tab next field • ctrl+r start • ctrl+x stop • ctrl+t results • f1 help • ctrl+c quit")
	}
	return HelpStyle.Render("↑/↓ navigate • ctrl+f filter • ctrl+t form • ctrl+x stop • ctrl+c quit")
}
