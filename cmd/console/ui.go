package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/page-engine/pkg/navigation"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const PlaceHolderText = "Type a choice number or label..."

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	api          *apiClient
	result       *navigation.Result
	log          []string // rendered story entries, oldest first
	pageViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	loading      bool

	showQuitModal bool
}

type resultMsg struct {
	result *navigation.Result
	input  string // what the player typed; empty for a plain view
	err    error
}

type worldMsg struct {
	world *WorldInfo
	err   error
}

var (
	pagePanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	envStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

var titler = cases.Title(language.English)

// displayLabel turns a transition label like "go_north" into "Go North".
func displayLabel(label string) string {
	return titler.String(strings.NewReplacer("_", " ", "-", " ").Replace(label))
}

func NewConsoleUI(api *apiClient) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = lockedStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	pageVp := viewport.New(50, 20)
	pageVp.MouseWheelEnabled = true

	return ConsoleUI{
		api:          api,
		textarea:     ta,
		pageViewport: pageVp,
		metaViewport: viewport.New(20, 20),
		loading:      true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.fetchView())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.pageViewport, vpCmd = m.pageViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		pageWidth := int(float64(m.width)*0.7) - 4
		metaWidth := m.width - pageWidth - 6

		m.pageViewport.Width = pageWidth - 2
		m.pageViewport.Height = m.height - 6
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(pageWidth - 4)
		m.ready = true
		m.refresh()

	case resultMsg:
		m.loading = false
		if msg.input != "" {
			m.log = append(m.log, userStyle.Render("> "+msg.input))
		}
		if msg.err != nil {
			m.log = append(m.log, errorStyle.Render("Error: "+msg.err.Error()))
		} else {
			m.result = msg.result
			m.log = append(m.log, m.renderResult(msg.result))
		}
		m.refresh()

	case worldMsg:
		m.loading = false
		if msg.err != nil {
			m.log = append(m.log, errorStyle.Render("Error: "+msg.err.Error()))
		} else {
			m.log = append(m.log, renderWorld(msg.world))
		}
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}
			m.loading = true
			return m, m.sendAction(input, m.resolveInput(input))
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.pageViewport, vpCmd = m.pageViewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd)
}

// resolveInput maps a choice number to its label; anything else is sent as
// typed so the server can suggest a correction.
func (m ConsoleUI) resolveInput(input string) string {
	if m.result == nil {
		return input
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(m.result.Choices) {
		return m.result.Choices[n-1].Label
	}
	for _, c := range m.result.Choices {
		if strings.EqualFold(input, c.Label) || strings.EqualFold(input, displayLabel(c.Label)) {
			return c.Label
		}
	}
	return input
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	switch strings.ToLower(input) {
	case "/help":
		m.log = append(m.log, `Commands:
• 1, 2, ... or a label - Take a choice
• /look - Look around again
• /world - Show world info
• /copy - Copy the session id to the clipboard
• /reset - Start over at the beginning
• Ctrl+C - Quit`)
	case "/look":
		m.loading = true
		return m, m.fetchView()
	case "/world":
		m.loading = true
		return m, m.fetchWorld()
	case "/copy":
		if err := clipboard.WriteAll(m.api.sessionID); err != nil {
			m.log = append(m.log, errorStyle.Render("Could not copy session id: "+err.Error()))
		} else {
			m.log = append(m.log, noticeStyle.Render("Session id copied. Set SESSION_ID to resume later."))
		}
	case "/reset":
		m.loading = true
		return m, m.resetSession()
	default:
		m.log = append(m.log, errorStyle.Render("Unknown command. Type /help for help."))
	}
	m.refresh()
	return m, nil
}

func (m ConsoleUI) fetchView() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		res, err := api.view()
		return resultMsg{result: res, err: err}
	}
}

func (m ConsoleUI) sendAction(input, label string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		res, err := api.act(label)
		return resultMsg{result: res, input: input, err: err}
	}
}

func (m ConsoleUI) resetSession() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		res, err := api.reset()
		return resultMsg{result: res, input: "/reset", err: err}
	}
}

func (m ConsoleUI) fetchWorld() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		w, err := api.world()
		return worldMsg{world: w, err: err}
	}
}

// refresh re-renders both panels for the current width.
func (m *ConsoleUI) refresh() {
	if !m.ready {
		return
	}
	width := m.pageViewport.Width - 2
	if width < 10 {
		width = 10
	}
	var content strings.Builder
	for i, entry := range m.log {
		if i > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(wordwrap.String(entry, width))
	}
	m.pageViewport.SetContent(content.String())
	m.pageViewport.GotoBottom()
	m.metaViewport.SetContent(m.renderMeta())
}

func (m ConsoleUI) renderResult(res *navigation.Result) string {
	var b strings.Builder
	if res.Notice != "" {
		b.WriteString(noticeStyle.Render(res.Notice) + "\n\n")
	}
	if rej := res.Rejected; rej != nil {
		b.WriteString(errorStyle.Render(rej.Message))
		if rej.Suggestion != "" {
			b.WriteString(errorStyle.Render(fmt.Sprintf(" Did you mean %q?", displayLabel(rej.Suggestion))))
		}
		return b.String()
	}
	b.WriteString(titleStyle.Render(res.Location.Title) + "\n")
	if res.Location.Description != "" {
		b.WriteString(res.Location.Description + "\n")
	}
	env := res.Environment
	b.WriteString(envStyle.Render(fmt.Sprintf("%s %s, %s, %d°C", env.Season, env.TimeOfDay, env.Weather, env.TemperatureC)))
	if len(env.Events) > 0 {
		b.WriteString(envStyle.Render(" · " + strings.Join(env.Events, ", ")))
	}
	return b.String()
}

func (m ConsoleUI) renderMeta() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("SESSION") + "\n\n")
	if id := m.api.sessionID; len(id) > 8 {
		content.WriteString(id[:8] + "...\n\n")
	} else {
		content.WriteString(id + "\n\n")
	}
	if m.result == nil {
		content.WriteString("Loading...\n")
		return content.String()
	}

	content.WriteString(titleStyle.Render("CHOICES") + "\n\n")
	if len(m.result.Choices) == 0 {
		content.WriteString("None. Try /reset\n")
	}
	for i, c := range m.result.Choices {
		line := fmt.Sprintf("%d. %s", i+1, displayLabel(c.Label))
		if !c.Available {
			line = lockedStyle.Render(line + " (locked)")
		}
		content.WriteString(line + "\n")
	}
	return content.String()
}

func renderWorld(w *WorldInfo) string {
	name := w.Name
	if name == "" {
		name = "Untitled world"
	}
	return fmt.Sprintf("%s\n%d locations, starting at %s", titleStyle.Render(name), len(w.Locations), w.Start)
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.showQuitModal = false
		return m, nil
	case tea.KeyEnter:
		return m, tea.Quit
	}
	switch keyMsg.String() {
	case "y", "Y":
		return m, tea.Quit
	case "n", "N":
		m.showQuitModal = false
	}
	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	modal := modalStyle.Render(lipgloss.JoinVertical(lipgloss.Center,
		modalTitleStyle.Render("Quit?"),
		"",
		"Your session is kept on the server.",
		"Press Y or Enter to quit, N or Esc to stay.",
	))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	pageWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - pageWidth - 6

	pagePanel := pagePanelStyle.Width(pageWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.pageViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(pageWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, pagePanel, metaPanel)
}
