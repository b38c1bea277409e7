package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Laisky/tamerlane/internal/viewer"
	"github.com/Laisky/tamerlane/library/iiif"
	"github.com/Laisky/tamerlane/library/langs"
	"github.com/Laisky/tamerlane/library/search"
)

// Viewer is the session driven by the TUI.
type Viewer interface {
	Snapshot() viewer.State
	LoadContent(ctx context.Context, url string) error
	NextManifest(ctx context.Context) error
	PreviousManifest(ctx context.Context) error
	HandleSearch(ctx context.Context, query string)
	SelectSearchResult(ctx context.Context, snippetID string) error
	SelectCanvas(index int) error
	NextCanvas()
	PreviousCanvas()
	Autocomplete(ctx context.Context, prefix string) ([]iiif.Term, error)
	SetActivePanelTab(tab viewer.PanelTab) error
	CycleLanguage() langs.Language
	VisibleSearchResults() []search.Snippet
}

// ViewState represents the screen currently shown.
type ViewState int

const (
	// ViewOpen asks for the URL of a manifest or collection
	ViewOpen ViewState = iota
	// ViewBrowse shows the current manifest and the side panel
	ViewBrowse
	// ViewSearch asks for a search query
	ViewSearch
	// ViewLoading is shown while a request is in flight
	ViewLoading
)

// Config holds the presentation settings of the TUI.
type Config struct {
	AppName    string
	ShowLogo   bool
	ContentURL string
	// PageSize bounds the number of rows shown in the side panel.
	PageSize int
}

// doneMsg reports the end of a viewer operation.
type doneMsg struct {
	op  string
	err error
}

// suggestionsMsg carries the completions offered for the search input.
type suggestionsMsg struct {
	terms []iiif.Term
	err   error
}

// panelItem is a row of the side panel.
type panelItem struct {
	id          string
	title       string
	description string
}

// Title implements list.DefaultItem
func (i panelItem) Title() string { return i.title }

// Description implements list.DefaultItem
func (i panelItem) Description() string { return i.description }

// FilterValue implements list.Item
func (i panelItem) FilterValue() string { return i.title }

type keyMap struct {
	Open     key.Binding
	Search   key.Binding
	Next       key.Binding
	Previous   key.Binding
	NextCanvas key.Binding
	PrevCanvas key.Binding
	Panel      key.Binding
	Complete   key.Binding
	Language   key.Binding
	Enter      key.Binding
	Back       key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Open:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open")),
	Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Next:       key.NewBinding(key.WithKeys("n", "right"), key.WithHelp("n/→", "next manifest")),
	Previous:   key.NewBinding(key.WithKeys("p", "left"), key.WithHelp("p/←", "previous manifest")),
	NextCanvas: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next canvas")),
	PrevCanvas: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous canvas")),
	Panel:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch panel")),
	Complete:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "complete")),
	Language:   key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "language")),
	Enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model is the Bubble Tea model of the viewer.
type Model struct {
	ctx    context.Context
	viewer Viewer
	cfg    Config

	view    ViewState
	panel   list.Model
	input   textinput.Model
	spinner spinner.Model

	// suggestions are the completions of the search input
	suggestions []iiif.Term

	// err is the last failure that the state does not already describe
	err error

	width    int
	height   int
	quitting bool
}

// NewModel creates the viewer model. When cfg.ContentURL is set the model
// starts loading it immediately.
func NewModel(ctx context.Context, v Viewer, cfg Config) Model {
	if cfg.AppName == "" {
		cfg.AppName = "Tamerlane"
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(primaryColor).
		BorderForeground(primaryColor)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(secondaryColor)

	panel := list.New(nil, delegate, 80, 20)
	panel.SetShowStatusBar(false)
	panel.SetFilteringEnabled(false)
	panel.SetShowHelp(false)
	panel.Styles.Title = labelStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = progressStyle

	m := Model{
		ctx:     ctx,
		viewer:  v,
		cfg:     cfg,
		view:    ViewOpen,
		panel:   panel,
		spinner: sp,
	}
	m.input = newInput("https://example.org/iiif/manifest.json", "🔗 ")
	if cfg.ContentURL != "" {
		m.view = ViewLoading
	}

	return m
}

func newInput(placeholder, prompt string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 512
	in.Width = 60
	in.Prompt = prompt
	in.PromptStyle = labelStyle
	in.Focus()
	return in
}

// Init starts the spinner and the initial load.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, textinput.Blink}
	if m.cfg.ContentURL != "" {
		cmds = append(cmds, m.loadContent(m.cfg.ContentURL))
	}
	return tea.Batch(cmds...)
}

func (m Model) loadContent(url string) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{op: "load", err: m.viewer.LoadContent(m.ctx, url)}
	}
}

func (m Model) runSearch(query string) tea.Cmd {
	return func() tea.Msg {
		m.viewer.HandleSearch(m.ctx, query)
		return doneMsg{op: "search"}
	}
}

func (m Model) navigate(next bool) tea.Cmd {
	return func() tea.Msg {
		if next {
			return doneMsg{op: "navigate", err: m.viewer.NextManifest(m.ctx)}
		}
		return doneMsg{op: "navigate", err: m.viewer.PreviousManifest(m.ctx)}
	}
}

func (m Model) selectResult(id string) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{op: "select", err: m.viewer.SelectSearchResult(m.ctx, id)}
	}
}

func (m Model) complete(prefix string) tea.Cmd {
	return func() tea.Msg {
		terms, err := m.viewer.Autocomplete(m.ctx, prefix)
		return suggestionsMsg{terms: terms, err: err}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.panel.SetSize(msg.Width-4, m.panelHeight())
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ViewOpen, ViewSearch:
			return m.handleInput(msg)
		case ViewBrowse:
			return m.handleBrowse(msg)
		case ViewLoading:
			if msg.String() == "ctrl+c" {
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil
		}

	case doneMsg:
		m.err = msg.err
		if msg.err != nil && msg.op == "load" {
			m.view = ViewOpen
			return m, nil
		}
		m.view = ViewBrowse
		m.refreshPanel()
		return m, nil

	case suggestionsMsg:
		m.err = msg.err
		m.suggestions = msg.terms
		if m.view == ViewSearch && len(msg.terms) > 0 {
			m.input.SetValue(msg.terms[0].Value)
			m.input.CursorEnd()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) panelHeight() int {
	h := m.height - 12
	if m.cfg.PageSize > 0 && h > m.cfg.PageSize*3 {
		h = m.cfg.PageSize * 3
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Back):
		if m.view == ViewSearch || m.viewer.Snapshot().CurrentManifest != nil {
			m.view = ViewBrowse
		}
		return m, nil

	case m.view == ViewSearch && key.Matches(msg, keys.Complete):
		prefix := strings.TrimSpace(m.input.Value())
		if prefix == "" || m.viewer.Snapshot().AutocompleteURL == "" {
			return m, nil
		}
		return m, m.complete(prefix)

	case key.Matches(msg, keys.Enter):
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			return m, nil
		}

		cmd := m.loadContent(value)
		if m.view == ViewSearch {
			cmd = m.runSearch(value)
		}
		m.view = ViewLoading
		return m, tea.Batch(m.spinner.Tick, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Open):
		m.view = ViewOpen
		m.input = newInput("https://example.org/iiif/manifest.json", "🔗 ")
		return m, textinput.Blink

	case key.Matches(msg, keys.Search):
		if m.viewer.Snapshot().SearchURL == "" {
			m.err = errors.New("this content has no search service")
			return m, nil
		}
		m.view = ViewSearch
		m.suggestions = nil
		m.input = newInput("search text", "🔍 ")
		return m, textinput.Blink

	case key.Matches(msg, keys.Next), key.Matches(msg, keys.Previous):
		m.view = ViewLoading
		return m, tea.Batch(m.spinner.Tick, m.navigate(key.Matches(msg, keys.Next)))

	case key.Matches(msg, keys.NextCanvas), key.Matches(msg, keys.PrevCanvas):
		if key.Matches(msg, keys.NextCanvas) {
			m.viewer.NextCanvas()
		} else {
			m.viewer.PreviousCanvas()
		}
		m.refreshPanel()
		return m, nil

	case key.Matches(msg, keys.Panel):
		tab := viewer.PanelSearchResults
		if m.viewer.Snapshot().ActivePanelTab == viewer.PanelSearchResults {
			tab = viewer.PanelAnnotations
		}
		m.err = m.viewer.SetActivePanelTab(tab)
		m.refreshPanel()
		return m, nil

	case key.Matches(msg, keys.Language):
		m.viewer.CycleLanguage()
		m.refreshPanel()
		return m, nil

	case key.Matches(msg, keys.Enter):
		if m.viewer.Snapshot().ActivePanelTab != viewer.PanelSearchResults {
			if len(m.panel.Items()) == 0 {
				return m, nil
			}
			m.err = m.viewer.SelectCanvas(m.panel.Index())
			m.refreshPanel()
			return m, nil
		}
		item, ok := m.panel.SelectedItem().(panelItem)
		if !ok {
			return m, nil
		}
		m.view = ViewLoading
		return m, tea.Batch(m.spinner.Tick, m.selectResult(item.id))
	}

	var cmd tea.Cmd
	m.panel, cmd = m.panel.Update(msg)
	return m, cmd
}

// refreshPanel rebuilds the side panel rows from the viewer state.
func (m *Model) refreshPanel() {
	st := m.viewer.Snapshot()

	var items []list.Item
	switch st.ActivePanelTab {
	case viewer.PanelSearchResults:
		m.panel.Title = "Search results"
		for _, sn := range m.viewer.VisibleSearchResults() {
			title := sn.Prefix + matchStyle.Render(sn.Exact) + sn.Suffix
			desc := sn.CanvasTarget
			if sn.AnnotationID != "" && sn.AnnotationID == st.SelectedSearchResultID {
				desc = "▶ " + desc
			}
			items = append(items, panelItem{id: sn.ID, title: strings.TrimSpace(title), description: desc})
		}
	default:
		m.panel.Title = "Canvases"
		if st.CurrentManifest != nil {
			for _, canvas := range st.CurrentManifest.Canvases {
				label := canvas.Label
				if label == "" {
					label = canvas.ID
				}
				desc := fmt.Sprintf("%d images", len(canvas.Images))
				if canvas.ID == st.SelectedCanvasID {
					desc = "▶ " + desc
				}
				items = append(items, panelItem{id: canvas.ID, title: label, description: desc})
			}
		}
	}

	m.panel.SetItems(items)
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return subtitleStyle.Render("Goodbye! 👋\n")
	}

	switch m.view {
	case ViewOpen:
		return m.renderInput("Open IIIF manifest or collection", "enter: open • esc: back • ctrl+c: quit")
	case ViewSearch:
		return m.renderInput("Search this content", "enter: search • tab: complete • esc: back")
	case ViewLoading:
		return boxStyle.Render(m.spinner.View() + " Loading...")
	case ViewBrowse:
		return m.renderBrowse()
	default:
		return "Unknown state"
	}
}

func (m Model) renderHeader() string {
	title := m.cfg.AppName
	if m.cfg.ShowLogo {
		title = "🏛  " + title
	}
	return headerStyle.Render(title)
}

func (m Model) renderInput(label, help string) string {
	var sb strings.Builder
	sb.WriteString(m.renderHeader() + "\n")
	sb.WriteString(labelStyle.Render(label) + "\n")
	sb.WriteString(m.input.View() + "\n")
	if m.view == ViewSearch && len(m.suggestions) > 0 {
		values := make([]string, 0, len(m.suggestions))
		for _, term := range m.suggestions {
			values = append(values, term.Value)
		}
		sb.WriteString(subtitleStyle.Render(strings.Join(values, " • ")) + "\n")
	}
	if msg := m.errorText(); msg != "" {
		sb.WriteString("\n" + errorStyle.Render(msg) + "\n")
	}
	sb.WriteString(helpStyle.Render(help))

	return boxStyle.Render(sb.String())
}

func (m Model) renderBrowse() string {
	st := m.viewer.Snapshot()

	lines := []string{m.renderHeader()}
	if st.CollectionMetadata.Label != "" {
		lines = append(lines, subtitleStyle.Render(st.CollectionMetadata.Label))
	}
	lines = append(lines, labelStyle.Render(st.ManifestMetadata.Label))
	if st.CurrentManifest != nil && st.CurrentManifest.Info.Summary != "" {
		lines = append(lines, subtitleStyle.Render(st.CurrentManifest.Info.Summary))
	}
	lines = append(lines, "", m.panel.View())
	if msg := m.errorText(); msg != "" {
		lines = append(lines, errorStyle.Render(msg))
	}

	lang := st.SelectedLanguage
	if lang == "" {
		lang = "all"
	}
	status := fmt.Sprintf("manifest %d/%d • canvas %d/%d • panel %s • language %s • results %d",
		st.SelectedManifestIndex+1, st.TotalManifests, st.SelectedCanvasIndex+1, st.TotalCanvases,
		st.ActivePanelTab, strings.ToUpper(lang), len(st.SearchResults))
	lines = append(lines,
		statusBarStyle.Render(status),
		helpStyle.Render("o open • / search • n/p manifest • [/] canvas • tab panel • l language • enter select • q quit"),
	)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// errorText prefers the user-facing message of the state over the raw error.
func (m Model) errorText() string {
	if msg := m.viewer.Snapshot().Error; msg != "" {
		return msg
	}
	if m.err != nil {
		return m.err.Error()
	}
	return ""
}
