package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/roster/internal/controller"
	"github.com/smileynet/roster/internal/listview"
	"github.com/smileynet/roster/internal/session"
)

// headerHeight is the number of lines above the list pane (title, banner).
const headerHeight = 2

// footerHeight is the number of lines below the list pane (notice, help bar).
const footerHeight = 2

// RefetchUsedNotice is shown when the affordance is activated after the
// session already spent its refetch.
const RefetchUsedNotice = "refetch can be used once per session"

// Model is the root Bubble Tea model for the user list.
// The controller it wraps is only touched from Update, except for Fetch,
// which runs inside a tea.Cmd.
type Model struct {
	ctx      context.Context
	ctl      *controller.Controller
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model
	loading  bool
	err      error
	notice   string
	width    int
	height   int
}

// NewModel consults the cache through ctl.Start. A fresh entry is rendered
// immediately; otherwise the model starts in the loading state and Init
// dispatches the fetch.
func NewModel(ctx context.Context, ctl *controller.Controller) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		ctl:      ctl,
		keys:     KeyMap(),
		help:     help.New(),
		spinner:  s,
		viewport: viewport.New(0, 0),
		loading:  ctl.Start(),
	}
}

// Init starts the fetch when the cache could not serve the list.
func (m Model) Init() tea.Cmd {
	if !m.loading {
		return nil
	}
	return tea.Batch(m.spinner.Tick, fetchUsers(m.ctx, m.ctl))
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = m.contentHeight()
		m.syncViewport()
		return m, nil

	case UsersFetchedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		m.ctl.Apply(msg.Users)
		m.viewport.GotoTop()
		m.syncViewport()
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey processes key messages. Only quit is honored while loading.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.loading {
		return m, nil
	}

	list := m.ctl.List()
	switch {
	case key.Matches(msg, m.keys.Up):
		list.Up()
	case key.Matches(msg, m.keys.Down):
		list.Down()
	case key.Matches(msg, m.keys.Delete):
		u, ok := list.Selected()
		if !ok {
			return m, nil
		}
		m.notice = ""
		if err := m.ctl.Delete(u.ID); err != nil {
			m.err = err
		} else {
			m.notice = fmt.Sprintf("deleted %s", u.Name)
		}
	case key.Matches(msg, m.keys.Refetch):
		if !m.ctl.Affordance() {
			return m, nil
		}
		refetch, err := m.ctl.Refetch()
		if errors.Is(err, session.ErrRefetchUsed) {
			m.notice = RefetchUsedNotice
		} else if err != nil {
			m.err = err
		}
		if refetch {
			m.notice = ""
			m.err = nil
			m.loading = true
			m.syncViewport()
			return m, tea.Batch(m.spinner.Tick, fetchUsers(m.ctx, m.ctl))
		}
	default:
		return m, nil
	}

	m.syncViewport()
	return m, nil
}

// contentHeight returns the usable height for the list pane,
// accounting for the header and the footer.
func (m Model) contentHeight() int {
	h := m.height - headerHeight - footerHeight
	if h < 1 {
		return 1
	}
	return h
}

// listContent renders the list pane body.
func (m Model) listContent() string {
	body := m.ctl.List().View(m.width)
	if m.ctl.Affordance() {
		if body != "" {
			body += "\n\n"
		}
		body += RefetchButton()
	}
	return body
}

// syncViewport refreshes the viewport content and scrolls the selected row
// into view.
func (m *Model) syncViewport() {
	content := m.listContent()
	m.viewport.SetContent(content)

	line := cursorLine(content)
	if line < 0 || m.viewport.Height <= 0 {
		return
	}
	switch {
	case line < m.viewport.YOffset:
		m.viewport.SetYOffset(line)
	case line >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}

// cursorLine returns the index of the first line carrying the cursor
// marker, or -1.
func cursorLine(content string) int {
	for i, line := range strings.Split(content, "\n") {
		if strings.Contains(line, listview.CursorMarker) {
			return i
		}
	}
	return -1
}

// title renders the header line with the row count and data source.
func (m Model) title() string {
	t := titleStyle.Render("Users")
	list := m.ctl.List()
	if !list.Rendered() {
		return t
	}
	info := fmt.Sprintf(" %d", list.Len())
	if src := m.ctl.Source(); src != controller.SourceNone {
		info += " · " + string(src)
	}
	return t + mutedStyle.Render(info)
}

// View renders the header, the list pane, and the help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	header := lipgloss.JoinVertical(lipgloss.Left, m.title(), ErrorBanner(m.err))

	var body string
	if m.loading {
		body = lipgloss.NewStyle().Height(m.contentHeight()).
			Render(m.spinner.View() + " Loading users...")
	} else {
		body = m.viewport.View()
	}

	notice := ""
	if m.notice != "" {
		notice = noticeStyle.Render(m.notice)
	}
	list := m.ctl.List()
	helpView := m.help.View(HelpBindings(list.Len(), m.ctl.Affordance()))

	return lipgloss.JoinVertical(lipgloss.Left, header, body, notice, helpView)
}

// Err returns the last error shown in the banner.
func (m Model) Err() error {
	return m.err
}
