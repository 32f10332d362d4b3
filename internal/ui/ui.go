// Package ui is the Bubble Tea dashboard behind "sshman browse": a filterable
// host list with connect, add and delete.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/treykane/sshman/internal/history"
	"github.com/treykane/sshman/internal/hoststore"
	"github.com/treykane/sshman/internal/model"
	"github.com/treykane/sshman/internal/util"
)

// Commander builds the ssh process for a record. *sshclient.Client
// satisfies it.
type Commander interface {
	Command(ctx context.Context, rec model.HostRecord) *exec.Cmd
	Args(rec model.HostRecord) []string
}

// Options wires the dashboard to the registry.
type Options struct {
	Store       *hoststore.Store
	Client      Commander
	History     *history.History
	DefaultUser string
	// Reserved reports names the command line would treat as a subcommand.
	Reserved func(name string) bool
	Logger   *slog.Logger
}

type statusMsg string

type sessionDoneMsg struct {
	name string
	err  error
}

type dashboardModel struct {
	opts          Options
	hosts         []model.HostRecord
	filtered      []model.HostRecord
	sel           int
	filter        textinput.Model
	filterMode    bool
	recentFirst   bool
	showHelp      bool
	confirmDelete bool
	form          *addForm
	status        string
	width         int
	height        int
}

func newDashboard(opts Options) dashboardModel {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	fi := textinput.New()
	fi.Placeholder = "name, hostname or tag"
	fi.Prompt = "/ "
	fi.CharLimit = 64
	m := dashboardModel{opts: opts, filter: fi}
	m.reload()
	m.status = "Ready. Enter connects, a adds, d deletes."
	return m
}

func (m *dashboardModel) reload() {
	m.hosts = m.opts.Store.List()
	m.applyFilter()
}

func (m *dashboardModel) applyFilter() {
	hosts := m.hosts
	if m.recentFirst && m.opts.History != nil {
		if lastUsed, err := m.opts.History.LastUsed(); err == nil {
			hosts = history.SortRecent(hosts, lastUsed)
		}
	}
	f := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if f == "" {
		m.filtered = append([]model.HostRecord(nil), hosts...)
	} else {
		m.filtered = nil
		for _, h := range hosts {
			if matches(h, f) {
				m.filtered = append(m.filtered, h)
			}
		}
	}
	if m.sel >= len(m.filtered) {
		m.sel = len(m.filtered) - 1
	}
	if m.sel < 0 {
		m.sel = 0
	}
}

func matches(h model.HostRecord, f string) bool {
	return strings.Contains(strings.ToLower(h.Name), f) ||
		strings.Contains(strings.ToLower(h.HostName), f) ||
		strings.Contains(strings.ToLower(h.Tags), f)
}

func (m dashboardModel) selected() (model.HostRecord, bool) {
	if len(m.filtered) == 0 {
		return model.HostRecord{}, false
	}
	return m.filtered[m.sel], true
}

func (m dashboardModel) taken(name string) bool {
	_, ok := m.opts.Store.FindByName(name)
	return ok
}

func (m dashboardModel) Init() tea.Cmd {
	return nil
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case sessionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("ssh to %s exited: %v", msg.name, msg.err)
			return m, nil
		}
		if m.opts.History != nil {
			if err := m.opts.History.Touch(msg.name); err != nil {
				m.opts.Logger.Warn("failed to record connection history", "host", msg.name, "error", err)
			}
		}
		m.status = "ssh session to " + msg.name + " closed"
		m.applyFilter()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m dashboardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form != nil {
		rec, done, cmd := m.form.update(msg, m.taken)
		if !done {
			return m, cmd
		}
		m.form = nil
		if rec == nil {
			m.status = "Add cancelled"
			return m, nil
		}
		if m.opts.Reserved != nil && m.opts.Reserved(rec.Name) {
			m.status = fmt.Sprintf("Add failed: %q is an sshman command", rec.Name)
			return m, nil
		}
		if err := m.opts.Store.Add(*rec); err != nil {
			m.status = "Add failed: " + err.Error()
			return m, nil
		}
		m.reload()
		m.status = "Host added: " + rec.Name
		return m, nil
	}

	if m.filterMode {
		switch msg.String() {
		case "enter", "esc":
			m.filterMode = false
			m.filter.Blur()
			m.applyFilter()
			return m, nil
		default:
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}
	}

	if m.confirmDelete {
		m.confirmDelete = false
		h, ok := m.selected()
		if !ok || msg.String() != "y" {
			m.status = "Delete cancelled"
			return m, nil
		}
		if _, err := m.opts.Store.Delete(h.Name); err != nil {
			m.status = "Delete failed: " + err.Error()
			return m, nil
		}
		if m.opts.History != nil {
			if err := m.opts.History.Forget(h.Name); err != nil {
				m.opts.Logger.Warn("failed to update connection history", "host", h.Name, "error", err)
			}
		}
		m.reload()
		m.status = "Host deleted: " + h.Name
		return m, nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		if m.sel < len(m.filtered)-1 {
			m.sel++
		}
	case "k", "up":
		if m.sel > 0 {
			m.sel--
		}
	case "/":
		m.filterMode = true
		m.status = "Filter mode: type and press Enter"
		return m, m.filter.Focus()
	case "?":
		m.showHelp = !m.showHelp
	case "s":
		m.recentFirst = !m.recentFirst
		m.applyFilter()
		if m.recentFirst {
			m.status = "Sorted by most recent connection"
		} else {
			m.status = "Sorted by stored order"
		}
	case "r":
		m.reload()
		m.status = "Refreshed host list"
	case "a":
		m.form = newAddForm(model.NewHostRecord("", "", m.opts.DefaultUser))
		m.status = "Adding a new host"
	case "d":
		if h, ok := m.selected(); ok {
			m.confirmDelete = true
			m.status = fmt.Sprintf("Delete %s? press y to confirm", h.Name)
		}
	case "enter":
		h, ok := m.selected()
		if !ok {
			break
		}
		cmd := m.opts.Client.Command(context.Background(), h)
		m.status = "Command: " + strings.Join(m.opts.Client.Args(h), " ")
		name := h.Name
		return m, tea.ExecProcess(cmd, func(err error) tea.Msg {
			return sessionDoneMsg{name: name, err: err}
		})
	}
	return m, nil
}

func (m dashboardModel) View() string {
	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render("SSH Manager")
	subhead := fmt.Sprintf("hosts=%d shown=%d file=%s", len(m.hosts), len(m.filtered), m.opts.Store.Path())

	left := strings.Builder{}
	for i, h := range m.filtered {
		cursor := " "
		if i == m.sel {
			cursor = ">"
		}
		left.WriteString(fmt.Sprintf("%s %-22s %-22s\n", cursor, util.Truncate(h.Name, 22), util.Truncate(h.DisplayTarget(), 22)))
	}
	if len(m.filtered) == 0 {
		left.WriteString("  (no hosts matched)\n")
	}

	detail := strings.Builder{}
	if h, ok := m.selected(); ok {
		detail.WriteString(fmt.Sprintf("Name: %s\nHost: %s\nUser: %s\nPort: %d\nKey: %s\nTags: %s\n",
			h.Name, h.DisplayTarget(), util.EmptyDash(h.User), h.Port, util.EmptyDash(h.KeyPath), util.EmptyDash(h.Tags)))
		detail.WriteString("\nCommand:\n  " + strings.Join(m.opts.Client.Args(h), " ") + "\n")
	} else {
		detail.WriteString("Pick a host to see its details.\n")
	}

	filterLine := "Filter: " + m.filter.Value()
	if m.filterMode {
		filterLine = m.filter.View()
	}
	quickHelp := "Keys: Enter connect | a add | d delete | / filter | s recent | r refresh | ? help | q quit"

	sections := []string{head, subhead, filterLine, quickHelp}
	if m.form != nil {
		sections = append(sections, m.renderPanel("Add Host", m.form.view(), m.effectiveWidth(), lipgloss.Color("214")))
	} else {
		sections = append(sections, m.renderMainPanels(left.String(), detail.String()))
	}
	if m.showHelp {
		sections = append(sections, m.renderPanel("Help", helpBlock(), m.effectiveWidth(), lipgloss.Color("244")))
	}
	sections = append(sections, m.renderPanel("Status", m.status, m.effectiveWidth(), lipgloss.Color("205")))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Run starts the dashboard and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(newDashboard(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func helpBlock() string {
	return strings.Join([]string{
		"  Navigation: j/k or arrow keys move selection.",
		"  Filtering: press /, type name, hostname or tag text, then Enter.",
		"  Connect: press Enter on the selected host.",
		"  Add: press a, fill the form, Enter saves.",
		"  Delete: press d, then y to confirm.",
		"  Sort: press s to toggle most-recent-first.",
		"  Quit: press q (or Ctrl+C).",
	}, "\n")
}

func (m dashboardModel) renderMainPanels(hostsPanel, detailsPanel string) string {
	width := m.effectiveWidth()
	if width < 96 {
		return lipgloss.JoinVertical(
			lipgloss.Left,
			m.renderPanel("Hosts", hostsPanel, width, lipgloss.Color("39")),
			m.renderPanel("Details", detailsPanel, width, lipgloss.Color("69")),
		)
	}
	leftWidth := width / 2
	rightWidth := width - leftWidth
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderPanel("Hosts", hostsPanel, leftWidth, lipgloss.Color("39")),
		m.renderPanel("Details", detailsPanel, rightWidth, lipgloss.Color("69")),
	)
}

func (m dashboardModel) effectiveWidth() int {
	if m.width <= 0 {
		return 100
	}
	return m.width
}

func (m dashboardModel) renderPanel(title, body string, width int, accent lipgloss.Color) string {
	if width < 24 {
		width = 24
	}
	header := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(title)
	content := strings.TrimSuffix(body, "\n")
	panel := strings.TrimSpace(header + "\n" + content)
	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Render(panel)
}
