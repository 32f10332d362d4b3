package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/treykane/sshman/internal/model"
	"github.com/treykane/sshman/internal/util"
)

// Field indices for the add-host form.
const (
	fieldName = iota
	fieldHostname
	fieldUser
	fieldPort
	fieldKeyPath
	fieldTags
	fieldCount
)

// addForm holds the state of the "add host" panel.
type addForm struct {
	fields   []textinput.Model
	focusIdx int
	defaults model.HostRecord
	errMsg   string
}

func newAddForm(defaults model.HostRecord) *addForm {
	placeholders := []string{
		"my-server (required)",
		"192.168.1.1 or example.com (required)",
		util.DefaultString(defaults.User, "user"),
		fmt.Sprintf("%d", defaults.Port),
		defaults.KeyPath,
		"prod,web (optional)",
	}
	limits := []int{64, 256, 64, 5, 256, 256}

	f := &addForm{defaults: defaults, fields: make([]textinput.Model, fieldCount)}
	for i := range f.fields {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = limits[i]
		ti.Width = 40
		f.fields[i] = ti
	}
	f.fields[0].Focus()
	return f
}

// update handles a key; done is true when the form was submitted or
// cancelled, with rec set only on submit.
func (f *addForm) update(msg tea.KeyMsg, taken func(string) bool) (rec *model.HostRecord, done bool, cmd tea.Cmd) {
	switch msg.String() {
	case "esc":
		return nil, true, nil
	case "tab", "shift+tab", "down", "up":
		f.fields[f.focusIdx].Blur()
		if msg.String() == "tab" || msg.String() == "down" {
			f.focusIdx = (f.focusIdx + 1) % fieldCount
		} else {
			f.focusIdx = (f.focusIdx - 1 + fieldCount) % fieldCount
		}
		return nil, false, f.fields[f.focusIdx].Focus()
	case "enter":
		r, err := f.buildRecord(taken)
		if err != nil {
			f.errMsg = err.Error()
			return nil, false, nil
		}
		return &r, true, nil
	default:
		var c tea.Cmd
		f.fields[f.focusIdx], c = f.fields[f.focusIdx].Update(msg)
		f.errMsg = ""
		return nil, false, c
	}
}

func (f *addForm) buildRecord(taken func(string) bool) (model.HostRecord, error) {
	name := strings.TrimSpace(f.fields[fieldName].Value())
	hostname := strings.TrimSpace(f.fields[fieldHostname].Value())

	if name == "" {
		return model.HostRecord{}, fmt.Errorf("name is required")
	}
	if taken != nil && taken(name) {
		return model.HostRecord{}, fmt.Errorf("host already exists: %s", name)
	}
	if hostname == "" {
		return model.HostRecord{}, fmt.Errorf("hostname is required")
	}
	port, err := util.ParsePort(f.fields[fieldPort].Value(), f.defaults.Port)
	if err != nil {
		return model.HostRecord{}, err
	}
	return model.HostRecord{
		Name:     name,
		HostName: hostname,
		User:     util.DefaultString(strings.TrimSpace(f.fields[fieldUser].Value()), f.defaults.User),
		Port:     port,
		KeyPath:  util.DefaultString(strings.TrimSpace(f.fields[fieldKeyPath].Value()), f.defaults.KeyPath),
		Tags:     strings.TrimSpace(f.fields[fieldTags].Value()),
	}, nil
}

func (f *addForm) view() string {
	labels := []string{"Name:", "Hostname:", "User:", "Port:", "Key path:", "Tags:"}

	var b strings.Builder
	for i, label := range labels {
		cursor := "  "
		if i == f.focusIdx {
			cursor = "> "
		}
		b.WriteString(fmt.Sprintf("%s%-10s %s\n", cursor, label, f.fields[i].View()))
	}
	if f.errMsg != "" {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
		b.WriteString("\n" + errStyle.Render("Error: "+f.errMsg) + "\n")
	}
	b.WriteString("\nTab/Shift-Tab navigate | Enter save | Esc cancel")
	return b.String()
}
