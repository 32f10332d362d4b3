package shell

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/treykane/sshman/internal/model"
	"github.com/treykane/sshman/internal/util"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

type column struct {
	title string
	width int
}

var tableColumns = []column{
	{"NAME", 15},
	{"HOSTNAME", 20},
	{"USER", 10},
	{"PORT", 6},
	{"TAGS", 0},
}

// RenderHeader writes a boxed section title.
func RenderHeader(w io.Writer, title string) {
	rule := strings.Repeat("=", 43)
	fmt.Fprintln(w, headerStyle.Render(rule+"\n "+title+"\n"+rule))
}

// RenderTable writes recs as a fixed-width table followed by a total line.
func RenderTable(w io.Writer, recs []model.HostRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, warnStyle.Render("No hosts configured. Use 'add' first."))
		return
	}
	titles := make([]string, len(tableColumns))
	for i, c := range tableColumns {
		titles[i] = c.title
	}
	fmt.Fprintln(w, boldStyle.Render(tableRow(titles)))
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, r := range recs {
		fmt.Fprintln(w, tableRow([]string{r.Name, r.HostName, util.EmptyDash(r.User), fmt.Sprint(r.Port), r.Tags}))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("Total: %d hosts", len(recs))))
}

func tableRow(cells []string) string {
	var b strings.Builder
	for i, c := range tableColumns {
		v := cells[i]
		if c.width == 0 {
			b.WriteString(v)
			continue
		}
		b.WriteString(fmt.Sprintf("%-*s", c.width, util.Truncate(v, c.width-1)))
	}
	return strings.TrimRight(b.String(), " ")
}
