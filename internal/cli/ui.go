package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	valueStyle = lipgloss.NewStyle().
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)
)

// printer writes styled output. Styling is dropped when plain is set so that
// piped output stays grep-friendly.
type printer struct {
	out   io.Writer
	plain bool
}

func (p *printer) render(style lipgloss.Style, s string) string {
	if p.plain {
		return s
	}
	return style.Render(s)
}

func (p *printer) title(s string) {
	fmt.Fprintln(p.out, p.render(titleStyle, s))
}

func (p *printer) section(s string) {
	fmt.Fprintln(p.out, p.render(sectionStyle, s))
}

func (p *printer) line(s string) {
	fmt.Fprintln(p.out, s)
}

func (p *printer) metric(label, value string) {
	fmt.Fprintf(p.out, "%s %s\n", p.render(labelStyle, label+":"), p.render(valueStyle, value))
}

func (p *printer) warning(s string) {
	fmt.Fprintln(p.out, p.render(warningStyle, "⚠ "+s))
}

func (p *printer) errorLine(s string) {
	fmt.Fprintln(p.out, p.render(errorStyle, "✗ "+s))
}

func (p *printer) success(s string) {
	fmt.Fprintln(p.out, p.render(successStyle, "✓ "+s))
}

// table prints rows as aligned columns, boxed unless plain.
func (p *printer) table(header []string, rows [][]string) {
	body := alignColumns(append([][]string{header}, rows...))
	if p.plain {
		fmt.Fprintln(p.out, body)
		return
	}
	fmt.Fprintln(p.out, tableStyle.Render(body))
}

// alignColumns pads every cell to its column's widest entry.
func alignColumns(rows [][]string) string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
	return strings.Join(lines, "\n")
}
