// Package console renders the user-facing progress lines of an ingest run.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes styled status lines. Styling degrades to plain text when w
// is not a terminal.
type Printer struct {
	w io.Writer

	// stepStyle for stage banners
	stepStyle lipgloss.Style
	// dimStyle for indented detail lines
	dimStyle     lipgloss.Style
	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	labelStyle   lipgloss.Style
	boxStyle     lipgloss.Style
}

// New creates a Printer bound to w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:            w,
		stepStyle:    r.NewStyle().Bold(true),
		dimStyle:     r.NewStyle().Foreground(lipgloss.Color("240")),
		successStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		errorStyle:   r.NewStyle().Foreground(lipgloss.Color("196")),
		labelStyle:   r.NewStyle().Foreground(lipgloss.Color("81")),
		boxStyle: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("42")).
			Padding(0, 1),
	}
}

// Step prints a stage banner.
func (p *Printer) Step(format string, args ...any) {
	fmt.Fprintln(p.w, p.stepStyle.Render(fmt.Sprintf(format, args...)))
}

// Detail prints an indented detail line under the current stage.
func (p *Printer) Detail(format string, args ...any) {
	fmt.Fprintln(p.w, p.dimStyle.Render("   "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, p.successStyle.Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, p.errorStyle.Render(fmt.Sprintf(format, args...)))
}

// Summary renders label/value rows inside a rounded box.
func (p *Printer) Summary(rows [][2]string) {
	if len(rows) == 0 {
		return
	}
	width := 0
	for _, r := range rows {
		if len(r[0]) > width {
			width = len(r[0])
		}
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		label := r[0] + ":" + strings.Repeat(" ", width-len(r[0]))
		lines = append(lines, p.labelStyle.Render(label)+" "+r[1])
	}
	fmt.Fprintln(p.w, p.boxStyle.Render(strings.Join(lines, "\n")))
}
