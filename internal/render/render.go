// Package render formats the text reports printed by bpmctl commands.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Rule widths used by the reports.
const (
	WideRule   = 80
	NarrowRule = 60
)

// Printer writes styled report lines. Styling is dropped when the writer is
// not a terminal.
type Printer struct {
	w       io.Writer
	heading lipgloss.Style
	ok      lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		heading: r.NewStyle().Bold(true),
		ok:      r.NewStyle().Foreground(lipgloss.Color("2")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("1")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// Line prints a formatted line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Blank prints an empty line.
func (p *Printer) Blank() {
	fmt.Fprintln(p.w)
}

// Rule prints a line of '=' characters.
func (p *Printer) Rule(width int) {
	fmt.Fprintln(p.w, strings.Repeat("=", width))
}

// Banner prints a title framed by rules.
func (p *Printer) Banner(title string, width int) {
	p.Rule(width)
	fmt.Fprintln(p.w, p.heading.Render(title))
	p.Rule(width)
}

// Section prints a blank line followed by a banner.
func (p *Printer) Section(title string, width int) {
	p.Blank()
	p.Banner(title, width)
}

// OK prints a success line.
func (p *Printer) OK(format string, args ...any) {
	fmt.Fprintln(p.w, p.ok.Render("✓")+" "+fmt.Sprintf(format, args...))
}

// Fail prints a failure line.
func (p *Printer) Fail(format string, args ...any) {
	fmt.Fprintln(p.w, p.fail.Render("✗")+" "+fmt.Sprintf(format, args...))
}

// Skip prints a line for an object that already existed.
func (p *Printer) Skip(format string, args ...any) {
	fmt.Fprintln(p.w, p.muted.Render("→")+" "+fmt.Sprintf(format, args...))
}

// Tagged prints a bracketed status tag such as [OK] or [ERROR].
func (p *Printer) Tagged(tag, format string, args ...any) {
	style := p.ok
	if tag != "OK" && tag != "SUCCESS" {
		style = p.fail
	}
	fmt.Fprintln(p.w, style.Render("["+tag+"]")+" "+fmt.Sprintf(format, args...))
}
