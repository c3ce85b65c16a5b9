package commands

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// printer serializes demo output from several goroutines and styles it
// when the destination is a terminal.
type printer struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool

	actor   lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
	summary lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	p := &printer{w: w, styled: isTerminal(w)}
	if p.styled {
		p.actor = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
		p.good = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
		p.bad = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
		p.summary = lipgloss.NewStyle().Faint(true)
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

// say prints "<actor>: <message>".
func (p *printer) say(actor, format string, args ...any) {
	p.line(p.render(p.actor, actor) + ": " + fmt.Sprintf(format, args...))
}

func (p *printer) sayGood(actor, msg string) {
	p.line(p.render(p.actor, actor) + ": " + p.render(p.good, msg))
}

func (p *printer) sayBad(actor, msg string) {
	p.line(p.render(p.actor, actor) + ": " + p.render(p.bad, msg))
}

func (p *printer) note(format string, args ...any) {
	p.line(p.render(p.summary, fmt.Sprintf(format, args...)))
}

func (p *printer) line(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}
