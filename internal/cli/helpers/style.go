package helpers

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ColorEnabled resolves a color mode (auto, always or never) for w. Auto
// colors terminals only and honours NO_COLOR.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Styles colors the parts of text output. The zero value renders plain
// text.
type Styles struct {
	enabled bool
	tag     lipgloss.Style
	attr    lipgloss.Style
	offset  lipgloss.Style
	value   lipgloss.Style
	header  lipgloss.Style
	warn    lipgloss.Style
}

// NewStyles returns styles rendering to w; with enabled false every method
// returns its input unchanged.
func NewStyles(w io.Writer, enabled bool) Styles {
	if !enabled {
		return Styles{}
	}
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.ANSI256)
	return Styles{
		enabled: true,
		tag:     r.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		attr:    r.NewStyle().Foreground(lipgloss.Color("141")),
		offset:  r.NewStyle().Foreground(lipgloss.Color("241")),
		value:   r.NewStyle().Foreground(lipgloss.Color("252")),
		header:  r.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

func (s Styles) render(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}

func (s Styles) Tag(text string) string    { return s.render(s.tag, text) }
func (s Styles) Attr(text string) string   { return s.render(s.attr, text) }
func (s Styles) Offset(text string) string { return s.render(s.offset, text) }
func (s Styles) Value(text string) string  { return s.render(s.value, text) }
func (s Styles) Header(text string) string { return s.render(s.header, text) }
func (s Styles) Warn(text string) string   { return s.render(s.warn, text) }
