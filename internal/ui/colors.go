package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// interface Painter defines coloring CLI output with [lipgloss] styles
type Painter interface {
	Title(string) string // Banner and table headers
	OK(string) string    // Success marks
	Err(string) string   // Failure marks
	Warn(string) string  // Near-expiry and partial results
	Help(string) string  // Follow-up hints
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// Default returns the shared color palette.
func Default() *Palette { return styles }

// Plain returns a palette that leaves text untouched, for pipes and tests.
func Plain() *Palette {
	none := lipgloss.NewStyle()
	return &Palette{title: none, ok: none, err: none, warn: none, help: none}
}

func (p *Palette) Title(s string) string { return p.title.Render(s) }
func (p *Palette) OK(s string) string    { return p.ok.Render(s) }
func (p *Palette) Err(s string) string   { return p.err.Render(s) }
func (p *Palette) Warn(s string) string  { return p.warn.Render(s) }
func (p *Palette) Help(s string) string  { return p.help.Render(s) }

// Mark renders ✓ or ✗.
func Mark(p Painter, ok bool) string {
	if ok {
		return p.OK("✓")
	}
	return p.Err("✗")
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
