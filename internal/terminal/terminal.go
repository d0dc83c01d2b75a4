// Package terminal renders formatted answers for a text console.
package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/formatting"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/render"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/sources"
)

// Theme holds the styles used for each answer element.
type Theme struct {
	Speaker   lipgloss.Style
	Heading   lipgloss.Style
	Number    lipgloss.Style
	Title     lipgloss.Style
	Emphasis  lipgloss.Style
	URL       lipgloss.Style
	Muted     lipgloss.Style
	Reference lipgloss.Style
	Error     lipgloss.Style
}

// DefaultTheme builds the widget palette on r.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Speaker:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#0072CE")),
		Heading:   r.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("#63513D")),
		Number:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#0072CE")),
		Title:     r.NewStyle().Bold(true),
		Emphasis:  r.NewStyle().Bold(true),
		URL:       r.NewStyle().Underline(true).Foreground(lipgloss.Color("39")),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("245")),
		Reference: r.NewStyle().Foreground(lipgloss.Color("#0072CE")),
		Error:     r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Renderer turns answers and references into styled console text.
type Renderer struct {
	theme Theme
}

// NewRenderer detects the color profile of w. Non-terminal writers get
// plain text.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{theme: DefaultTheme(lipgloss.NewRenderer(w))}
}

// Answer renders the blocks of a formatted answer separated by blank lines.
func (r *Renderer) Answer(a formatting.Answer) string {
	parts := make([]string, 0, len(a.Blocks))
	for _, block := range a.Blocks {
		parts = append(parts, r.block(block))
	}
	return strings.Join(parts, "\n\n")
}

// Message renders a composed assistant message with its references.
// Every reference is listed; the console has no collapsed preview.
func (r *Renderer) Message(speaker string, msg render.Message) string {
	var b strings.Builder
	b.WriteString(r.theme.Speaker.Render(speaker + ":"))
	b.WriteString("\n")
	b.WriteString(r.Answer(msg.Formatted))

	if len(msg.References) > 0 {
		b.WriteString("\n\n")
		b.WriteString(r.theme.Title.Render(fmt.Sprintf("References (%d)", len(msg.References))))
		for _, ref := range msg.References {
			b.WriteString("\n")
			b.WriteString(r.theme.Reference.Render(fmt.Sprintf("[%d]", ref.Index)))
			b.WriteString(" " + ref.Label + " ")
			b.WriteString(r.theme.Muted.Render(ref.URL))
		}
	}
	return b.String()
}

// Sources renders normalized sources one per line as "label <url>".
func (r *Renderer) Sources(list []sources.Source) string {
	lines := make([]string, len(list))
	for i, s := range list {
		lines[i] = s.DisplayLabel + " " + r.theme.Muted.Render("<"+s.CanonicalURL+">")
	}
	return strings.Join(lines, "\n")
}

// Error renders a failure line.
func (r *Renderer) Error(speaker, text string) string {
	return r.theme.Speaker.Render(speaker+":") + " " + r.theme.Error.Render(text)
}

func (r *Renderer) block(block formatting.Block) string {
	switch block.Kind {
	case formatting.BlockHeading:
		return r.theme.Heading.Render(block.Text)
	case formatting.BlockNumberedItem:
		var b strings.Builder
		b.WriteString(r.theme.Number.Render(strings.TrimSpace(block.Number)))
		b.WriteString(" ")
		if block.Title != "" {
			b.WriteString(r.theme.Title.Render(block.Title))
			if len(block.Spans) > 0 {
				b.WriteString(" ")
			}
		}
		b.WriteString(r.spans(block.Spans))
		return b.String()
	default:
		return r.spans(block.Spans)
	}
}

func (r *Renderer) spans(spans []formatting.Span) string {
	var b strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case formatting.SpanEmphasis:
			b.WriteString(r.theme.Emphasis.Render(formatting.PlainText(s.Children)))
		case formatting.SpanBreakableURL:
			b.WriteString(r.theme.URL.Render(formatting.PlainText(s.Children)))
		case formatting.SpanLineBreak:
			b.WriteString("\n")
		case formatting.SpanListNumber:
			b.WriteString(r.theme.Number.Render(s.Text))
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}
