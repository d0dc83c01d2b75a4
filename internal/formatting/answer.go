package formatting

import "strings"

// BlockKind identifies a top-level element of a formatted answer.
type BlockKind string

const (
	BlockHeading      BlockKind = "heading"
	BlockParagraph    BlockKind = "paragraph"
	BlockNumberedItem BlockKind = "numbered_item"
)

// SpanKind identifies an inline element inside a block.
type SpanKind string

const (
	SpanText         SpanKind = "text"
	SpanEmphasis     SpanKind = "emphasis"
	SpanBreakable    SpanKind = "breakable"
	SpanBreakableURL SpanKind = "breakable_url"
	SpanLineBreak    SpanKind = "line_break"
	SpanListNumber   SpanKind = "list_number"
)

// Span is an inline run of answer text. Emphasis and URL spans carry
// children; every other kind carries Text.
type Span struct {
	Kind     SpanKind `json:"kind"`
	Text     string   `json:"text,omitempty"`
	Children []Span   `json:"children,omitempty"`
}

// Block is one display element of a formatted answer.
//
//   - heading: Level and Text (markers already stripped)
//   - paragraph: Spans
//   - numbered_item: Number verbatim ("1. "), optional Title, optional Spans
type Block struct {
	Kind   BlockKind `json:"type"`
	Level  int       `json:"level,omitempty"`
	Text   string    `json:"text,omitempty"`
	Number string    `json:"number,omitempty"`
	Title  string    `json:"title,omitempty"`
	Spans  []Span    `json:"spans,omitempty"`
}

// Answer is the structured, render-ready form of a raw assistant answer.
// Simple is set when the answer had no headings or numbered items and was
// laid out with the degraded paragraph/line-break rules instead.
type Answer struct {
	Blocks []Block `json:"blocks"`
	Simple bool    `json:"simple"`
}

// Empty reports whether the answer has nothing to display.
func (a Answer) Empty() bool {
	return len(a.Blocks) == 0
}

// PlainText flattens spans back into text without any markup. Line breaks
// become newlines.
func PlainText(spans []Span) string {
	var b strings.Builder
	writePlain(&b, spans)
	return b.String()
}

func writePlain(b *strings.Builder, spans []Span) {
	for _, s := range spans {
		switch s.Kind {
		case SpanEmphasis, SpanBreakableURL:
			writePlain(b, s.Children)
		case SpanLineBreak:
			b.WriteByte('\n')
		default:
			b.WriteString(s.Text)
		}
	}
}

// Emphasized returns the plain text of every emphasis span, in order.
func Emphasized(spans []Span) []string {
	var out []string
	for _, s := range spans {
		switch s.Kind {
		case SpanEmphasis:
			out = append(out, PlainText(s.Children))
		case SpanBreakableURL:
			out = append(out, Emphasized(s.Children)...)
		}
	}
	return out
}
