package formatting

import (
	"html"
	"strconv"
	"strings"
)

// CSS classes understood by the widget stylesheet.
const (
	ClassHeading         = "response-heading"
	ClassParagraph       = "response-paragraph"
	ClassNumberedItem    = "numbered-item"
	ClassItemNumber      = "item-number"
	ClassItemContent     = "item-content"
	ClassItemTitle       = "item-title"
	ClassItemDescription = "item-description"
	ClassBreakableText   = "breakable-text"
	ClassBreakableURL    = "breakable-url"
	ClassListNumber      = "list-number"
)

// RenderHTML renders an answer as an HTML fragment. All answer text is
// escaped; the only markup is the one produced here.
func RenderHTML(a Answer) string {
	var b strings.Builder
	for _, block := range a.Blocks {
		writeBlock(&b, block)
	}
	return b.String()
}

// FormatHTML is Format followed by RenderHTML.
func FormatHTML(raw string) string {
	return RenderHTML(Format(raw))
}

func writeBlock(b *strings.Builder, block Block) {
	switch block.Kind {
	case BlockHeading:
		tag := "h" + strconv.Itoa(block.Level)
		b.WriteString(`<` + tag + ` class="` + ClassHeading + `">`)
		b.WriteString(html.EscapeString(block.Text))
		b.WriteString(`</` + tag + `>`)

	case BlockNumberedItem:
		b.WriteString(`<div class="` + ClassNumberedItem + `">`)
		b.WriteString(`<span class="` + ClassItemNumber + `">`)
		b.WriteString(html.EscapeString(block.Number))
		b.WriteString(`</span><div class="` + ClassItemContent + `">`)
		if block.Title != "" {
			b.WriteString(`<strong class="` + ClassItemTitle + `">`)
			b.WriteString(html.EscapeString(block.Title))
			b.WriteString(`</strong>`)
			if len(block.Spans) > 0 {
				b.WriteString(`<span class="` + ClassItemDescription + `">`)
				writeSpans(b, block.Spans)
				b.WriteString(`</span>`)
			}
		} else {
			writeSpans(b, block.Spans)
		}
		b.WriteString(`</div></div>`)

	default:
		b.WriteString(`<p class="` + ClassParagraph + `">`)
		writeSpans(b, block.Spans)
		b.WriteString(`</p>`)
	}
}

func writeSpans(b *strings.Builder, spans []Span) {
	for _, s := range spans {
		switch s.Kind {
		case SpanEmphasis:
			b.WriteString(`<strong>`)
			writeSpans(b, s.Children)
			b.WriteString(`</strong>`)
		case SpanBreakable:
			b.WriteString(`<span class="` + ClassBreakableText + `">`)
			b.WriteString(html.EscapeString(s.Text))
			b.WriteString(`</span>`)
		case SpanBreakableURL:
			b.WriteString(`<span class="` + ClassBreakableURL + `">`)
			writeSpans(b, s.Children)
			b.WriteString(`</span>`)
		case SpanLineBreak:
			b.WriteString(`<br>`)
		case SpanListNumber:
			b.WriteString(`<span class="` + ClassListNumber + `">`)
			b.WriteString(html.EscapeString(s.Text))
			b.WriteString(`</span>`)
		default:
			b.WriteString(html.EscapeString(s.Text))
		}
	}
}
