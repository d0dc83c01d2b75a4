package formatting

import "regexp"

// MinBreakableRun is the shortest alphanumeric run that gets a wrap opportunity.
const MinBreakableRun = 15

var (
	emphasisPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	longRunPattern    = regexp.MustCompile(`[a-zA-Z0-9]{15,}`)
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	listNumberPattern = regexp.MustCompile(`\d+\.\s`)
)

// inlineOptions selects which inline rules apply to a piece of text.
// Wrapping of long runs and URLs always applies.
type inlineOptions struct {
	emphasis    bool
	listNumbers bool
}

var (
	paragraphInline   = inlineOptions{emphasis: true}
	descriptionInline = inlineOptions{}
	simpleInline      = inlineOptions{emphasis: true, listNumbers: true}
)

// inline converts one line of text into spans.
func inline(text string, opts inlineOptions) []Span {
	if text == "" {
		return nil
	}
	if !opts.emphasis {
		return segment(text, opts)
	}

	var out []Span
	pos := 0
	for _, m := range emphasisPattern.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, segment(text[pos:m[0]], opts)...)
		out = append(out, Span{Kind: SpanEmphasis, Children: segment(text[m[2]:m[3]], opts)})
		pos = m[1]
	}
	return append(out, segment(text[pos:], opts)...)
}

// segment handles text that contains no emphasis markers.
func segment(text string, opts inlineOptions) []Span {
	if text == "" {
		return nil
	}
	if !opts.listNumbers {
		return wrapLongText(text)
	}

	var out []Span
	pos := 0
	for _, m := range listNumberPattern.FindAllStringIndex(text, -1) {
		out = append(out, wrapLongText(text[pos:m[0]])...)
		out = append(out,
			Span{Kind: SpanLineBreak},
			Span{Kind: SpanLineBreak},
			Span{Kind: SpanListNumber, Text: text[m[0]:m[1]]},
		)
		pos = m[1]
	}
	return append(out, wrapLongText(text[pos:])...)
}

// wrapLongText marks URLs and long alphanumeric runs as breakable. Long runs
// are found first; a URL span is then laid over them, so a long run inside a
// URL ends up nested in the URL span. A scheme that starts in the middle of a
// long run is part of that run, not a URL.
func wrapLongText(text string) []Span {
	if text == "" {
		return nil
	}
	runs := longRunPattern.FindAllStringIndex(text, -1)

	var out []Span
	pos := 0
	for _, m := range urlPattern.FindAllStringIndex(text, -1) {
		if insideRun(runs, m[0]) {
			continue
		}
		out = append(out, wrapRuns(text[pos:m[0]])...)
		out = append(out, Span{Kind: SpanBreakableURL, Children: wrapRuns(text[m[0]:m[1]])})
		pos = m[1]
	}
	return append(out, wrapRuns(text[pos:])...)
}

func insideRun(runs [][]int, at int) bool {
	for _, r := range runs {
		if r[0] < at && at < r[1] {
			return true
		}
	}
	return false
}

func wrapRuns(text string) []Span {
	if text == "" {
		return nil
	}
	var out []Span
	pos := 0
	for _, m := range longRunPattern.FindAllStringIndex(text, -1) {
		if m[0] > pos {
			out = append(out, Span{Kind: SpanText, Text: text[pos:m[0]]})
		}
		out = append(out, Span{Kind: SpanBreakable, Text: text[m[0]:m[1]]})
		pos = m[1]
	}
	if pos < len(text) {
		out = append(out, Span{Kind: SpanText, Text: text[pos:]})
	}
	return out
}
