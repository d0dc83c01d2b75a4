package formatting

import (
	"regexp"
	"strings"
)

var (
	numberedLinePattern  = regexp.MustCompile(`^\d+\.\s`)
	numberedSplitPattern = regexp.MustCompile(`^(\d+\.\s)(.*)$`)
	titledItemPattern    = regexp.MustCompile(`^(\*\*[^*]+\*\*:?)\s*(.*)$`)
	inlineHeadingPattern = regexp.MustCompile(`(#{2,}) (.*?)(?:\n|$)`)
)

// Format converts a raw assistant answer into display blocks.
//
// Lines are read one at a time: "### " and "## " start headings, "N. " starts
// a numbered item (optionally with a bold title), anything else is a
// paragraph. When no heading or numbered item turns up, the answer is laid
// out again with the simple rules: headings wherever a marker appears,
// blank-line separated paragraphs, newlines as line breaks and inline list
// numbers. Format never fails; text that is
// empty after trimming yields no blocks.
func Format(raw string) Answer {
	blocks := structuredBlocks(raw)
	if len(blocks) == 0 {
		return Answer{Blocks: []Block{}}
	}
	if hasStructure(blocks) {
		return Answer{Blocks: blocks}
	}
	if simple := simpleBlocks(raw); len(simple) > 0 {
		return Answer{Blocks: simple, Simple: true}
	}
	return Answer{Blocks: blocks}
}

func structuredBlocks(raw string) []Block {
	var blocks []Block
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "### "):
			blocks = append(blocks, heading(3, strings.TrimPrefix(line, "### ")))
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, heading(2, strings.TrimPrefix(line, "## ")))
		case numberedLinePattern.MatchString(line):
			if item, ok := numberedItem(line); ok {
				blocks = append(blocks, item)
			} else {
				blocks = append(blocks, paragraph(line))
			}
		default:
			blocks = append(blocks, paragraph(line))
		}
	}
	return blocks
}

func heading(level int, text string) Block {
	return Block{Kind: BlockHeading, Level: level, Text: strings.ReplaceAll(text, "**", "")}
}

func paragraph(line string) Block {
	return Block{Kind: BlockParagraph, Spans: inline(line, paragraphInline)}
}

// numberedItem splits "N. content". ok is false when the line cannot be
// split, in which case the caller keeps it as a paragraph.
func numberedItem(line string) (Block, bool) {
	m := numberedSplitPattern.FindStringSubmatch(line)
	if m == nil {
		return Block{}, false
	}
	number, content := m[1], m[2]

	if t := titledItemPattern.FindStringSubmatch(content); t != nil {
		return Block{
			Kind:   BlockNumberedItem,
			Number: number,
			Title:  strings.ReplaceAll(t[1], "**", ""),
			Spans:  inline(t[2], descriptionInline),
		}, true
	}
	return Block{
		Kind:   BlockNumberedItem,
		Number: number,
		Spans:  inline(content, descriptionInline),
	}, true
}

func hasStructure(blocks []Block) bool {
	for _, b := range blocks {
		if b.Kind == BlockHeading || b.Kind == BlockNumberedItem {
			return true
		}
	}
	return false
}

// simpleBlocks lays out text that has no headings or numbered items at the
// start of a line. A "## " or "### " marker anywhere else still opens a
// heading running to the end of its line; longer runs of '#' count as level 3.
func simpleBlocks(raw string) []Block {
	var blocks []Block
	for _, chunk := range strings.Split(raw, "\n\n") {
		pos := 0
		for _, m := range inlineHeadingPattern.FindAllStringSubmatchIndex(chunk, -1) {
			blocks = appendSimpleParagraph(blocks, chunk[pos:m[0]])
			level := 2
			if m[3]-m[2] >= 3 {
				level = 3
			}
			if text := strings.TrimSpace(chunk[m[4]:m[5]]); text != "" {
				blocks = append(blocks, heading(level, text))
			}
			pos = m[1]
		}
		blocks = appendSimpleParagraph(blocks, chunk[pos:])
	}
	return blocks
}

func appendSimpleParagraph(blocks []Block, text string) []Block {
	text = strings.TrimSpace(text)
	if text == "" {
		return blocks
	}

	var spans []Span
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			spans = append(spans, Span{Kind: SpanLineBreak})
		}
		spans = append(spans, inline(line, simpleInline)...)
	}

	spans = trimLineBreaks(spans)
	if len(spans) == 0 {
		return blocks
	}
	return append(blocks, Block{Kind: BlockParagraph, Spans: spans})
}

func trimLineBreaks(spans []Span) []Span {
	for len(spans) > 0 && spans[0].Kind == SpanLineBreak {
		spans = spans[1:]
	}
	for len(spans) > 0 && spans[len(spans)-1].Kind == SpanLineBreak {
		spans = spans[:len(spans)-1]
	}
	return spans
}
