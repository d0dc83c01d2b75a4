package render

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var classPattern = regexp.MustCompile(`^[a-z][a-z0-9 -]*$`)

// NewPolicy allows exactly the markup the widget renders: formatted answer
// blocks, the references list and the graph statistics panel. Links must
// be absolute http(s) URLs and open in a new tab without a referrer.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	p.AllowElements("strong", "p", "br", "h2", "h3", "h4", "h5", "div", "span", "ul", "li", "button", "a")
	p.AllowAttrs("class").Matching(classPattern).
		OnElements("p", "h2", "h3", "div", "span", "ul", "li", "strong", "button", "a")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^button$`)).OnElements("button")

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.RequireParseableURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnFullyQualifiedLinks(true)

	return p
}
