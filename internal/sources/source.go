package sources

import (
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// Label limits
const (
	MaxPathLabelLength = 30 // path segments this long or longer are left out of the label
	MaxFallbackLength  = 50 // fallback labels longer than this are truncated
	fallbackKeep       = 47
)

var wordStartPattern = regexp.MustCompile(`\b\w`)

// Source is a cited link in the form shown to users.
type Source struct {
	CanonicalURL string `json:"canonical_url"`
	DisplayLabel string `json:"display_label"`
}

// Normalizer turns raw source strings into Sources. The brand table can be
// replaced at any time; Normalize is safe for concurrent use.
type Normalizer struct {
	brands atomic.Pointer[[]Brand]
}

// NewNormalizer returns a Normalizer using the given brand table. A nil table
// means DefaultBrands.
func NewNormalizer(brands []Brand) *Normalizer {
	n := &Normalizer{}
	if brands == nil {
		brands = DefaultBrands()
	}
	n.SetBrands(brands)
	return n
}

// SetBrands swaps the brand table.
func (n *Normalizer) SetBrands(brands []Brand) {
	cp := make([]Brand, len(brands))
	copy(cp, brands)
	n.brands.Store(&cp)
}

// Brands returns a copy of the current brand table.
func (n *Normalizer) Brands() []Brand {
	cur := *n.brands.Load()
	cp := make([]Brand, len(cur))
	copy(cp, cur)
	return cp
}

// Normalize never fails. Empty input gives an empty Source; anything that
// does not parse as a URL with a host gets a truncated copy of the canonical
// URL as its label.
func (n *Normalizer) Normalize(raw string) Source {
	if raw == "" {
		return Source{}
	}
	canonical := CanonicalURL(raw)
	return Source{
		CanonicalURL: canonical,
		DisplayLabel: n.label(canonical),
	}
}

func (n *Normalizer) label(canonical string) string {
	u, err := url.Parse(canonical)
	if err != nil || u.Hostname() == "" {
		return fallbackLabel(canonical)
	}

	host := strings.ToLower(u.Hostname())
	if trimmed := strings.TrimPrefix(host, "www."); trimmed != "" {
		host = trimmed
	}
	name := host
	if b, ok := matchBrand(*n.brands.Load(), host); ok {
		name = b.Label
	}

	if seg := lastPathSegment(u.EscapedPath()); seg != "" && utf8.RuneCountInString(seg) < MaxPathLabelLength {
		name += " - " + titleCase(strings.ReplaceAll(seg, "-", " "))
	}
	return name
}

func lastPathSegment(path string) string {
	parts := strings.Split(path, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := parts[i]; p != "" && p != "index.html" {
			return p
		}
	}
	return ""
}

func titleCase(s string) string {
	return wordStartPattern.ReplaceAllStringFunc(s, strings.ToUpper)
}

func fallbackLabel(s string) string {
	if utf8.RuneCountInString(s) <= MaxFallbackLength {
		return s
	}
	return string([]rune(s)[:fallbackKeep]) + "..."
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize normalizes raw with the default brand table.
func Normalize(raw string) Source {
	return defaultNormalizer.Normalize(raw)
}
