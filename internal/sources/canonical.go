package sources

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	rutSuffixPattern   = regexp.MustCompile(`&rut=.*$`)
	embeddedURLPattern = regexp.MustCompile(`https?://[^\s&]+`)
)

// rewriteRules undo search-engine redirect wrappers and leftover
// double-encoding. Order matters.
var rewriteRules = []func(string) string{
	replaceFirst("?uddg=https%3A%2F%2F", ""),
	func(s string) string { return rutSuffixPattern.ReplaceAllLiteralString(s, "") },
	replaceFirst("?uddg=", ""),
	replaceAll("%3A", ":"),
	replaceAll("%2F", "/"),
	replaceAll("%2E", "."),
	replaceAll("%3F", "?"),
	replaceAll("%3D", "="),
	replaceAll("%26", "&"),
}

func replaceFirst(old, repl string) func(string) string {
	return func(s string) string { return strings.Replace(s, old, repl, 1) }
}

func replaceAll(old, repl string) func(string) string {
	return func(s string) string { return strings.ReplaceAll(s, old, repl) }
}

// CanonicalURL decodes raw once, strips redirect wrappers, extracts the first
// embedded http(s) URL and makes sure the result carries a scheme. A string
// with a broken percent escape is used as is.
func CanonicalURL(raw string) string {
	if raw == "" {
		return ""
	}

	s := raw
	if decoded, err := url.PathUnescape(raw); err == nil {
		s = decoded
	}

	for _, rule := range rewriteRules {
		s = rule(s)
	}

	if m := embeddedURLPattern.FindString(s); m != "" {
		s = m
	}

	if !strings.HasPrefix(s, "http") {
		s = "https://" + s
	}
	return s
}
