// Package text provides HTML cleaning for ticket thread bodies and canned
// response contents before they are handed to the AI pipeline.
package text

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var (
	tagRegex     = regexp.MustCompile(`<[^>]*>`)
	brRegex      = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>|</li>`)
	scriptsRegex = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
)

// StripTags removes HTML markup from s and decodes HTML entities, keeping
// only the readable text. Block-level closers and <br> become spaces so
// words from adjacent elements don't run together.
func StripTags(s string) string {
	s = scriptsRegex.ReplaceAllString(s, " ")
	s = brRegex.ReplaceAllString(s, " ")
	s = tagRegex.ReplaceAllString(s, "")

	return html.UnescapeString(s)
}

// CollapseWhitespace replaces every run of whitespace in s with a single
// space and trims the ends.
func CollapseWhitespace(s string) string {
	var b strings.Builder

	var space bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteRune(' ')

				space = true
			}
		} else {
			b.WriteRune(r)

			space = false
		}
	}

	return strings.TrimSpace(b.String())
}

// Clean converts an HTML fragment into compact plain text: tags stripped,
// entities decoded, whitespace collapsed.
func Clean(s string) string {
	return CollapseWhitespace(StripTags(s))
}
