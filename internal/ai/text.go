package ai

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// maxPromptField bounds any single free-text field placed in a prompt.
const maxPromptField = 8000

// TruncateText cuts a string to max length, appending ellipsis if truncated.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen > 3 {
		return cutAtRune(text, maxLen-3) + "..."
	}
	return cutAtRune(text, maxLen)
}

// cutAtRune returns at most the first n bytes of s without splitting a rune.
func cutAtRune(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// HTMLToText converts HTML to plain text, collapsing whitespace. Grant
// descriptions often arrive as HTML fragments.
func HTMLToText(html string) string {
	if !strings.Contains(html, "<") {
		return strings.Join(strings.Fields(html), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style").Remove()
	doc.Find("br, p, li, div").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// promptText prepares optional free text for a prompt.
func promptText(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "Not provided"
	}
	return TruncateText(HTMLToText(*s), maxPromptField)
}
