package fetch

import (
	"regexp"
	"strings"
	"unicode"
)

// maxLineLen caps a single narration line; longer comments are cut at a word
// boundary so the TTS stage never receives a wall of text.
const maxLineLen = 400

var (
	boldRe    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe  = regexp.MustCompile(`\*(.*?)\*`)
	strikeRe  = regexp.MustCompile(`~~(.*?)~~`)
	urlRe     = regexp.MustCompile(`https?://[^\s)\]]+`)
	mentionRe = regexp.MustCompile(`/[ur]/[A-Za-z0-9_-]+`)
)

// Clean normalizes reddit text for narration: markdown markers, links and
// user/subreddit mentions go away, HTML entities are unescaped, control
// characters are stripped, whitespace is collapsed, and the result is capped
// at maxLineLen.
func Clean(text string) string {
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = strikeRe.ReplaceAllString(text, "$1")
	text = urlRe.ReplaceAllString(text, "")
	text = mentionRe.ReplaceAllString(text, "")

	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&#x200B;", "")

	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	text = strings.Join(strings.Fields(text), " ")
	return capLine(text, maxLineLen)
}

// capLine truncates s to at most n bytes, cutting at the last word boundary.
func capLine(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " .,;:") + "…"
}
