package transform

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Word budgets for free-text fields.
const (
	longWordLimit  = 200
	shortWordLimit = 100
)

var nbspReplacer = strings.NewReplacer(
	"&nbsp;", " ",
	"& nbsp;", " ",
	"& Nbsp;", " ",
	"\u00a0", " ",
)

// sanitize strips HTML markup and collapses whitespace, including the
// non-breaking spaces the parser decodes from entities.
func sanitize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	s = nbspReplacer.Replace(s)

	text := s
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}

// truncateWords keeps at most limit whitespace separated words.
func truncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if len(words) > limit {
		words = words[:limit]
	}
	return strings.Join(words, " ")
}

// uniqueJoin drops empty values and repeats, keeping first occurrences, and
// joins the rest with ", ".
func uniqueJoin(values []string) string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return strings.Join(out, ", ")
}
