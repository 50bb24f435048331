package indexer

import (
	"sort"
	"strings"
	"unicode"
)

// stopWords are dropped from the search representation. The external
// search index owns stemming and ranking; this list only keeps obvious
// noise out of the input it receives.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "have": {}, "this": {},
	"that": {}, "with": {}, "from": {}, "they": {}, "will": {}, "would": {},
	"there": {}, "their": {}, "what": {}, "which": {}, "when": {}, "your": {},
	"how": {}, "each": {}, "she": {}, "them": {}, "then": {}, "than": {},
	"its": {}, "into": {}, "more": {}, "some": {}, "such": {}, "these": {},
	"also": {}, "been": {}, "were": {}, "does": {}, "using": {}, "used": {},
	"use": {},
}

const minTokenLen = 3

// SearchText normalizes extracted text into the token string handed to
// the search collaborator: lowercased, punctuation stripped except
// hyphens, whitespace collapsed, stop words and short tokens removed.
func SearchText(text string) string {
	lowered := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return ' '
	}, lowered)

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		tok = strings.Trim(tok, "-")
		if len(tok) < minTokenLen {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return strings.Join(tokens, " ")
}

// contentTypePatterns map keyword patterns to facet tags, most specific
// first.
var contentTypePatterns = []struct {
	tag      string
	keywords []string
}{
	{"getting-started", []string{"getting-started", "getting started", "quickstart", "quick-start"}},
	{"tutorial", []string{"tutorial"}},
	{"api", []string{"api", "openapi", "swagger"}},
	{"reference", []string{"reference"}},
	{"sample", []string{"sample", "example"}},
	{"guide", []string{"guide", "how-to", "howto"}},
}

// ClassifyContent tags a document with a coarse content-type facet
// based on keywords in its URL and title. The tag is a filter aid only;
// nothing correctness-critical hangs off it.
func ClassifyContent(url, title string) string {
	haystack := strings.ToLower(url + " " + title)
	for _, p := range contentTypePatterns {
		for _, kw := range p.keywords {
			if strings.Contains(haystack, kw) {
				return p.tag
			}
		}
	}
	return "documentation"
}

// KeyPhrases returns the max most frequent normalized tokens, ties
// broken alphabetically.
func KeyPhrases(text string, max int) []string {
	if max <= 0 {
		return nil
	}
	counts := map[string]int{}
	for _, tok := range strings.Fields(SearchText(text)) {
		counts[tok]++
	}
	if len(counts) == 0 {
		return nil
	}
	phrases := make([]string, 0, len(counts))
	for tok := range counts {
		phrases = append(phrases, tok)
	}
	sort.Slice(phrases, func(i, j int) bool {
		if counts[phrases[i]] != counts[phrases[j]] {
			return counts[phrases[i]] > counts[phrases[j]]
		}
		return phrases[i] < phrases[j]
	})
	if len(phrases) > max {
		phrases = phrases[:max]
	}
	return phrases
}

// ReadingMinutes estimates reading time at 200 words per minute.
func ReadingMinutes(wordCount int) int {
	if wordCount <= 0 {
		return 0
	}
	return (wordCount + 199) / 200
}
