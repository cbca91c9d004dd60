package synthesis

import (
	"regexp"
	"strings"
)

// RefinementLabel marks content appended by the enhancement loop for a
// section that no contributor filled.
const RefinementLabel = "— needs refinement —"

// placeholderPhrases is the fixed marker lexicon for content that is not
// actually implemented. Matching is case-insensitive.
var placeholderPhrases = []string{
	"add implementation here",
	"implementation goes here",
	"your code here",
	"not implemented",
	"placeholder",
}

// placeholderWordRe matches marker words that must stand alone.
var placeholderWordRe = regexp.MustCompile(`\b(TODO|FIXME)\b`)

// ellipsisLineRe matches a line consisting of an ellipsis, optionally behind
// a comment leader. Inline spreads and variadics do not match.
var ellipsisLineRe = regexp.MustCompile(`(?m)^\s*(?://|#|--|/\*)?\s*(\.\.\.|…)\s*(?:\*/)?\s*$`)

// ambiguityRe matches hedging language that lowers clarity.
var ambiguityRe = regexp.MustCompile(`(?i)\b(TBD|TBC|maybe|perhaps|possibly|probably|unclear|unsure|somehow)\b`)

// ContainsPlaceholder reports whether text matches the marker lexicon.
func ContainsPlaceholder(text string) bool {
	return placeholderMarker(text) != ""
}

// placeholderMarker returns the first marker found in text, or "".
func placeholderMarker(text string) string {
	if m := placeholderWordRe.FindString(text); m != "" {
		return m
	}
	if ellipsisLineRe.MatchString(text) {
		return "..."
	}
	lower := strings.ToLower(text)
	for _, p := range placeholderPhrases {
		if strings.Contains(lower, p) {
			return p
		}
	}
	return ""
}

// isPlaceholderCode reports whether a code sample is a stub.
func isPlaceholderCode(content string) bool {
	if strings.TrimSpace(content) == "" {
		return true
	}
	return ContainsPlaceholder(content)
}

// countAmbiguity counts hedging markers in text.
func countAmbiguity(text string) int {
	return len(ambiguityRe.FindAllStringIndex(text, -1))
}
