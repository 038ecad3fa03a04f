// Package chunker splits raw text into sentence-aligned chunks sized
// for embedding within the ContentVault service.
package chunker

import (
	"regexp"
	"strings"
)

// Protection patterns for abbreviations and other ambiguous periods.
// Each substitution produces a placeholder whose terminal punctuation is
// never followed by whitespace, so the sentence splitter cannot break on it.
var (
	usaPattern   = regexp.MustCompile(`(?i)U\.S\.A\.`)
	usPattern    = regexp.MustCompile(`(?i)U\.S\.`)
	aiPattern    = regexp.MustCompile(`(?i)A\.I\.`)
	timePattern  = regexp.MustCompile(`(\d+)\s*([AaPp]\.[Mm]\.)`)
	titlePattern = regexp.MustCompile(`([A-Z][a-z]{1,2}\.)\s+([A-Z][a-zA-Z]+)`)

	restoreTimePattern = regexp.MustCompile(`__([AaPp]\.[Mm]\.)__`)

	// A sentence boundary is a terminator followed by whitespace and an
	// uppercase letter. Go's regexp has no lookbehind, so the boundary
	// positions are located explicitly and the text is cut after the
	// terminator.
	boundaryPattern = regexp.MustCompile(`[.!?]\s+[A-Z]`)
)

// protectSpecialCases substitutes known multi-part abbreviations, time
// markers and "Title. Name" patterns with placeholder tokens. The USA
// pattern must run before the US pattern so the longer form wins.
func protectSpecialCases(text string) string {
	text = usaPattern.ReplaceAllString(text, "__USA__")
	text = usPattern.ReplaceAllString(text, "__US__")
	text = aiPattern.ReplaceAllString(text, "__AI__")
	text = timePattern.ReplaceAllString(text, "${1}__${2}__")
	text = titlePattern.ReplaceAllString(text, "${1}__NAME__${2}")
	return text
}

// restoreSpecialCases reverses every substitution made by protectSpecialCases.
func restoreSpecialCases(text string) string {
	text = strings.ReplaceAll(text, "__USA__", "U.S.A.")
	text = strings.ReplaceAll(text, "__US__", "U.S.")
	text = strings.ReplaceAll(text, "__AI__", "A.I.")
	text = restoreTimePattern.ReplaceAllString(text, " ${1}")
	text = strings.ReplaceAll(text, "__NAME__", " ")
	return text
}

// splitProtected cuts protected text at sentence boundaries. The cut lands
// immediately after the terminator; the matched uppercase letter starts the
// next fragment.
func splitProtected(text string) []string {
	matches := boundaryPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}

	fragments := make([]string, 0, len(matches)+1)
	prev := 0
	for _, m := range matches {
		// m[0] is the terminator, m[1]-1 the uppercase letter (ASCII,
		// one byte) that begins the next sentence.
		fragments = append(fragments, text[prev:m[0]+1])
		prev = m[1] - 1
	}
	fragments = append(fragments, text[prev:])
	return fragments
}

// Segment splits raw text into an ordered list of sentence-like units.
// Known abbreviations are protected from false breaks; a period inside a
// decimal number or an abbreviation outside the protected set may still
// split incorrectly, which is an accepted heuristic limitation. Fragments
// shorter than MinChunkLength are discarded. Unsegmentable text is never
// an error; worst case the whole input comes back as one sentence.
func (c *Chunker) Segment(text string) []string {
	protected := protectSpecialCases(text)

	var sentences []string
	for _, fragment := range splitProtected(protected) {
		fragment = strings.TrimSpace(fragment)
		if len(fragment) < c.opts.MinChunkLength {
			continue
		}
		sentences = append(sentences, restoreSpecialCases(fragment))
	}
	return sentences
}
