package document

import (
	"regexp"
	"strings"
)

// TruncationNotice is appended to text cut by Truncate.
const TruncationNotice = "\n\n[... Document truncated due to length ...]"

// charsPerToken is the rough size of a model token in characters.
const charsPerToken = 4

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	excessSpaces   = regexp.MustCompile(` {2,}`)
	hyphenBreak    = regexp.MustCompile(`([\p{L}\p{N}_]+)-\n([\p{L}\p{N}_]+)`)
	pageMarker     = regexp.MustCompile(`(?i)page \d+ of \d+`)
	confidential   = regexp.MustCompile(`(?i)confidential[^\n]*`)
	wordPattern    = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	headingPattern = regexp.MustCompile(`(?im)^[ \t]*(\d+(?:\.\d+)*\.?)[ \t]+(inclusion criteria|exclusion criteria|eligibility criteria|study objectives?|study design|endpoints?|outcome measures?|patient selection|schedule of assessments?|visit schedule)\b`)
)

// Clean normalizes extracted text: it collapses blank lines and runs of
// spaces, rejoins words hyphenated across a line break, and drops page
// markers and confidentiality footers.
func Clean(text string) string {
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	text = excessSpaces.ReplaceAllString(text, " ")
	text = hyphenBreak.ReplaceAllString(text, "$1$2")
	text = pageMarker.ReplaceAllString(text, "")
	text = confidential.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Truncate limits text to roughly maxTokens model tokens, cutting on a rune
// boundary and appending TruncationNotice. It reports whether it cut.
func Truncate(text string, maxTokens int) (string, bool) {
	if maxTokens <= 0 {
		return text, false
	}
	maxChars := maxTokens * charsPerToken
	if len(text) <= maxChars {
		return text, false
	}

	count := 0
	for i := range text {
		if count == maxChars {
			return text[:i] + TruncationNotice, true
		}
		count++
	}
	return text, false
}

// WordCount counts runs of letters, digits and underscores.
func WordCount(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// DetectHeadings lists numbered protocol headings ("4.1 INCLUSION
// CRITERIA") in document order. It is a local outline for display and
// plays no part in segmentation.
func DetectHeadings(text string) []string {
	matches := headingPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1]+" "+strings.ToUpper(m[2]))
	}
	return out
}
