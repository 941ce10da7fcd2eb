package pipeline

import (
	"regexp"
	"strings"

	"github.com/jackzampolin/protocollens/internal/protocol"
)

var (
	// Dotted numbers ("4.1", "4.1."), a single letter closed by punctuation
	// ("a)"), and section signs.
	leadingEnumeration = regexp.MustCompile(`^(?:§+\s*)?(?:\d+(?:\.\d+)*\.?|[a-z][.)\]:])\s*`)
	// A letter run that may be a roman numeral, with what follows it.
	leadingRoman       = regexp.MustCompile(`^([ivxlcdm]+)([.)\]:]|\s)\s*`)
	wellFormedRoman    = regexp.MustCompile(`^m{0,3}(?:cm|cd|d?c{0,3})(?:xc|xl|l?x{0,3})(?:ix|iv|v?i{0,3})$`)
	leadingPunctuation = regexp.MustCompile(`^[\p{P}\p{S}\s]+`)
	nonAlphanumeric    = regexp.MustCompile(`[^\p{L}\p{N}]+`)
)

// maxSpacedRoman bounds numerals closed only by a space, so words such as
// "mild" or "civil" are never read as numbering.
const maxSpacedRoman = 4

// stripRoman removes a leading roman numeral. It must be well formed, and
// unless punctuation closes it, short.
func stripRoman(k string) string {
	m := leadingRoman.FindStringSubmatch(k)
	if m == nil || !wellFormedRoman.MatchString(m[1]) {
		return k
	}
	if strings.TrimSpace(m[2]) == "" && len(m[1]) > maxSpacedRoman {
		return k
	}
	return k[len(m[0]):]
}

// NormalizeKey reduces a section name to its comparable form: lower case,
// without leading numbering or punctuation, and with every character that
// is not a letter or digit removed.
func NormalizeKey(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	for {
		next := leadingPunctuation.ReplaceAllString(k, "")
		next = leadingEnumeration.ReplaceAllString(next, "")
		next = stripRoman(next)
		if next == k {
			break
		}
		k = next
	}
	return nonAlphanumeric.ReplaceAllString(k, "")
}

// SectionMatcher locates a conventionally named section among the names
// the model produced.
type SectionMatcher struct {
	Canonical string          // Preferred key, e.g. "inclusion_criteria"
	Synonyms  map[string]bool // Normalized names that match exactly
	Suffix    string          // Normalized names ending in Suffix also match
	Combined  map[string]bool // Joint sections, used only when no dedicated one exists
}

// combinedCriteria are normalized names of a single section holding both
// inclusion and exclusion rules. Both matchers accept them.
var combinedCriteria = map[string]bool{
	"inclusionexclusioncriteria":    true,
	"inclusionandexclusioncriteria": true,
	"inclusionorexclusioncriteria":  true,
	"inclusionexclusion":            true,
	"inclusionandexclusion":         true,
	"inclusionexclusioncriterion":   true,
}

// InclusionMatcher finds the inclusion criteria section. "Eligibility" is
// deliberately absent: it usually covers both inclusion and exclusion.
var InclusionMatcher = SectionMatcher{
	Canonical: "inclusion_criteria",
	Synonyms: map[string]bool{
		"inclusioncriteria":    true,
		"inclusion":            true,
		"inclusioncriterion":   true,
		"criteriaforinclusion": true,
	},
	Suffix:   "inclusioncriteria",
	Combined: combinedCriteria,
}

// ExclusionMatcher finds the exclusion criteria section.
var ExclusionMatcher = SectionMatcher{
	Canonical: "exclusion_criteria",
	Synonyms: map[string]bool{
		"exclusioncriteria":    true,
		"exclusion":            true,
		"exclusioncriterion":   true,
		"criteriaforexclusion": true,
	},
	Suffix:   "exclusioncriteria",
	Combined: combinedCriteria,
}

// Matches reports whether name refers to the matcher's section, either on
// its own or as part of a combined inclusion/exclusion section.
func (m SectionMatcher) Matches(name string) bool {
	n := NormalizeKey(name)
	return m.dedicated(n) || m.Combined[n]
}

func (m SectionMatcher) dedicated(n string) bool {
	if n == "" || m.Combined[n] {
		return false
	}
	return m.Synonyms[n] || (m.Suffix != "" && strings.HasSuffix(n, m.Suffix))
}

// Find returns the matching section. Candidates are considered in upstream
// order with the canonical key first and combined sections last; the first
// with non-blank text wins, falling back to the first candidate when all
// are blank.
func (m SectionMatcher) Find(sections *protocol.SectionMap) (name, text string, ok bool) {
	var candidates, combined []string
	for _, n := range sections.Names() {
		norm := NormalizeKey(n)
		switch {
		case n == m.Canonical && m.dedicated(norm):
			candidates = append([]string{n}, candidates...)
		case m.dedicated(norm):
			candidates = append(candidates, n)
		case m.Combined[norm]:
			combined = append(combined, n)
		}
	}
	candidates = append(candidates, combined...)
	if len(candidates) == 0 {
		return "", "", false
	}
	for _, n := range candidates {
		t, _ := sections.Get(n)
		if strings.TrimSpace(t) != "" {
			return n, t, true
		}
	}
	t, _ := sections.Get(candidates[0])
	return candidates[0], t, true
}
