// Package protocol defines the values produced by a protocol analysis run
// and the error taxonomy shared by every pipeline stage.
//
// This package has no dependencies on other protocollens packages to avoid
// import cycles.
package protocol

// Criterion is one atomic inclusion statement with the confidence the
// model reported for it.
type Criterion struct {
	Text       string  `json:"text" yaml:"text"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Band classifies the criterion's confidence.
func (c Criterion) Band() ConfidenceBand {
	return Band(c.Confidence)
}

// ConfidenceBand is a coarse bucket over a confidence score.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

// Band buckets a confidence score: above 0.8 is high, above 0.5 is medium.
func Band(confidence float64) ConfidenceBand {
	switch {
	case confidence > 0.8:
		return BandHigh
	case confidence > 0.5:
		return BandMedium
	default:
		return BandLow
	}
}

// ClampConfidence bounds v to [0, 1].
func ClampConfidence(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// AnalysisResult is the only externally visible artifact of a run.
type AnalysisResult struct {
	SectionsDetected []string    `json:"sections_detected" yaml:"sections_detected"`
	Criteria         []Criterion `json:"criteria" yaml:"criteria"`
}

// SectionSummary records which conventional sections a run located. It is
// reported next to an AnalysisResult, never inside it.
type SectionSummary struct {
	HasInclusionSection bool `json:"has_inclusion_section" yaml:"has_inclusion_section"`
	HasExclusionSection bool `json:"has_exclusion_section" yaml:"has_exclusion_section"`
}

// NewAnalysisResult builds a result whose slices are never nil, so both
// fields always serialize as arrays.
func NewAnalysisResult(sections []string, criteria []Criterion) AnalysisResult {
	r := AnalysisResult{
		SectionsDetected: make([]string, len(sections)),
		Criteria:         make([]Criterion, len(criteria)),
	}
	copy(r.SectionsDetected, sections)
	copy(r.Criteria, criteria)
	return r
}
