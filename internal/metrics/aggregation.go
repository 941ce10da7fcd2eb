package metrics

import (
	"sort"
)

// Summary provides a summary of metrics for a filter.
type Summary struct {
	Count          int     `json:"count" yaml:"count"`
	SuccessCount   int     `json:"success_count" yaml:"success_count"`
	ErrorCount     int     `json:"error_count" yaml:"error_count"`
	TotalTokens    int     `json:"total_tokens" yaml:"total_tokens"`
	AvgTokens      float64 `json:"avg_tokens" yaml:"avg_tokens"`
	AvgTimeSeconds float64 `json:"avg_time_seconds" yaml:"avg_time_seconds"`
}

// Summary returns a summary of metrics matching the filter.
func (r *Recorder) Summary(f Filter) Summary {
	return summarize(r.List(f, 0))
}

// SummaryByStage groups the filtered metrics by stage.
func (r *Recorder) SummaryByStage(f Filter) map[string]Summary {
	byStage := make(map[string][]Metric)
	for _, m := range r.List(f, 0) {
		byStage[m.Stage] = append(byStage[m.Stage], m)
	}
	out := make(map[string]Summary, len(byStage))
	for stage, ms := range byStage {
		out[stage] = summarize(ms)
	}
	return out
}

func summarize(metrics []Metric) Summary {
	s := Summary{Count: len(metrics)}
	var seconds float64
	for _, m := range metrics {
		s.TotalTokens += m.TotalTokens
		seconds += m.LatencySeconds
		if m.Success {
			s.SuccessCount++
		} else {
			s.ErrorCount++
		}
	}
	if s.Count > 0 {
		s.AvgTokens = float64(s.TotalTokens) / float64(s.Count)
		s.AvgTimeSeconds = seconds / float64(s.Count)
	}
	return s
}

// DetailedStats provides latency percentiles and token breakdowns.
type DetailedStats struct {
	// Basic counts
	Count        int `json:"count" yaml:"count"`
	SuccessCount int `json:"success_count" yaml:"success_count"`
	ErrorCount   int `json:"error_count" yaml:"error_count"`

	// Latency percentiles (seconds)
	LatencyP50 float64 `json:"latency_p50" yaml:"latency_p50"`
	LatencyP95 float64 `json:"latency_p95" yaml:"latency_p95"`
	LatencyP99 float64 `json:"latency_p99" yaml:"latency_p99"`
	LatencyAvg float64 `json:"latency_avg" yaml:"latency_avg"`
	LatencyMin float64 `json:"latency_min" yaml:"latency_min"`
	LatencyMax float64 `json:"latency_max" yaml:"latency_max"`

	// Token stats
	TotalPromptTokens     int     `json:"total_prompt_tokens" yaml:"total_prompt_tokens"`
	TotalCompletionTokens int     `json:"total_completion_tokens" yaml:"total_completion_tokens"`
	TotalTokens           int     `json:"total_tokens" yaml:"total_tokens"`
	AvgPromptTokens       float64 `json:"avg_prompt_tokens" yaml:"avg_prompt_tokens"`
	AvgCompletionTokens   float64 `json:"avg_completion_tokens" yaml:"avg_completion_tokens"`

	// Failures by upstream kind
	Errors map[string]int `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// DetailedStats returns latency percentiles and token totals for metrics
// matching the filter. Latency is measured on successful calls only.
func (r *Recorder) DetailedStats(f Filter) DetailedStats {
	metrics := r.List(f, 0)
	stats := DetailedStats{Count: len(metrics)}
	if len(metrics) == 0 {
		return stats
	}

	var latencies []float64
	for _, m := range metrics {
		if m.Success {
			stats.SuccessCount++
			latencies = append(latencies, m.LatencySeconds)
		} else {
			stats.ErrorCount++
			if stats.Errors == nil {
				stats.Errors = make(map[string]int)
			}
			stats.Errors[m.ErrorType]++
		}
		stats.TotalPromptTokens += m.PromptTokens
		stats.TotalCompletionTokens += m.CompletionTokens
		stats.TotalTokens += m.TotalTokens
	}

	count := float64(stats.Count)
	stats.AvgPromptTokens = float64(stats.TotalPromptTokens) / count
	stats.AvgCompletionTokens = float64(stats.TotalCompletionTokens) / count

	if len(latencies) > 0 {
		sort.Float64s(latencies)

		stats.LatencyMin = latencies[0]
		stats.LatencyMax = latencies[len(latencies)-1]

		var sum float64
		for _, l := range latencies {
			sum += l
		}
		stats.LatencyAvg = sum / float64(len(latencies))

		stats.LatencyP50 = percentile(latencies, 50)
		stats.LatencyP95 = percentile(latencies, 95)
		stats.LatencyP99 = percentile(latencies, 99)
	}

	return stats
}

// percentile calculates the p-th percentile from a sorted slice of values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	// Calculate the index
	n := float64(len(sorted))
	idx := (p / 100.0) * (n - 1)

	// Interpolate between floor and ceil indices
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	// Linear interpolation
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
