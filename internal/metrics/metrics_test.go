package metrics

import (
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecorderRingEvictsOldest(t *testing.T) {
	r := NewRecorder(3)
	for _, stage := range []string{"a", "b", "c", "d"} {
		r.Record(Metric{Stage: stage, Success: true})
	}

	var got []string
	for _, m := range r.List(Filter{}, 0) {
		got = append(got, m.Stage)
	}
	if diff := cmp.Diff([]string{"d", "c", "b"}, got); diff != "" {
		t.Fatalf("List() mismatch (-want +got):\n%s", diff)
	}
	if r.Total() != 4 {
		t.Fatalf("expected total 4, got %d", r.Total())
	}
	if got := r.List(Filter{}, 1); len(got) != 1 || got[0].Stage != "d" {
		t.Fatalf("limit not applied: %+v", got)
	}
}

func TestRecorderFilter(t *testing.T) {
	r := NewRecorder(10)
	r.Record(Metric{Stage: "segmentation", Provider: "flash", Success: true})
	r.Record(Metric{Stage: "inclusion_criteria", Provider: "flash", Success: false, ErrorType: "timeout"})
	r.Record(Metric{Stage: "segmentation", Provider: "pro", Success: true})

	failed := false
	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 3},
		{"stage", Filter{Stage: "segmentation"}, 2},
		{"provider", Filter{Provider: "pro"}, 1},
		{"errors only", Filter{Success: &failed}, 1},
		{"no match", Filter{Stage: "segmentation", Provider: "other"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(r.List(tt.filter, 0)); got != tt.want {
				t.Errorf("expected %d metrics, got %d", tt.want, got)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	r := NewRecorder(0)
	r.Record(Metric{Stage: "segmentation", PromptTokens: 100, CompletionTokens: 20, LatencySeconds: 1, Success: true})
	r.Record(Metric{Stage: "inclusion_criteria", PromptTokens: 40, CompletionTokens: 20, LatencySeconds: 3, Success: true})
	r.Record(Metric{Stage: "inclusion_criteria", LatencySeconds: 2, ErrorType: "rate_limit"})

	want := Summary{Count: 3, SuccessCount: 2, ErrorCount: 1, TotalTokens: 180, AvgTokens: 60, AvgTimeSeconds: 2}
	if diff := cmp.Diff(want, r.Summary(Filter{})); diff != "" {
		t.Fatalf("Summary() mismatch (-want +got):\n%s", diff)
	}

	byStage := r.SummaryByStage(Filter{})
	if byStage["segmentation"].Count != 1 || byStage["inclusion_criteria"].ErrorCount != 1 {
		t.Fatalf("unexpected per-stage summary: %+v", byStage)
	}
}

func TestDetailedStats(t *testing.T) {
	r := NewRecorder(0)
	for _, l := range []float64{1, 2, 3, 4, 5} {
		r.Record(Metric{Stage: "s", LatencySeconds: l, PromptTokens: 10, CompletionTokens: 5, Success: true})
	}
	r.Record(Metric{Stage: "s", LatencySeconds: 99, ErrorType: "timeout"})

	stats := r.DetailedStats(Filter{})
	if stats.Count != 6 || stats.SuccessCount != 5 || stats.ErrorCount != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.LatencyMin != 1 || stats.LatencyMax != 5 || stats.LatencyP50 != 3 || stats.LatencyAvg != 3 {
		t.Fatalf("unexpected latency stats: %+v", stats)
	}
	if math.Abs(stats.LatencyP95-4.8) > 1e-9 {
		t.Fatalf("expected p95 4.8, got %v", stats.LatencyP95)
	}
	if stats.TotalTokens != 75 || stats.Errors["timeout"] != 1 {
		t.Fatalf("unexpected token/error stats: %+v", stats)
	}

	if empty := NewRecorder(1).DetailedStats(Filter{}); empty.Count != 0 || empty.Errors != nil {
		t.Fatalf("expected empty stats, got %+v", empty)
	}
}

func TestRecorderConcurrent(t *testing.T) {
	r := NewRecorder(50)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				r.Record(Metric{Stage: "s", Success: true})
				r.Summary(Filter{})
			}
		}()
	}
	wg.Wait()

	if r.Total() != 200 || len(r.List(Filter{}, 0)) != 50 {
		t.Fatalf("unexpected totals: total=%d kept=%d", r.Total(), len(r.List(Filter{}, 0)))
	}
}
