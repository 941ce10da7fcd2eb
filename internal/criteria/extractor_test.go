package criteria

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tidwall/gjson"

	"github.com/jackzampolin/protocollens/internal/gateway"
	"github.com/jackzampolin/protocollens/internal/prompts/builtin"
	"github.com/jackzampolin/protocollens/internal/protocol"
	"github.com/jackzampolin/protocollens/internal/providers"
)

func newExtractor(t *testing.T, responses ...string) (*Extractor, *providers.MockClient) {
	t.Helper()
	store, err := builtin.Load("", nil)
	if err != nil {
		t.Fatalf("builtin.Load() error = %v", err)
	}
	mock := providers.NewMockClient(responses...)
	gw, err := gateway.New(gateway.Config{LLM: mock})
	if err != nil {
		t.Fatalf("gateway.New() error = %v", err)
	}
	return New(Config{Prompts: store, Gateway: gw}), mock
}

func TestExtractBlankInputSkipsGateway(t *testing.T) {
	ext, mock := newExtractor(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		got, err := ext.Extract(context.Background(), text)
		if err != nil {
			t.Fatalf("Extract(%q) error = %v", text, err)
		}
		if got == nil || len(got) != 0 {
			t.Fatalf("Extract(%q) = %#v, want empty non-nil slice", text, got)
		}
	}
	if mock.RequestCount() != 0 {
		t.Fatalf("expected no gateway calls, got %d", mock.RequestCount())
	}
}

func TestExtractDropsEntriesWithoutText(t *testing.T) {
	ext, mock := newExtractor(t, `{"criteria":[{"text":"Age ≥ 18"},{"confidence":0.9}]}`)

	got, err := ext.Extract(context.Background(), "Patients must be adults.")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := []protocol.Criterion{{Text: "Age ≥ 18", Confidence: 0.0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Extract() mismatch (-want +got):\n%s", diff)
	}

	prompt := mock.Requests()[0].Messages[1].Content
	if !strings.Contains(prompt, "Patients must be adults.") {
		t.Fatal("section text was not rendered into the prompt")
	}
}

func TestExtractMissingCriteriaKey(t *testing.T) {
	for _, reply := range []string{`{"items": []}`, `[{"text": "x"}]`, `"criteria"`} {
		ext, _ := newExtractor(t, reply)
		_, err := ext.Extract(context.Background(), "text")
		var schemaErr *protocol.ExtractionSchemaError
		if !errors.As(err, &schemaErr) {
			t.Fatalf("reply %s: expected ExtractionSchemaError, got %T: %v", reply, err, err)
		}
		if schemaErr.Field != "criteria" {
			t.Fatalf("unexpected field: %q", schemaErr.Field)
		}
	}
}

func TestExtractPropagatesGatewayErrors(t *testing.T) {
	ext, mock := newExtractor(t)
	mock.ShouldFail = true

	_, err := ext.Extract(context.Background(), "text")
	var upErr *protocol.UpstreamCallError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamCallError, got %T: %v", err, err)
	}
}

func TestParseCriteria(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    []protocol.Criterion
		dropped int
	}{
		{
			name: "order preserved",
			json: `{"criteria":[{"text":"B","confidence":0.5},{"text":"A","confidence":0.7}]}`,
			want: []protocol.Criterion{{Text: "B", Confidence: 0.5}, {Text: "A", Confidence: 0.7}},
		},
		{
			name: "confidence clamped and defaulted",
			json: `{"criteria":[{"text":"a","confidence":1.7},{"text":"b","confidence":-1},{"text":"c","confidence":"high"},{"text":"d","confidence":null}]}`,
			want: []protocol.Criterion{{Text: "a", Confidence: 1}, {Text: "b"}, {Text: "c"}, {Text: "d"}},
		},
		{
			name:    "non-string and blank text dropped",
			json:    `{"criteria":[{"text":42},{"text":"  "},{"text":null},"bare string",{"text":"  keep me  "}]}`,
			want:    []protocol.Criterion{{Text: "keep me"}},
			dropped: 4,
		},
		{
			name: "criteria not an array",
			json: `{"criteria": null}`,
			want: []protocol.Criterion{},
		},
		{
			name: "empty array",
			json: `{"criteria": []}`,
			want: []protocol.Criterion{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dropped, err := ParseCriteria(gjson.Parse(tt.json))
			if err != nil {
				t.Fatalf("ParseCriteria() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ParseCriteria() mismatch (-want +got):\n%s", diff)
			}
			if dropped != tt.dropped {
				t.Errorf("dropped = %d, want %d", dropped, tt.dropped)
			}
		})
	}
}
