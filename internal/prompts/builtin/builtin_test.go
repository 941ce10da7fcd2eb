package builtin

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/jackzampolin/protocollens/internal/prompts"
)

func TestLoadBuiltinStages(t *testing.T) {
	store, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	seg, err := store.Get(prompts.StageSegmentation)
	if err != nil {
		t.Fatalf("Get(segmentation) error = %v", err)
	}
	if strings.Join(seg.Variables, ",") != "protocol_text" {
		t.Fatalf("unexpected segmentation variables: %v", seg.Variables)
	}

	inc, err := store.Get(prompts.StageInclusionCriteria)
	if err != nil {
		t.Fatalf("Get(inclusion_criteria) error = %v", err)
	}
	if strings.Join(inc.Variables, ",") != "text" {
		t.Fatalf("unexpected inclusion variables: %v", inc.Variables)
	}

	for _, tmpl := range store.List() {
		if !json.Valid(tmpl.Schema) {
			t.Fatalf("stage %s has invalid schema JSON", tmpl.Stage)
		}
	}
}

func TestRenderBuiltinSegmentation(t *testing.T) {
	store, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	out, err := store.Render(prompts.StageSegmentation, map[string]string{"protocol_text": "4.1 INCLUSION CRITERIA"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out.Text, "4.1 INCLUSION CRITERIA") {
		t.Fatal("rendered prompt does not contain protocol text")
	}
	if !strings.Contains(out.Text, `{"sections"`) {
		t.Fatal("rendered prompt does not describe the response shape")
	}
}
