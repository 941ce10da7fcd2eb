package pipeline

import (
	"testing"

	"github.com/jackzampolin/protocollens/internal/protocol"
)

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"inclusion_criteria", "inclusioncriteria"},
		{"Inclusion Criteria", "inclusioncriteria"},
		{"4.1 INCLUSION CRITERIA", "inclusioncriteria"},
		{"4.1. Inclusion Criteria:", "inclusioncriteria"},
		{"IV. Inclusion", "inclusion"},
		{"iv inclusion criteria", "inclusioncriteria"},
		{"a) inclusion criteria", "inclusioncriteria"},
		{"(b) Inclusion-Criteria", "inclusioncriteria"},
		{"§ 5 Inclusion Criteria", "inclusioncriteria"},
		{"  ** Inclusion criteria **", "inclusioncriteria"},
		{"inclusion", "inclusion"},
		{"Study Design", "studydesign"},
		{"mild inclusion", "mildinclusion"},
		{"civil inclusion criteria", "civilinclusioncriteria"},
		{"xxxviii inclusion", "xxxviiiinclusion"},
		{"XXXVIII. Inclusion", "inclusion"},
		{"iiv. inclusion", "iivinclusion"},
		{"", ""},
		{"4.1", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInclusionMatcherMatches(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"inclusion_criteria", true},
		{"4.1 INCLUSION CRITERIA", true},
		{"Inclusion", true},
		{"inclusion criterion", true},
		{"Criteria for Inclusion", true},
		{"key_inclusion_criteria", true},
		{"Patient Inclusion Criteria", true},
		{"exclusion_criteria", false},
		{"eligibility", false},
		{"eligibility_criteria", false},
		{"inclusion_and_exclusion_criteria", true},
		{"5. Inclusion/Exclusion Criteria", true},
		{"mild inclusion", false},
		{"study_population", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := InclusionMatcher.Matches(tt.name); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestExclusionMatcherMatches(t *testing.T) {
	for name, want := range map[string]bool{
		"exclusion_criteria":               true,
		"5.2 Exclusion":                    true,
		"inclusion_criteria":               false,
		"criteria_for_exclusion":           true,
		"inclusion_and_exclusion_criteria": true,
		"5. Inclusion/Exclusion Criteria":  true,
		"mild exclusion":                   false,
	} {
		if got := ExclusionMatcher.Matches(name); got != want {
			t.Errorf("Matches(%q) = %v, want %v", name, got, want)
		}
	}
}

func sectionsOf(pairs ...string) *protocol.SectionMap {
	m := &protocol.SectionMap{}
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

func TestSectionMatcherFind(t *testing.T) {
	tests := []struct {
		name     string
		sections *protocol.SectionMap
		wantKey  string
		wantText string
		wantOK   bool
	}{
		{
			name:     "canonical key preferred",
			sections: sectionsOf("Inclusion", "loose", "inclusion_criteria", "exact"),
			wantKey:  "inclusion_criteria",
			wantText: "exact",
			wantOK:   true,
		},
		{
			name:     "first match in upstream order",
			sections: sectionsOf("background", "b", "4.1 Inclusion Criteria", "first", "inclusion", "second"),
			wantKey:  "4.1 Inclusion Criteria",
			wantText: "first",
			wantOK:   true,
		},
		{
			name:     "blank canonical falls through to text",
			sections: sectionsOf("inclusion_criteria", "  ", "Inclusion Criteria", "real text"),
			wantKey:  "Inclusion Criteria",
			wantText: "real text",
			wantOK:   true,
		},
		{
			name:     "all blank returns first candidate",
			sections: sectionsOf("Inclusion", "", "inclusion_criteria", ""),
			wantKey:  "inclusion_criteria",
			wantText: "",
			wantOK:   true,
		},
		{
			name:     "absent",
			sections: sectionsOf("eligibility", "Adults", "exclusion_criteria", "Pregnancy"),
		},
		{
			name:     "dedicated section preferred over combined",
			sections: sectionsOf("Inclusion/Exclusion Criteria", "both", "4.1 Inclusion Criteria", "own"),
			wantKey:  "4.1 Inclusion Criteria",
			wantText: "own",
			wantOK:   true,
		},
		{
			name:     "combined section used alone",
			sections: sectionsOf("background", "b", "inclusion_and_exclusion_criteria", "Adults. No pregnancy."),
			wantKey:  "inclusion_and_exclusion_criteria",
			wantText: "Adults. No pregnancy.",
			wantOK:   true,
		},
		{
			name:     "nil map",
			sections: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, text, ok := InclusionMatcher.Find(tt.sections)
			if key != tt.wantKey || text != tt.wantText || ok != tt.wantOK {
				t.Fatalf("Find() = (%q, %q, %v), want (%q, %q, %v)", key, text, ok, tt.wantKey, tt.wantText, tt.wantOK)
			}
		})
	}
}
