package document

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses blank lines", "a\n\n\n\nb", "a\n\nb"},
		{"collapses spaces", "a    b  c", "a b c"},
		{"rejoins hyphenation", "partici-\npants must", "participants must"},
		{"drops page markers", "Intro\nPage 3 of 40\nBody", "Intro\n\nBody"},
		{"page markers ignore case", "PAGE 1 OF 2 text", "text"},
		{"drops confidential footer", "Body\nConfidential - Sponsor Inc.\nMore", "Body\n\nMore"},
		{"trims", "  \n text \n ", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	text, cut := Truncate("short", 10)
	if cut || text != "short" {
		t.Fatalf("Truncate() = %q, %v", text, cut)
	}

	long := strings.Repeat("abcd", 10)
	text, cut = Truncate(long, 2)
	if !cut || text != "abcdabcd"+TruncationNotice {
		t.Fatalf("Truncate() = %q, %v", text, cut)
	}

	// Multi-byte runes count as one character and are never split.
	runes := strings.Repeat("≥", 12)
	text, cut = Truncate(runes, 2)
	if !cut || !utf8.ValidString(text) || !strings.HasPrefix(text, strings.Repeat("≥", 8)+"\n") {
		t.Fatalf("Truncate() = %q, %v", text, cut)
	}
	text, cut = Truncate(strings.Repeat("≥", 8), 2)
	if cut || text != strings.Repeat("≥", 8) {
		t.Fatalf("Truncate() cut text within budget: %q", text)
	}

	if _, cut := Truncate(long, 0); cut {
		t.Fatal("non-positive budget should disable truncation")
	}
}

func TestWordCount(t *testing.T) {
	if got := WordCount("Age ≥ 18 years, ECOG 0-1."); got != 6 {
		t.Fatalf("WordCount() = %d, want 6", got)
	}
	if got := WordCount("   "); got != 0 {
		t.Fatalf("WordCount() = %d, want 0", got)
	}
}

func TestDetectHeadings(t *testing.T) {
	text := "1 Introduction\n3.2 Study Design\nRandomized.\n4.1 INCLUSION CRITERIA\nAdults\n4.2 Exclusion criteria\nNone"
	want := []string{"3.2 STUDY DESIGN", "4.1 INCLUSION CRITERIA", "4.2 EXCLUSION CRITERIA"}
	if diff := cmp.Diff(want, DetectHeadings(text)); diff != "" {
		t.Fatalf("DetectHeadings() mismatch (-want +got):\n%s", diff)
	}
	if DetectHeadings("no headings here") != nil {
		t.Fatal("expected nil for text without headings")
	}
}

func TestLoadText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "protocol.md")
	if err := os.WriteFile(path, []byte("# Protocol\n\n4.1 Inclusion Criteria\nAdults aged 18+"), 0o644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.Metadata.Format != "markdown" || doc.Metadata.Source != "protocol.md" {
		t.Fatalf("unexpected metadata: %+v", doc.Metadata)
	}
	if doc.Metadata.Words != 8 {
		t.Fatalf("Words = %d, want 8", doc.Metadata.Words)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	docx := filepath.Join(dir, "protocol.docx")
	if err := os.WriteFile(docx, []byte("PK"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(docx); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	binary := filepath.Join(dir, "protocol.txt")
	if err := os.WriteFile(binary, []byte{0xff, 0xfe, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(binary); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat for invalid UTF-8, got %v", err)
	}

	broken := filepath.Join(dir, "protocol.pdf")
	if err := os.WriteFile(broken, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(broken); err == nil {
		t.Fatal("expected error for broken PDF")
	}

	if _, err := Load(filepath.Join(dir, "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestPrepare(t *testing.T) {
	doc := FromText("request", "4.1 INCLUSION CRITERIA\n\n\n\nAdults   only\nPage 1 of 9")
	text := doc.Prepare(PrepareOptions{Clean: true, MaxTokens: 100})
	if text != "4.1 INCLUSION CRITERIA\n\nAdults only" {
		t.Fatalf("Prepare() = %q", text)
	}
	if doc.Metadata.Truncated || doc.Metadata.Words != 6 {
		t.Fatalf("unexpected metadata: %+v", doc.Metadata)
	}
	if diff := cmp.Diff([]string{"4.1 INCLUSION CRITERIA"}, doc.Metadata.Headings); diff != "" {
		t.Fatalf("Headings mismatch (-want +got):\n%s", diff)
	}

	raw := FromText("request", strings.Repeat("word ", 100))
	raw.Prepare(PrepareOptions{MaxTokens: 10})
	if !raw.Metadata.Truncated || !strings.HasSuffix(raw.Text, TruncationNotice) {
		t.Fatalf("expected truncation, got %+v", raw.Metadata)
	}
}

func TestLoadPDFDecodesFontEncodings(t *testing.T) {
	// Word-style output: a WinAnsi TrueType subset font with curly quotes and
	// dashes, an Identity-H subset font whose glyph IDs only make sense via
	// its ToUnicode CMap, and a page split across two content streams.
	doc, err := Load(filepath.Join("testdata", "subset_fonts.pdf"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := strings.Join([]string{
		"4.1 Inclusion Criteria",
		"Patient\u2019s age 18\u201365 years",
		"Signed informed consent",
		"Age (years)",
		"",
		"5 Exclusion Criteria",
	}, "\n")
	if diff := cmp.Diff(want, doc.Text); diff != "" {
		t.Fatalf("text mismatch (-want +got):\n%s", diff)
	}

	if doc.Metadata.Format != "pdf" || doc.Metadata.Pages != 2 {
		t.Fatalf("unexpected metadata: %+v", doc.Metadata)
	}
	if doc.Metadata.Title != "Phase II Study Protocol" || doc.Metadata.Author != "Sponsor Inc." {
		t.Fatalf("unexpected info: %+v", doc.Metadata)
	}
}

func TestParsePDFWithoutExtension(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "subset_fonts.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Parse("upload", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Metadata.Format != "pdf" || !strings.Contains(doc.Text, "Patient\u2019s") {
		t.Fatalf("unexpected document: %+v %q", doc.Metadata, doc.Text)
	}
	for _, r := range doc.Text {
		if r >= 0x80 && r <= 0x9f {
			t.Fatalf("C1 control character %U in extracted text", r)
		}
	}
}
