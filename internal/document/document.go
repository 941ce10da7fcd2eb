// Package document turns protocol files into plain text for the pipeline.
//
// Plain text and markdown are read as UTF-8. PDFs are parsed with pdfcpu and
// their page content streams reduced to text. Clean and Truncate prepare the
// text for a model prompt.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedFormat is returned for files that are not text, markdown or PDF.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// DefaultMaxInputTokens is the prompt budget applied by Prepare.
const DefaultMaxInputTokens = 100000

// Metadata describes a loaded document.
type Metadata struct {
	Source     string   `json:"source" yaml:"source"`
	Format     string   `json:"format" yaml:"format"`
	Pages      int      `json:"pages,omitempty" yaml:"pages,omitempty"`
	Title      string   `json:"title,omitempty" yaml:"title,omitempty"`
	Author     string   `json:"author,omitempty" yaml:"author,omitempty"`
	Characters int      `json:"characters" yaml:"characters"`
	Words      int      `json:"words" yaml:"words"`
	Truncated  bool     `json:"truncated" yaml:"truncated"`
	Headings   []string `json:"headings,omitempty" yaml:"headings,omitempty"`
}

// Document is extracted protocol text plus what is known about its source.
type Document struct {
	Text     string
	Metadata Metadata
}

// Load reads a document from disk, choosing the parser by extension.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()
	return Parse(filepath.Base(path), f)
}

// Parse reads a document whose original file name is name.
func Parse(name string, rs io.ReadSeeker) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".txt", ".md", ".markdown", ".text", "":
		data, err := io.ReadAll(rs)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		if bytes.HasPrefix(data, []byte("%PDF-")) {
			return parsePDF(name, bytes.NewReader(data))
		}
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%s is not valid UTF-8 text: %w", name, ErrUnsupportedFormat)
		}
		format := "text"
		if ext == ".md" || ext == ".markdown" {
			format = "markdown"
		}
		return newDocument(name, format, string(data)), nil
	case ".pdf":
		return parsePDF(name, rs)
	default:
		return nil, fmt.Errorf("%s: %w", ext, ErrUnsupportedFormat)
	}
}

// FromText wraps already extracted text, e.g. a request body.
func FromText(source, text string) *Document {
	return newDocument(source, "text", text)
}

func newDocument(source, format, text string) *Document {
	d := &Document{Text: text, Metadata: Metadata{Source: source, Format: format}}
	d.refresh()
	return d
}

func (d *Document) refresh() {
	d.Metadata.Characters = utf8.RuneCountInString(d.Text)
	d.Metadata.Words = WordCount(d.Text)
}

// PrepareOptions controls Prepare.
type PrepareOptions struct {
	Clean     bool // Apply Clean before truncating
	MaxTokens int  // Prompt budget, DefaultMaxInputTokens when zero
}

// Prepare cleans and truncates the text in place and returns it.
func (d *Document) Prepare(opts PrepareOptions) string {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxInputTokens
	}
	text := d.Text
	if opts.Clean {
		text = Clean(text)
	}
	d.Metadata.Headings = DetectHeadings(text)
	text, d.Metadata.Truncated = Truncate(text, opts.MaxTokens)
	d.Text = text
	d.refresh()
	return text
}
