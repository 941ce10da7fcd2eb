package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// kerningGap is the TJ adjustment, in thousandths of an em, at or beyond
// which two strings are taken to be separate words.
const kerningGap = -200

// parsePDF extracts the text of every page, pages separated by a blank line.
// Pages without a text layer (scans) contribute nothing.
//
// pdfcpu validates the file and supplies page count and info metadata.
// Text is decoded with each font's own encoding (WinAnsi, MacRoman,
// Differences, ToUnicode CMaps), so subset fonts come out as Unicode.
func parsePDF(name string, rs io.ReadSeeker) (*Document, error) {
	data, err := io.ReadAll(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF %s: %w", name, err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadAndValidate(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF %s: %w", name, err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF %s: %w", name, err)
	}

	var pages []string
	for pageNr := 1; pageNr <= r.NumPage(); pageNr++ {
		p := r.Page(pageNr)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d of %s: %w", pageNr, name, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	d := newDocument(name, "pdf", strings.Join(pages, "\n\n"))
	d.Metadata.Pages = ctx.PageCount
	d.Metadata.Title = ctx.Title
	d.Metadata.Author = ctx.Author
	return d, nil
}

// pageText interprets a page's content streams. Shown strings are decoded
// with the current font; moves to a new line become newlines and wide
// kerning inside TJ arrays becomes a space.
func pageText(p pdf.Page) (text string, err error) {
	defer func() {
		// The interpreter panics on malformed content.
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content stream: %v", r)
		}
	}()

	fonts := make(map[string]pdf.TextEncoding)
	for _, name := range p.Fonts() {
		fonts[name] = p.Font(name).Encoder()
	}

	var (
		out strings.Builder
		enc pdf.TextEncoding
	)
	show := func(v pdf.Value) {
		if enc == nil {
			out.WriteString(v.RawString())
			return
		}
		out.WriteString(enc.Decode(v.RawString()))
	}

	interpret := func(strm pdf.Value) {
		pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
			n := stk.Len()
			args := make([]pdf.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = stk.Pop()
			}

			switch op {
			case "Tf":
				if n == 2 {
					enc = fonts[args[0].Name()]
				}
			case "Tj":
				if n == 1 {
					show(args[0])
				}
			case "'", "\"":
				out.WriteByte('\n')
				if n > 0 {
					show(args[n-1])
				}
			case "TJ":
				if n != 1 {
					return
				}
				arr := args[0]
				for i := 0; i < arr.Len(); i++ {
					x := arr.Index(i)
					switch x.Kind() {
					case pdf.String:
						show(x)
					case pdf.Integer, pdf.Real:
						if x.Float64() <= kerningGap {
							out.WriteByte(' ')
						}
					}
				}
			case "Td", "TD":
				// A move with no vertical offset stays on the line.
				if n == 2 && args[1].Float64() == 0 {
					out.WriteByte(' ')
				} else {
					out.WriteByte('\n')
				}
			case "T*", "ET":
				out.WriteByte('\n')
			}
		})
	}

	contents := p.V.Key("Contents")
	switch contents.Kind() {
	case pdf.Stream:
		interpret(contents)
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			interpret(contents.Index(i))
		}
	case pdf.Null:
	default:
		return "", errors.New("unexpected page contents")
	}
	return collapseLines(out.String()), nil
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, strings.TrimRight(l, " "))
		}
	}
	return strings.Join(out, "\n")
}
