package source

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser reads the document Info title, falling back to the first line of
// text on page one. The page count is recorded as metadata.
type PDFParser struct{}

func (p *PDFParser) Parse(r io.Reader, filename string) (*Page, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	page := &Page{Metadata: map[string]any{"pages": reader.NumPage()}}

	info := reader.Trailer().Key("Info")
	if !info.IsNull() {
		page.Title = strings.TrimSpace(info.Key("Title").Text())
		if author := strings.TrimSpace(info.Key("Author").Text()); author != "" {
			page.Metadata["author"] = author
		}
	}
	if page.Title == "" && reader.NumPage() > 0 {
		first := reader.Page(1)
		if !first.V.IsNull() {
			if text, err := first.GetPlainText(nil); err == nil {
				page.Title = firstLine(text)
			}
		}
	}
	return page, nil
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
