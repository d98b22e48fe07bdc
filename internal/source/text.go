package source

import (
	"bufio"
	"io"
	"strings"
)

// TextParser uses the first non-blank line as the title.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Page, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return &Page{Title: line}, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &Page{}, nil
}
