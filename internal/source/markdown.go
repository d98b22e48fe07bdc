package source

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// MarkdownParser reads YAML front matter and falls back to the first heading
// for the title.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Page, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	meta, body, err := splitFrontMatter(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	page := &Page{Metadata: meta}
	if t, ok := meta["title"].(string); ok && strings.TrimSpace(t) != "" {
		page.Title = strings.TrimSpace(t)
		return page, nil
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(body))
	var best *ast.Heading
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		if best == nil || h.Level < best.Level {
			best = h
		}
		if h.Level == 1 {
			break
		}
	}
	if best != nil {
		page.Title = headingText(best, body)
	}
	return page, nil
}

// splitFrontMatter separates a leading "---" delimited YAML block from the
// markdown body. Files without front matter return a nil map.
func splitFrontMatter(src []byte) (map[string]any, []byte, error) {
	src = bytes.TrimPrefix(src, []byte("\ufeff"))
	if !bytes.HasPrefix(src, []byte("---\n")) && !bytes.HasPrefix(src, []byte("---\r\n")) {
		return nil, src, nil
	}
	rest := src[bytes.IndexByte(src, '\n')+1:]

	for off := 0; off < len(rest); {
		end := bytes.IndexByte(rest[off:], '\n')
		line := rest[off:]
		next := len(rest)
		if end >= 0 {
			line = rest[off : off+end]
			next = off + end + 1
		}
		if strings.TrimRight(string(line), "\r ") == "---" {
			var meta map[string]any
			if err := yaml.Unmarshal(rest[:off], &meta); err != nil {
				return nil, nil, fmt.Errorf("front matter: %w", err)
			}
			return meta, rest[next:], nil
		}
		off = next
	}
	return nil, nil, fmt.Errorf("front matter: missing closing ---")
}

// headingText gets the text content of a goldmark heading.
func headingText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		} else {
			buf.WriteString(headingText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
