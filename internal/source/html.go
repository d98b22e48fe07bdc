package source

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser takes the title from <title> or the first <h1>, and metadata
// from named <meta> tags. A numeric <meta name="order"> becomes the sort order.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := &Page{}
	if title := findElementText(doc, "title"); title != "" {
		page.Title = title
	} else {
		page.Title = findElementText(doc, "h1")
	}

	collectMeta(doc, func(name, content string) {
		if page.Metadata == nil {
			page.Metadata = make(map[string]any)
		}
		if name == "order" {
			if f, err := strconv.ParseFloat(content, 64); err == nil {
				page.Metadata[name] = f
				return
			}
		}
		page.Metadata[name] = content
	})
	return page, nil
}

func collectMeta(n *html.Node, fn func(name, content string)) {
	if n.Type == html.ElementNode && n.Data == "meta" {
		var name, content string
		for _, a := range n.Attr {
			switch a.Key {
			case "name":
				name = strings.ToLower(strings.TrimSpace(a.Val))
			case "content":
				content = strings.TrimSpace(a.Val)
			}
		}
		if name != "" {
			fn(name, content)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectMeta(c, fn)
	}
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findElementText(n *html.Node, tag string) string {
	if n.Type == html.ElementNode && n.Data == tag {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findElementText(c, tag); t != "" {
			return t
		}
	}
	return ""
}
