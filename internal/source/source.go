// Package source builds the documentation structure document from a content
// directory: one directory node per folder, one file node per page, with
// titles and front matter read from the pages themselves.
package source

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Page is what a parser learns about one content file.
type Page struct {
	Title    string         // Empty when the file names no title
	Metadata map[string]any // Front matter or document properties
}

// Parser reads the title and metadata of a content file.
type Parser interface {
	Parse(r io.Reader, filename string) (*Page, error)
}

// SupportedExtensions lists file extensions the builder includes.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".txt":      true,
	".pdf":      true,
	".docx":     true,
}

// pageExtensions are rendered by the site; their routes drop the extension.
// Everything else is linked as a download.
var pageExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// Humanize turns a path segment such as "getting-started" into "Getting Started".
func Humanize(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return cases.Title(language.English).String(strings.Join(strings.Fields(name), " "))
}
