package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownParser_FrontMatterTitle(t *testing.T) {
	input := "---\ntitle: Installing the CLI\norder: 3\nauthor: docs-team\ntags: [cli, setup]\n---\n# Something Else\n\nBody.\n"
	page, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "install.md")
	require.NoError(t, err)

	assert.Equal(t, "Installing the CLI", page.Title)
	assert.Equal(t, 3, page.Metadata["order"])
	assert.Equal(t, "docs-team", page.Metadata["author"])
	assert.Equal(t, []any{"cli", "setup"}, page.Metadata["tags"])
}

func TestMarkdownParser_HeadingFallback(t *testing.T) {
	input := "---\norder: 1\n---\n\nIntro paragraph.\n\n## Minor\n\n# Main Title\n"
	page, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "doc.md")
	require.NoError(t, err)
	assert.Equal(t, "Main Title", page.Title)
	assert.Equal(t, 1, page.Metadata["order"])
}

func TestMarkdownParser_InlineMarkupInHeading(t *testing.T) {
	page, err := (&MarkdownParser{}).Parse(strings.NewReader("# Using `useDialog` *hooks*\n"), "hooks.md")
	require.NoError(t, err)
	assert.Equal(t, "Using useDialog hooks", page.Title)
}

func TestMarkdownParser_NoTitle(t *testing.T) {
	page, err := (&MarkdownParser{}).Parse(strings.NewReader("Just text.\n"), "plain.md")
	require.NoError(t, err)
	assert.Empty(t, page.Title)
	assert.Nil(t, page.Metadata)
}

func TestMarkdownParser_UnterminatedFrontMatter(t *testing.T) {
	_, err := (&MarkdownParser{}).Parse(strings.NewReader("---\ntitle: x\n# heading\n"), "bad.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing closing")
}

func TestMarkdownParser_InvalidYAML(t *testing.T) {
	_, err := (&MarkdownParser{}).Parse(strings.NewReader("---\ntitle: [unclosed\n---\n"), "bad.md")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.md")
}

func TestHTMLParser_TitleAndMeta(t *testing.T) {
	input := `<html><head><title>  Dialog
	Component </title><meta name="order" content="2"><meta name="Author" content="ui"></head>
	<body><h1>Ignored</h1></body></html>`
	page, err := (&HTMLParser{}).Parse(strings.NewReader(input), "dialog.html")
	require.NoError(t, err)
	assert.Equal(t, "Dialog Component", page.Title)
	assert.Equal(t, 2.0, page.Metadata["order"])
	assert.Equal(t, "ui", page.Metadata["author"])
}

func TestHTMLParser_H1Fallback(t *testing.T) {
	page, err := (&HTMLParser{}).Parse(strings.NewReader(`<body><h1>Avatar</h1><p>x</p></body>`), "avatar.html")
	require.NoError(t, err)
	assert.Equal(t, "Avatar", page.Title)
	assert.Nil(t, page.Metadata)
}

func TestTextParser_FirstLine(t *testing.T) {
	page, err := (&TextParser{}).Parse(strings.NewReader("\n\n  Release Notes  \nmore\n"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "Release Notes", page.Title)

	page, err = (&TextParser{}).Parse(strings.NewReader(""), "empty.txt")
	require.NoError(t, err)
	assert.Empty(t, page.Title)
}

func TestBinaryParsers_RejectGarbage(t *testing.T) {
	_, err := (&PDFParser{}).Parse(strings.NewReader("not a pdf"), "x.pdf")
	assert.Error(t, err)
	_, err = (&DOCXParser{}).Parse(strings.NewReader("not a docx"), "x.docx")
	assert.Error(t, err)
}

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.md", "a.MARKDOWN", "a.html", "a.htm", "a.txt", "a.pdf", "a.docx"} {
		p, err := ForFile(name)
		require.NoError(t, err, name)
		assert.NotNil(t, p)
		assert.True(t, IsSupportedExtension(name), name)
	}
	_, err := ForFile("a.csv")
	assert.Error(t, err)
	assert.False(t, IsSupportedExtension("a.csv"))
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"getting-started":  "Getting Started",
		"api_reference.md": "Api Reference",
		"faq":              "Faq",
		"--odd--name":      "Odd Name",
	}
	for in, want := range tests {
		assert.Equal(t, want, Humanize(in), in)
	}
}
