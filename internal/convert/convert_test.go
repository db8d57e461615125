package convert

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/layout"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

func conversion(files fstest.MapFS, sourcePath string, t content.Type) (*layout.Conversion, *[]string) {
	var deps []string
	it := content.NewFileItem(content.Pages, "/x/", sourcePath, t, nil)
	body := files[sourcePath].Data
	return &layout.Conversion{
		Item:   it,
		Body:   body,
		Source: source.New(source.Root{Name: "site", FS: files}),
		Depend: func(p string) { deps = append(deps, p) },
	}, &deps
}

func TestMarkdown_RendersGFMAndHeadingIDs(t *testing.T) {
	files := fstest.MapFS{"content/a.md": {Data: []byte("# Hello World\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~\n")}}
	c, _ := conversion(files, "content/a.md", content.Markdown)

	out, err := NewMarkdown("github").Convert(t.Context(), c)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `<h1 id="hello-world">Hello World</h1>`)
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<del>gone</del>")
}

func TestMarkdown_HighlightsFencedCode(t *testing.T) {
	files := fstest.MapFS{"content/a.md": {Data: []byte("```go\nfunc main() {}\n```\n")}}
	c, _ := conversion(files, "content/a.md", content.Markdown)

	out, err := NewMarkdown("github").Convert(t.Context(), c)
	require.NoError(t, err)

	html := string(out)
	assert.Contains(t, html, `class="chroma"`)
	assert.Contains(t, html, "main")
}

func TestMarkdown_Metadata(t *testing.T) {
	m := NewMarkdown("does-not-exist")
	assert.Equal(t, content.Markdown, m.From())
	assert.Equal(t, content.HTML, m.To())
	assert.False(t, m.RunWithoutLayout())
}

func TestStyleCSS(t *testing.T) {
	css, err := StyleCSS("github")
	require.NoError(t, err)
	assert.Contains(t, css, ".chroma")
}

func TestPostCSS_InlinesNestedImports(t *testing.T) {
	files := fstest.MapFS{
		"static/css/site.pcss":      {Data: []byte("@import \"vars\";\nbody { color: red; }\n")},
		"static/css/_vars.pcss":     {Data: []byte("@import 'base/reset.css';\n:root { --c: red; }\n")},
		"static/css/base/reset.css": {Data: []byte("* { margin: 0; }\n")},
	}
	c, deps := conversion(files, "static/css/site.pcss", content.PostCSS)

	out, err := NewPostCSS().Convert(t.Context(), c)
	require.NoError(t, err)

	css := string(out)
	assert.NotContains(t, css, "@import")
	assert.Less(t, strings.Index(css, "margin"), strings.Index(css, "--c"))
	assert.Less(t, strings.Index(css, "--c"), strings.Index(css, "body"))
	assert.Equal(t, []string{"static/css/_vars.pcss", "static/css/base/reset.css"}, *deps)
}

func TestPostCSS_KeepsRemoteImports(t *testing.T) {
	files := fstest.MapFS{"static/site.pcss": {Data: []byte("@import url(\"https://fonts.example/a.css\");\np {}\n")}}
	c, deps := conversion(files, "static/site.pcss", content.PostCSS)

	out, err := NewPostCSS().Convert(t.Context(), c)
	require.NoError(t, err)
	assert.Contains(t, string(out), "https://fonts.example/a.css")
	assert.Empty(t, *deps)
}

func TestPostCSS_Errors(t *testing.T) {
	t.Run("missing import", func(t *testing.T) {
		files := fstest.MapFS{"static/site.pcss": {Data: []byte("@import \"nope\";\n")}}
		c, _ := conversion(files, "static/site.pcss", content.PostCSS)
		_, err := NewPostCSS().Convert(t.Context(), c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("cycle", func(t *testing.T) {
		files := fstest.MapFS{
			"static/a.pcss": {Data: []byte("@import \"b.pcss\";\n")},
			"static/b.pcss": {Data: []byte("@import \"a.pcss\";\n")},
		}
		c, _ := conversion(files, "static/a.pcss", content.PostCSS)
		_, err := NewPostCSS().Convert(t.Context(), c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})
}
