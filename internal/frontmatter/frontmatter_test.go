package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

func TestParse_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	doc, err := Parse(input)
	require.NoError(t, err)
	assert.False(t, doc.Had)
	assert.Zero(t, doc.Fields.Len())
	assert.Equal(t, input, doc.Body)
}

func TestParse_YAMLFrontmatter(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags: [go, web]\nmenu:\n  weight: 2\n---\n# Title\n")

	doc, err := Parse(input)
	require.NoError(t, err)
	require.True(t, doc.Had)
	assert.Equal(t, "Hello", doc.Fields.GetString("title"))

	tags, ok := doc.Fields.Get("tags")
	require.True(t, ok)
	assert.Equal(t, []string{"go", "web"}, tags.Strings())

	w, ok := doc.Fields.Lookup("menu.weight")
	require.True(t, ok)
	assert.Equal(t, content.Number(2), w)

	assert.Contains(t, string(doc.Body), "# Title")
	assert.NotContains(t, string(doc.Body), "title: Hello")
}

func TestParse_TOMLFrontmatter(t *testing.T) {
	input := []byte("+++\ntitle = \"Toml\"\ndraft = true\n+++\nbody\n")

	doc, err := Parse(input)
	require.NoError(t, err)
	require.True(t, doc.Had)
	assert.Equal(t, "Toml", doc.Fields.GetString("title"))
	draft, _ := doc.Fields.Get("draft")
	assert.True(t, draft.Truthy())
	assert.Contains(t, string(doc.Body), "body")
}

func TestApply_KeepsExistingBindings(t *testing.T) {
	it := content.NewFileItem(content.Pages, "/a/", "content/a.md", content.Markdown, func() ([]byte, error) {
		return []byte("---\ntitle: From File\nsummary: s\n---\ntext\n"), nil
	})
	it.Bindings.Set("title", content.String("preset"))

	doc, err := Apply(it)
	require.NoError(t, err)
	assert.True(t, doc.Had)
	assert.Equal(t, "preset", it.Bindings.GetString("title"))
	assert.Equal(t, "s", it.Bindings.GetString("summary"))

	body, err := it.Body()
	require.NoError(t, err)
	assert.Contains(t, string(body), "text")
}
