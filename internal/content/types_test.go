package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTypes_ResolveByExtension(t *testing.T) {
	r := DefaultTypes()

	assert.Equal(t, Markdown, r.ForPath("content/posts/hello.md"))
	assert.Equal(t, PostCSS, r.ForPath("static/css/site.pcss"))
	assert.Equal(t, HTML, r.ForExt("HTM"))
	assert.Equal(t, Binary, r.ForPath("static/logo.png"))
	assert.Equal(t, Binary, r.ForPath("Makefile"))
}

func TestTypeRegistry_ExtensionOrder(t *testing.T) {
	r := DefaultTypes()
	assert.Equal(t, []string{".html", ".htm"}, r.Extensions(HTML))
	assert.Equal(t, ".css", r.Canonical(CSS))
	assert.Empty(t, r.Canonical(Binary))
}

func TestTypeRegistry_ReassignExtension(t *testing.T) {
	r := DefaultTypes()
	r.Register("svg", ".xml")

	assert.Equal(t, Type("svg"), r.ForExt(".xml"))
	assert.Empty(t, r.Extensions(XML))
	assert.True(t, r.Known("svg"))
}
