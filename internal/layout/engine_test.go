package layout

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/deps"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// upper is a test converter from text to html that needs a layout.
type upper struct{ withoutLayout bool }

func (upper) Name() string             { return "upper" }
func (upper) From() content.Type       { return content.Text }
func (upper) To() content.Type         { return content.HTML }
func (u upper) RunWithoutLayout() bool { return u.withoutLayout }
func (upper) Convert(_ context.Context, c *Conversion) ([]byte, error) {
	return []byte(strings.ToUpper(string(c.Body))), nil
}

// restyle converts postcss into css without a layout and records a file
// dependency on an import.
type restyle struct{}

func (restyle) Name() string           { return "restyle" }
func (restyle) From() content.Type     { return content.PostCSS }
func (restyle) To() content.Type       { return content.CSS }
func (restyle) RunWithoutLayout() bool { return true }
func (restyle) Convert(_ context.Context, c *Conversion) ([]byte, error) {
	c.Depend("static/css/_vars.pcss")
	return append([]byte("/*css*/"), c.Body...), nil
}

type harness struct {
	build  *pipeline.Build
	engine *Engine
}

func newHarness(t *testing.T, files fstest.MapFS, opts ...Option) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := source.New(source.Root{Name: "site", FS: files})
	b := pipeline.NewBuild("t", pipeline.Full, 1, content.NewStore(), deps.NewTracker(), src, content.DefaultTypes(), logger)
	b.Site.Set("title", content.String("Site"))
	e := NewEngine(templates.NewEvaluator(), NewConverters(upper{}, restyle{}), opts...)
	return &harness{build: b, engine: e}
}

func (h *harness) page(t *testing.T, url string, typ content.Type, body string) *content.Item {
	t.Helper()
	it := content.NewFileItem(content.Pages, url, "content"+strings.TrimSuffix(url, "/")+".txt", typ, func() ([]byte, error) {
		return []byte(body), nil
	})
	require.NoError(t, h.build.Add(it))
	return it
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	reg := pipeline.NewRegistry().MustRegister(h.engine)
	require.NoError(t, pipeline.NewScheduler(reg).Run(t.Context(), h.build))
}

func bodyOf(t *testing.T, it *content.Item) string {
	t.Helper()
	b, err := it.Body()
	require.NoError(t, err)
	return string(b)
}

func TestCandidates_Order(t *testing.T) {
	e := NewEngine(templates.NewEvaluator(), nil)
	types := content.DefaultTypes()

	assert.Equal(t, []string{
		"layouts/post/single.html", "layouts/post/single.htm",
		"layouts/post.single.html", "layouts/post.single.htm",
		"layouts/post.html", "layouts/post.htm",
		"layouts/_default/single.html", "layouts/_default/single.htm",
		"layouts/_default.single.html", "layouts/_default.single.htm",
		"layouts/_default.html", "layouts/_default.htm",
	}, e.Candidates(types, "post", Single, content.HTML))

	assert.Equal(t, []string{"layouts/_default/list.css", "layouts/_default.list.css"},
		e.Candidates(types, DefaultName, List, content.CSS))

	e.RegisterKind("taxonomy", nil)
	assert.Equal(t, []string{"layouts/_default/taxonomy.xml", "layouts/_default.taxonomy.xml"},
		e.Candidates(types, DefaultName, "taxonomy", content.XML))
}

func TestLayout_DefaultSingleBeatsBareDefault(t *testing.T) {
	h := newHarness(t, fstest.MapFS{
		"layouts/_default.single.html": {Data: []byte(`single:{{ .Content }}`)},
		"layouts/_default.html":        {Data: []byte(`bare:{{ .Content }}`)},
	})
	it := h.page(t, "/a/", content.HTML, "x")
	h.run(t)

	assert.Equal(t, "single:x", bodyOf(t, it))
	assert.Equal(t, Applied, h.engine.State(it.ID))
}

func TestLayout_NamedFallsBackToDefault(t *testing.T) {
	h := newHarness(t, fstest.MapFS{
		"layouts/_default/single.html": {Data: []byte(`default:{{ .Content }}`)},
		"layouts/docs/single.html":     {Data: []byte(`docs:{{ .Content }}`)},
	})
	docs := h.page(t, "/d/", content.HTML, "d")
	docs.Layout = "docs"
	other := h.page(t, "/o/", content.HTML, "o")
	other.Layout = "missing"
	h.run(t)

	assert.Equal(t, "docs:d", bodyOf(t, docs))
	assert.Equal(t, "default:o", bodyOf(t, other))
}

func TestLayout_BindingsCopiedWithoutOverwrite(t *testing.T) {
	h := newHarness(t, fstest.MapFS{
		"layouts/_default/single.html": {Data: []byte("---\ntitle: Layout Title\nwide: true\n---\n{{ .Title }}|{{ .Params.wide }}|{{ .Site.title }}|{{ .Params.content }}")},
	})
	it := h.page(t, "/a/", content.HTML, "body")
	it.Bindings.Set("title", content.String("Page Title"))
	h.run(t)

	assert.Equal(t, "Page Title|true|Site|body", bodyOf(t, it))
}

func TestLayout_ChainFollowsNextAndRecordsDependencies(t *testing.T) {
	h := newHarness(t, fstest.MapFS{
		"layouts/_default/single.html": {Data: []byte("---\nlayout: base\n---\n<article>{{ .Content }}</article>")},
		"layouts/base/single.html":     {Data: []byte("---\nlayout: base\n---\n<html>{{ .Content }}</html>")},
	})
	it := h.page(t, "/a/", content.HTML, "hi")
	h.run(t)

	assert.Equal(t, "<html><article>hi</article></html>", bodyOf(t, it))
	var files []string
	for _, d := range it.Dependencies() {
		if d.Kind == content.FileDependency {
			files = append(files, d.Path)
			assert.NotEmpty(t, d.Fingerprint)
		}
	}
	assert.Equal(t, []string{"layouts/_default/single.html", "layouts/base/single.html"}, files)
	assert.False(t, h.build.Log.Failed())
}

func TestLayout_CycleIsOneErrorAndBreak(t *testing.T) {
	h := newHarness(t, fstest.MapFS{
		"layouts/a/single.html": {Data: []byte("---\nlayout: b\n---\na{{ .Content }}")},
		"layouts/b/single.html": {Data: []byte("---\nlayout: a\n---\nb{{ .Content }}")},
	})
	it := h.page(t, "/x/", content.HTML, "x")
	it.Layout = "a"
	h.run(t)

	errs := h.build.Log.Errors()
	require.Len(t, errs, 1)
	assert.True(t, errors.HasCategory(errs[0].Err, errors.CategoryContent))
	assert.Contains(t, errs[0].Err.Error(), "layout cycle")
	assert.Equal(t, Cycle, h.engine.State(it.ID))
	assert.True(t, it.Failed())
}

func TestLayout_NextFallingBackToAppliedFileStops(t *testing.T) {
	h := newHarness(t, fstest.MapFS{
		"layouts/_default/single.html": {Data: []byte("---\nlayout: base\n---\n[{{ .Content }}]")},
	})
	it := h.page(t, "/a/", content.HTML, "x")
	h.run(t)

	assert.Equal(t, "[x]", bodyOf(t, it))
	assert.Equal(t, Applied, h.engine.State(it.ID))
	warnings := h.build.Log.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "already applied")
	assert.False(t, h.build.Log.Failed())
}

func TestLayout_MissingLayoutWarnsAndPassesThrough(t *testing.T) {
	h := newHarness(t, fstest.MapFS{})
	it := h.page(t, "/a/", content.HTML, "raw")
	h.run(t)

	assert.Equal(t, "raw", bodyOf(t, it))
	assert.Equal(t, Skipped, h.engine.State(it.ID))
	assert.Len(t, h.build.Log.Warnings(), 1)
	assert.False(t, h.build.Log.Failed())
}

func TestConversion_NeedsLayout(t *testing.T) {
	h := newHarness(t, fstest.MapFS{})
	it := h.page(t, "/a/", content.Text, "raw")
	h.run(t)

	assert.Equal(t, "raw", bodyOf(t, it))
	assert.Equal(t, content.Text, it.Type)
	warnings := h.build.Log.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "emitted unconverted")
}

func TestConversion_ThenLayout(t *testing.T) {
	h := newHarness(t, fstest.MapFS{
		"layouts/_default/single.html": {Data: []byte(`<main>{{ .Content }}</main>`)},
	})
	it := h.page(t, "/a/", content.Text, "raw")
	h.run(t)

	assert.Equal(t, "<main>RAW</main>", bodyOf(t, it))
	assert.Equal(t, content.HTML, it.Type)
}

func TestConversion_RenderWithoutLayoutOption(t *testing.T) {
	h := newHarness(t, fstest.MapFS{}, WithRenderWithoutLayout(true))
	it := h.page(t, "/a/", content.Text, "raw")
	h.run(t)

	assert.Equal(t, "RAW", bodyOf(t, it))
	assert.Len(t, h.build.Log.Warnings(), 1)
}

func TestConversion_StaticWithoutLayoutRetargetsURL(t *testing.T) {
	h := newHarness(t, fstest.MapFS{
		"static/css/_vars.pcss": {Data: []byte(":root{}")},
	})
	it := content.NewFileItem(content.StaticFiles, "/css/site.pcss", "static/css/site.pcss", content.PostCSS,
		func() ([]byte, error) { return []byte("a{}"), nil })
	require.NoError(t, h.build.Add(it))
	h.run(t)

	assert.Equal(t, "/*css*/a{}", bodyOf(t, it))
	assert.Equal(t, content.CSS, it.Type)
	assert.Equal(t, "/css/site.css", it.URL)
	found, ok := h.build.Store.Find("/css/site.css")
	require.True(t, ok)
	assert.Same(t, it, found)
	assert.Equal(t, Skipped, h.engine.State(it.ID))
	assert.Empty(t, h.build.Log.Entries())
	assert.Contains(t, it.Dependencies(), content.OnFile("static/css/_vars.pcss", source.Hash([]byte(":root{}"))))
}

func TestLayout_CacheOncePerPassAndResolverDependencies(t *testing.T) {
	h := newHarness(t, fstest.MapFS{
		"layouts/_default/single.html": {Data: []byte(`{{ with .Find "/about/" }}{{ .title }}{{ end }}:{{ range .Pages "posts" }}{{ .url }} {{ end }}`)},
	})
	about := h.page(t, "/about/", content.HTML, "")
	about.Bindings.Set("title", content.String("About"))
	about.NoLayout = true
	post := h.page(t, "/posts/one/", content.HTML, "")
	post.Section = "posts"
	post.NoLayout = true
	home := h.page(t, "/", content.HTML, "")
	h.run(t)

	assert.Equal(t, "About:/posts/one/ ", bodyOf(t, home))
	assert.Contains(t, home.Dependencies(), content.OnItem(about.ID))
	assert.Contains(t, home.Dependencies(), content.OnItem(post.ID))
	assert.Len(t, h.engine.cache, 1)
}

func TestLayout_TemplateErrorIsContentError(t *testing.T) {
	h := newHarness(t, fstest.MapFS{
		"layouts/_default/single.html": {Data: []byte(`{{ .Params.missing }}`)},
	})
	it := h.page(t, "/a/", content.HTML, "")
	h.run(t)

	require.Len(t, h.build.Log.Errors(), 1)
	assert.True(t, it.Failed())
}
