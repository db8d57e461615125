package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"":                "/",
		"posts/hello/":    "/posts/hello/",
		"\\css\\site.css": "/css/site.css",
		"/a//b/../c/":     "/a/c/",
		"  /about  ":      "/about",
		"/":               "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeURL(in), "input %q", in)
	}
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "index.html", OutputPath("/"))
	assert.Equal(t, "posts/hello/index.html", OutputPath("/posts/hello/"))
	assert.Equal(t, "css/site.css", OutputPath("/css/site.css"))
}

func TestStore_AddConflictNeverOverwrites(t *testing.T) {
	s := NewStore()
	first := NewFileItem(Pages, "/about/", "content/about.md", Markdown, nil)
	second := NewFileItem(Pages, "/about/", "content/about.html", HTML, nil)

	require.NoError(t, s.Add(first))
	err := s.Add(second)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConflict))

	got, ok := s.Find("/about/")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Len(t, s.Pages(), 1)
	assert.Zero(t, second.ID)
}

func TestStore_SameOutputFileConflicts(t *testing.T) {
	s := NewStore()
	page := NewFileItem(Pages, "/a/", "content/a/index.md", Markdown, nil)
	file := NewFileItem(StaticFiles, "/a/index.html", "static/a/index.html", HTML, nil)

	require.NoError(t, s.Add(page))
	err := s.Add(file)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConflict))

	got, ok := s.Find("/a/index.html")
	require.True(t, ok)
	assert.Same(t, page, got)

	other := NewFileItem(Pages, "/b/", "content/b.md", Markdown, nil)
	require.NoError(t, s.Add(other))
	require.Error(t, s.Retarget(other, "/a/index.html"))
	assert.Equal(t, "/b/", other.URL)

	require.NoError(t, s.Retarget(page, "/a/index.html"))
	got, ok = s.Find("/a/")
	require.True(t, ok)
	assert.Same(t, page, got)
}

func TestStore_DiscardReleasesFindButKeepsArena(t *testing.T) {
	s := NewStore()
	a := NewDynamicItem("/tags/go/", HTML, nil)
	require.NoError(t, s.Add(a))

	a.Discard()
	_, ok := s.Find("/tags/go/")
	assert.False(t, ok)

	got, ok := s.Get(a.ID)
	require.True(t, ok)
	assert.True(t, got.Discarded())

	b := NewDynamicItem("/tags/go/", HTML, nil)
	require.NoError(t, s.Add(b))
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, s.DynamicItems(), 1)
}

func TestStore_EvictAndCompact(t *testing.T) {
	s := NewStore()
	a := NewFileItem(Pages, "/a/", "content/a.md", Markdown, nil)
	b := NewFileItem(StaticFiles, "/b.css", "static/b.css", CSS, nil)
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))

	s.Evict(a.ID)
	assert.True(t, a.Superseded())
	_, ok := s.Find("/a/")
	assert.False(t, ok)

	replacement := NewFileItem(Pages, "/a/", "content/a.md", Markdown, nil)
	require.NoError(t, s.Add(replacement))
	assert.Greater(t, replacement.ID, b.ID)

	assert.Equal(t, 1, s.Compact())
	_, ok = s.Get(a.ID)
	assert.False(t, ok)
	assert.Equal(t, []*Item{b, replacement}, s.All())
	assert.Equal(t, []*Item{replacement}, s.BySource("content/a.md"))
}

func TestStore_Retarget(t *testing.T) {
	s := NewStore()
	a := NewFileItem(Pages, "/a/", "content/a.md", Markdown, nil)
	b := NewFileItem(Pages, "/b/", "content/b.md", Markdown, nil)
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))

	require.NoError(t, s.Retarget(a, "/custom/"))
	_, ok := s.Find("/a/")
	assert.False(t, ok)
	got, ok := s.Find("/custom/")
	require.True(t, ok)
	assert.Same(t, a, got)

	err := s.Retarget(b, "/custom/")
	require.Error(t, err)
	assert.Equal(t, "/b/", b.URL)
}

func TestItem_LazyBodyAndDependencies(t *testing.T) {
	reads := 0
	it := NewFileItem(Pages, "/x/", "content/x.md", Markdown, func() ([]byte, error) {
		reads++
		return []byte("# x"), nil
	})

	assert.False(t, it.Loaded())
	body, err := it.Body()
	require.NoError(t, err)
	assert.Equal(t, "# x", string(body))
	_, _ = it.Body()
	assert.Equal(t, 1, reads)

	assert.True(t, it.AddDependency(OnFile("layouts/_default/single.html", "h1")))
	assert.False(t, it.AddDependency(OnFile("layouts/_default/single.html", "h2")))
	assert.True(t, it.AddDependency(OnItem(7)))
	assert.False(t, it.AddDependency(OnItem(7)))

	deps := it.Dependencies()
	require.Len(t, deps, 2)
	assert.Equal(t, "h2", deps[0].Fingerprint)
	assert.Equal(t, ItemID(7), deps[1].Target)
}

func TestItem_Title(t *testing.T) {
	it := NewFileItem(Pages, "/posts/hello-world/", "content/posts/hello-world.md", Markdown, nil)
	assert.Equal(t, "hello-world", it.Title())
	it.Bindings.Set("title", String("Hello"))
	assert.Equal(t, "Hello", it.Title())
}

func TestSortPages(t *testing.T) {
	mk := func(url, date string, weight float64) *Item {
		it := NewDynamicItem(url, HTML, nil)
		if date != "" {
			it.Bindings.Set("date", String(date))
		}
		if weight != 0 {
			it.Bindings.Set("weight", Number(weight))
		}
		return it
	}
	old := mk("/old/", "2023-01-01", 0)
	newer := mk("/new/", "2024-05-01", 0)
	undated := mk("/undated/", "", 0)
	heavy := mk("/heavy/", "2024-05-01", 5)

	items := []*Item{undated, old, heavy, newer}
	SortPages(items)
	assert.Equal(t, []*Item{newer, heavy, old, undated}, items)

	s := newer.Summary()
	assert.Equal(t, "/new/", s["url"])
	assert.Equal(t, "new", s["title"])
	assert.Equal(t, "2024-05-01", s["date"])
}
