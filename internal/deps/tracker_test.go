package deps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

type fixture struct {
	store   *content.Store
	tracker *Tracker
	a, b, c *content.Item
	list    *content.Item
}

// a and b are pages sharing a layout; list depends on both; c depends on list
// and list depends on c, forming a cycle.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: content.NewStore(), tracker: NewTracker()}
	f.a = content.NewFileItem(content.Pages, "/a/", "content/a.md", content.Markdown, nil)
	f.b = content.NewFileItem(content.Pages, "/b/", "content/b.md", content.Markdown, nil)
	f.c = content.NewFileItem(content.Pages, "/c/", "content/c.md", content.Markdown, nil)
	f.list = content.NewDynamicItem("/", content.HTML, nil)
	for _, it := range []*content.Item{f.a, f.b, f.c, f.list} {
		require.NoError(t, f.store.Add(it))
	}

	f.tracker.Record(f.a, content.OnFile("content/a.md", "fa"))
	f.tracker.Record(f.b, content.OnFile("content/b.md", "fb"))
	f.tracker.Record(f.c, content.OnFile("content/c.md", "fc"))
	f.tracker.Record(f.a, content.OnFile("layouts/_default/single.html", "l1"))
	f.tracker.Record(f.b, content.OnFile("layouts/_default/single.html", "l1"))
	f.tracker.Record(f.list, content.OnItem(f.a.ID))
	f.tracker.Record(f.list, content.OnItem(f.b.ID))
	f.tracker.Record(f.list, content.OnItem(f.c.ID))
	f.tracker.Record(f.c, content.OnItem(f.list.ID))
	f.tracker.Reindex(f.store)
	return f
}

func TestRecord_Idempotent(t *testing.T) {
	f := newFixture(t)
	assert.True(t, f.tracker.Indexed())

	assert.False(t, f.tracker.Record(f.a, content.OnFile("content/a.md", "fa")))
	assert.True(t, f.tracker.Indexed())
	assert.Len(t, f.a.Dependencies(), 2)

	assert.True(t, f.tracker.Record(f.a, content.OnItem(f.b.ID)))
	assert.False(t, f.tracker.Indexed())
}

func TestImpacted_DirectAndTransitive(t *testing.T) {
	f := newFixture(t)

	imp := f.tracker.Impacted([]string{"content/a.md"})
	assert.False(t, imp.Unbounded())
	assert.Equal(t, []content.ItemID{f.a.ID, f.c.ID, f.list.ID}, imp.Items)
}

func TestImpacted_SharedLayout(t *testing.T) {
	f := newFixture(t)

	imp := f.tracker.Impacted([]string{"layouts/_default/single.html", "layouts/_default/single.html"})
	assert.Equal(t, []content.ItemID{f.a.ID, f.b.ID, f.c.ID, f.list.ID}, imp.Items)
}

func TestImpacted_CycleTerminates(t *testing.T) {
	f := newFixture(t)

	imp := f.tracker.Impacted([]string{"content/c.md"})
	assert.Equal(t, []content.ItemID{f.c.ID, f.list.ID}, imp.Items)
}

func TestImpacted_UnboundedPaths(t *testing.T) {
	f := newFixture(t)
	f.tracker.MarkGlobal("data/menu.yaml")

	imp := f.tracker.Impacted([]string{"data/menu.yaml", "content/new.md", "content/b.md"})
	assert.True(t, imp.Unbounded())
	assert.Equal(t, []string{"data/menu.yaml"}, imp.Global)
	assert.Equal(t, []string{"content/new.md"}, imp.Unmatched)
	assert.Equal(t, []content.ItemID{f.b.ID, f.c.ID, f.list.ID}, imp.Items)
	assert.True(t, f.tracker.Known("data/menu.yaml"))
	assert.False(t, f.tracker.Known("content/new.md"))
}

func TestImpact_RelistedIsUnbounded(t *testing.T) {
	imp := Impact{Items: []content.ItemID{1}}
	assert.False(t, imp.Unbounded())

	imp.Relisted = []string{"content/a.md"}
	assert.True(t, imp.Unbounded())
}

func TestReindex_FingerprintsAndDiscardedItems(t *testing.T) {
	f := newFixture(t)
	fp, ok := f.tracker.Fingerprint("layouts/_default/single.html")
	require.True(t, ok)
	assert.Equal(t, "l1", fp)

	f.b.Discard()
	f.tracker.Reindex(f.store)
	imp := f.tracker.Impacted([]string{"content/b.md"})
	assert.Contains(t, imp.Items, f.b.ID)

	f.store.Evict(f.b.ID)
	f.tracker.Reindex(f.store)
	imp = f.tracker.Impacted([]string{"content/b.md"})
	assert.Equal(t, []string{"content/b.md"}, imp.Unmatched)
	assert.Equal(t, []content.ItemID{f.list.ID}, f.tracker.Dependents(f.a.ID))
}
