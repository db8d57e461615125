// Package deps tracks which resources every item was derived from and turns
// batches of changed paths into the set of items a rebuild has to redo.
package deps

import (
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// Tracker records dependency edges and answers impact queries through a
// reverse index that is rebuilt once per build pass.
type Tracker struct {
	global sets.Set[string]

	byPath       map[string]sets.Set[content.ItemID]
	byTarget     map[content.ItemID]sets.Set[content.ItemID]
	fingerprints map[string]string
	indexed      bool
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		global:       sets.New[string](),
		byPath:       make(map[string]sets.Set[content.ItemID]),
		byTarget:     make(map[content.ItemID]sets.Set[content.ItemID]),
		fingerprints: make(map[string]string),
	}
}

// Record adds d to it. Recording the same edge twice is a no-op apart from
// refreshing a file fingerprint. It reports whether the edge was new.
func (t *Tracker) Record(it *content.Item, d content.Dependency) bool {
	added := it.AddDependency(d)
	if added {
		t.indexed = false
	}
	return added
}

// MarkGlobal registers a path every item implicitly depends on, such as site
// data or configuration. A change to it cannot be bounded.
func (t *Tracker) MarkGlobal(path string) {
	t.global.Add(path)
}

// IsGlobal reports whether path was registered with MarkGlobal.
func (t *Tracker) IsGlobal(path string) bool {
	return t.global.Has(path)
}

// Indexed reports whether the reverse index reflects every recorded edge.
func (t *Tracker) Indexed() bool { return t.indexed }

// Reindex rebuilds the reverse index from all tracked items of the store.
func (t *Tracker) Reindex(store *content.Store) {
	t.byPath = make(map[string]sets.Set[content.ItemID])
	t.byTarget = make(map[content.ItemID]sets.Set[content.ItemID])
	t.fingerprints = make(map[string]string)

	for _, it := range store.Tracked() {
		for _, d := range it.Dependencies() {
			switch d.Kind {
			case content.FileDependency:
				addEdge(t.byPath, d.Path, it.ID)
				if d.Fingerprint != "" {
					t.fingerprints[d.Path] = d.Fingerprint
				}
			case content.ItemDependency:
				addEdge(t.byTarget, d.Target, it.ID)
			}
		}
	}
	t.indexed = true
}

// Fingerprint returns the fingerprint recorded for path during the last
// indexed pass.
func (t *Tracker) Fingerprint(path string) (string, bool) {
	fp, ok := t.fingerprints[path]
	return fp, ok
}

// Known reports whether any tracked item depends on path.
func (t *Tracker) Known(path string) bool {
	return len(t.byPath[path]) > 0 || t.global.Has(path)
}

// Dependents returns the items holding an ItemDependency on id.
func (t *Tracker) Dependents(id content.ItemID) []content.ItemID {
	return sortedIDs(t.byTarget[id])
}

// Impact is the result of mapping changed paths onto items.
type Impact struct {
	// Items holds every directly or transitively impacted item in id order.
	Items []content.ItemID
	// Global lists changed paths registered as global.
	Global []string
	// Unmatched lists changed paths no tracked item depends on.
	Unmatched []string
	// Relisted lists changed pages whose edit adds them to or removes them
	// from generated lists. Lists hold no edge to pages they do not yet
	// contain, so Items cannot bound the change. The tracker never fills
	// it; callers that can compare sources do.
	Relisted []string
}

// Unbounded reports whether the change cannot be limited to Items.
func (i Impact) Unbounded() bool {
	return len(i.Global) > 0 || len(i.Unmatched) > 0 || len(i.Relisted) > 0
}

// Impacted computes the items affected by the changed paths: direct file
// dependents, then the reverse ItemDependency closure. Cycles are handled by
// visited marking.
func (t *Tracker) Impacted(paths []string) Impact {
	var imp Impact
	visited := sets.New[content.ItemID]()
	var queue []content.ItemID

	for _, p := range dedupe(paths) {
		if t.global.Has(p) {
			imp.Global = append(imp.Global, p)
			continue
		}
		seeds, ok := t.byPath[p]
		if !ok || len(seeds) == 0 {
			imp.Unmatched = append(imp.Unmatched, p)
			continue
		}
		for _, id := range sortedIDs(seeds) {
			if visited.Add(id) {
				queue = append(queue, id)
			}
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range sortedIDs(t.byTarget[id]) {
			if visited.Add(dep) {
				queue = append(queue, dep)
			}
		}
	}

	imp.Items = sortedIDs(visited)
	return imp
}

func addEdge[K comparable](index map[K]sets.Set[content.ItemID], key K, id content.ItemID) {
	s, ok := index[key]
	if !ok {
		s = sets.New[content.ItemID]()
		index[key] = s
	}
	s.Add(id)
}

func sortedIDs(s sets.Set[content.ItemID]) []content.ItemID {
	return sets.Sorted(s)
}

func dedupe(paths []string) []string {
	s := sets.New(paths...)
	return sets.Sorted(s)
}
