package content

import (
	"sort"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Store owns every item of a build, keyed by the output file its Url
// publishes to, so /a/ and /a/index.html are the same slot. Items live in an
// arena with stable ids so dependency edges stay valid after discard or
// eviction until the store is compacted.
type Store struct {
	items    map[ItemID]*Item
	byOutput map[string]ItemID
	nextID   ItemID
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		items:    make(map[ItemID]*Item),
		byOutput: make(map[string]ItemID),
	}
}

// Add registers item under its Url and assigns its id. A live owner of the
// same output file is a conflict; a discarded or superseded owner is
// replaced.
func (s *Store) Add(item *Item) error {
	item.URL = NormalizeURL(item.URL)
	if owner, ok := s.liveOwner(item.URL); ok && owner != item {
		return errors.ConflictError("url already owned by another item").
			WithContext("url", item.URL).
			WithContext("owner", describe(owner)).
			WithContext("path", describe(item)).
			Build()
	}
	if item.ID == 0 {
		s.nextID++
		item.ID = s.nextID
	}
	if item.Bindings == nil {
		item.Bindings = NewBindings()
	}
	s.items[item.ID] = item
	s.byOutput[OutputPath(item.URL)] = item.ID
	return nil
}

// Retarget moves a live item to a new Url under the same uniqueness rule.
func (s *Store) Retarget(item *Item, url string) error {
	url = NormalizeURL(url)
	if url == item.URL {
		return nil
	}
	if owner, ok := s.liveOwner(url); ok && owner != item {
		return errors.ConflictError("url already owned by another item").
			WithContext("url", url).
			WithContext("owner", describe(owner)).
			WithContext("path", describe(item)).
			Build()
	}
	if OutputPath(url) == OutputPath(item.URL) {
		item.URL = url
		return nil
	}
	if id, ok := s.byOutput[OutputPath(item.URL)]; ok && id == item.ID {
		delete(s.byOutput, OutputPath(item.URL))
	}
	item.URL = url
	if item.ID != 0 {
		s.byOutput[OutputPath(url)] = item.ID
	}
	return nil
}

// Find returns the live item publishing the output file of url.
func (s *Store) Find(url string) (*Item, bool) {
	return s.liveOwner(NormalizeURL(url))
}

// Get returns any item still in the arena, including discarded and
// superseded ones.
func (s *Store) Get(id ItemID) (*Item, bool) {
	it, ok := s.items[id]
	return it, ok
}

// Evict marks an item superseded and releases its Url.
func (s *Store) Evict(id ItemID) {
	it, ok := s.items[id]
	if !ok {
		return
	}
	it.superseded = true
	key := OutputPath(it.URL)
	if owner, ok := s.byOutput[key]; ok && owner == id {
		delete(s.byOutput, key)
	}
}

// Compact drops superseded items from the arena and returns how many were
// removed.
func (s *Store) Compact() int {
	n := 0
	for id, it := range s.items {
		if it.superseded {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// All returns every live item in id order.
func (s *Store) All() []*Item {
	return s.filter(func(it *Item) bool { return it.Live() })
}

// Pages returns live page items in id order.
func (s *Store) Pages() []*Item {
	return s.filter(func(it *Item) bool { return it.Live() && it.Set == Pages })
}

// StaticFiles returns live static items in id order.
func (s *Store) StaticFiles() []*Item {
	return s.filter(func(it *Item) bool { return it.Live() && it.Set == StaticFiles })
}

// DynamicItems returns live synthesized items in id order.
func (s *Store) DynamicItems() []*Item {
	return s.filter(func(it *Item) bool { return it.Live() && it.Set == DynamicItems })
}

// Tracked returns every item that has not been superseded, discarded ones
// included, in id order. Dependency indexes are built from this set.
func (s *Store) Tracked() []*Item {
	return s.filter(func(it *Item) bool { return !it.superseded })
}

// BySource returns live items loaded from the given source path.
func (s *Store) BySource(path string) []*Item {
	return s.filter(func(it *Item) bool { return it.Live() && it.SourcePath == path })
}

// Len counts items in the arena, live or not.
func (s *Store) Len() int { return len(s.items) }

// MaxID returns the highest id assigned so far.
func (s *Store) MaxID() ItemID { return s.nextID }

func (s *Store) liveOwner(url string) (*Item, bool) {
	id, ok := s.byOutput[OutputPath(url)]
	if !ok {
		return nil, false
	}
	it := s.items[id]
	if it == nil || !it.Live() {
		return nil, false
	}
	return it, true
}

func (s *Store) filter(keep func(*Item) bool) []*Item {
	out := make([]*Item, 0, len(s.items))
	for _, it := range s.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func describe(it *Item) string {
	if it.SourcePath != "" {
		return it.SourcePath
	}
	return it.Kind.String() + ":" + it.URL
}
