package pipeline

import (
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/deps"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// Scope limits a partial pass to the source paths and Urls of the items it
// rebuilds. A nil Scope means a full pass.
type Scope struct {
	Paths sets.Set[string]
	URLs  sets.Set[string]
}

// NewScope returns an empty scope.
func NewScope() *Scope {
	return &Scope{Paths: sets.New[string](), URLs: sets.New[string]()}
}

// HasPath reports whether path belongs to the pass.
func (s *Scope) HasPath(path string) bool { return s == nil || s.Paths.Has(path) }

// HasURL reports whether url belongs to the pass.
func (s *Scope) HasURL(url string) bool { return s == nil || s.URLs.Has(content.NormalizeURL(url)) }

// Build is the state shared by all processors during one pass.
type Build struct {
	ID         string
	Mode       Mode
	Generation int
	Started    time.Time

	Store  *content.Store
	Types  *content.TypeRegistry
	Source *source.Overlay
	Deps   *deps.Tracker
	Output *output.Batch
	// Commit is set once the batch has been written to the sink.
	Commit *output.CommitResult
	Log    *Log
	Logger *slog.Logger

	// Site and Sections are the outer lookup scopes of every item.
	Site     *content.Bindings
	Sections map[string]*content.Bindings

	// Scope is nil on full passes.
	Scope *Scope

	Durations map[Stage]time.Duration

	offerFrom map[content.ItemID]int
	active    int
}

// NewBuild assembles the state of a pass. Store, tracker and bindings carry
// over between passes; the log and output batch are always fresh.
func NewBuild(id string, mode Mode, generation int, store *content.Store, tracker *deps.Tracker, src *source.Overlay, types *content.TypeRegistry, logger *slog.Logger) *Build {
	if logger == nil {
		logger = slog.Default()
	}
	return &Build{
		ID:         id,
		Mode:       mode,
		Generation: generation,
		Started:    time.Now(),
		Store:      store,
		Types:      types,
		Source:     src,
		Deps:       tracker,
		Output:     output.NewBatch(),
		Log:        NewLog(logger),
		Logger:     logger,
		Site:       content.NewBindings(),
		Sections:   make(map[string]*content.Bindings),
		Durations:  make(map[Stage]time.Duration),
		offerFrom:  make(map[content.ItemID]int),
		active:     -1,
	}
}

// Add registers item with the store and stamps it with the pass generation.
// Items added while an item processor runs are later offered only to the
// processors registered after it.
func (b *Build) Add(item *content.Item) error {
	item.Generation = b.Generation
	if err := b.Store.Add(item); err != nil {
		return err
	}
	if b.active >= 0 {
		b.offerFrom[item.ID] = b.active + 1
	}
	return nil
}

// Current reports whether item was created in this pass and is still live.
func (b *Build) Current(item *content.Item) bool {
	return item.Generation == b.Generation && item.Live()
}

// Want reports whether a generator should (re)create the item at url: always
// on full passes, and on partial passes when url is in scope or unowned.
func (b *Build) Want(url string) bool {
	if b.Scope == nil || b.Scope.HasURL(url) {
		return true
	}
	_, owned := b.Store.Find(url)
	return !owned
}

// Depend records an edge from item through the tracker.
func (b *Build) Depend(item *content.Item, d content.Dependency) {
	b.Deps.Record(item, d)
}

// DependOnFile records a file dependency with the current fingerprint of path.
func (b *Build) DependOnFile(item *content.Item, path string) {
	fp, err := b.Source.Fingerprint(path)
	if err != nil {
		fp = ""
	}
	b.Deps.Record(item, content.OnFile(path, fp))
}

// Section returns the bindings of a section scope, creating them on demand.
func (b *Build) Section(name string) *content.Bindings {
	s, ok := b.Sections[name]
	if !ok {
		s = content.NewBindings()
		b.Sections[name] = s
	}
	return s
}

// ScopeOf returns the lookup chain item, section, site.
func (b *Build) ScopeOf(item *content.Item) content.Scope {
	return content.Scope{item.Bindings, b.Sections[item.Section], b.Site}
}
