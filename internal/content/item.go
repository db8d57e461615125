package content

import (
	"path"
	"strings"
)

// ItemID is the stable arena identifier of an item. Zero means unassigned.
type ItemID uint64

// ItemKind distinguishes items backed by a source file from synthesized ones.
type ItemKind int

const (
	FileItem ItemKind = iota
	DynamicItem
)

func (k ItemKind) String() string {
	if k == DynamicItem {
		return "dynamic"
	}
	return "file"
}

// ItemSet is the store partition an item belongs to.
type ItemSet int

const (
	Pages ItemSet = iota
	StaticFiles
	DynamicItems
)

func (s ItemSet) String() string {
	switch s {
	case StaticFiles:
		return "static"
	case DynamicItems:
		return "dynamic"
	default:
		return "page"
	}
}

// LoadFunc reads the source bytes of a file item.
type LoadFunc func() ([]byte, error)

// Item is one unit of content flowing through a build.
type Item struct {
	ID   ItemID
	Kind ItemKind
	Set  ItemSet

	URL        string
	SourcePath string
	Type       Type

	// Layout and LayoutKind select the layout chain. Empty values mean the
	// defaults of the layout engine.
	Layout     string
	LayoutKind string
	// NoLayout marks machine outputs (sitemaps, feeds) that never get a layout.
	NoLayout bool

	// Section names the content section the item belongs to; "" is the root.
	Section string

	Bindings *Bindings

	// Membership renders the front matter values that decide which
	// generated lists the item appears on. Partial passes compare it with
	// the edited source.
	Membership string

	// Generation is the build pass that created the item.
	Generation int

	body     []byte
	loaded   bool
	load     LoadFunc
	deps     []Dependency
	depIndex map[string]int

	discarded  bool
	superseded bool
	failed     bool
}

// NewFileItem returns a page or static item whose body is read lazily.
func NewFileItem(set ItemSet, url, sourcePath string, t Type, load LoadFunc) *Item {
	return &Item{
		Kind:       FileItem,
		Set:        set,
		URL:        NormalizeURL(url),
		SourcePath: sourcePath,
		Type:       t,
		Bindings:   NewBindings(),
		load:       load,
	}
}

// NewDynamicItem returns a synthesized item with the given body.
func NewDynamicItem(url string, t Type, body []byte) *Item {
	return &Item{
		Kind:     DynamicItem,
		Set:      DynamicItems,
		URL:      NormalizeURL(url),
		Type:     t,
		Bindings: NewBindings(),
		body:     body,
		loaded:   true,
	}
}

// Body returns the current content, reading the source on first access.
func (it *Item) Body() ([]byte, error) {
	if !it.loaded {
		if it.load == nil {
			it.loaded = true
			return it.body, nil
		}
		b, err := it.load()
		if err != nil {
			return nil, err
		}
		it.body = b
		it.loaded = true
	}
	return it.body, nil
}

// SetBody replaces the current content.
func (it *Item) SetBody(b []byte) {
	it.body = b
	it.loaded = true
}

// Loaded reports whether the body has been read or set.
func (it *Item) Loaded() bool { return it.loaded }

// AddDependency records d once and reports whether the edge is new. A file
// edge recorded again refreshes its fingerprint.
func (it *Item) AddDependency(d Dependency) bool {
	if it.depIndex == nil {
		it.depIndex = make(map[string]int)
	}
	k := d.Key()
	if i, ok := it.depIndex[k]; ok {
		if d.Kind == FileDependency && d.Fingerprint != "" {
			it.deps[i].Fingerprint = d.Fingerprint
		}
		return false
	}
	it.depIndex[k] = len(it.deps)
	it.deps = append(it.deps, d)
	return true
}

// Dependencies returns the edges in recording order.
func (it *Item) Dependencies() []Dependency {
	return append([]Dependency(nil), it.deps...)
}

// Discard excludes the item from emission and further offers. Edges pointing
// at it stay valid.
func (it *Item) Discard() { it.discarded = true }

func (it *Item) Discarded() bool { return it.discarded }

// MarkFailed records that a content error was logged against the item.
func (it *Item) MarkFailed() { it.failed = true }

func (it *Item) Failed() bool { return it.failed }

// Superseded reports whether a later pass evicted the item.
func (it *Item) Superseded() bool { return it.superseded }

// Live reports whether the item still takes part in the build.
func (it *Item) Live() bool { return !it.discarded && !it.superseded }

// Title returns the title binding, falling back to the last Url segment.
func (it *Item) Title() string {
	if t := it.Bindings.GetString("title"); t != "" {
		return t
	}
	base := path.Base(strings.TrimSuffix(it.URL, "/"))
	if base == "/" || base == "." {
		return ""
	}
	return base
}

// NormalizeURL makes a Url site-rooted, forward-slashed and clean while
// keeping a trailing slash.
func NormalizeURL(u string) string {
	u = strings.ReplaceAll(strings.TrimSpace(u), "\\", "/")
	if u == "" {
		return "/"
	}
	trailing := strings.HasSuffix(u, "/")
	u = path.Clean("/" + u)
	if trailing && u != "/" {
		u += "/"
	}
	return u
}

// OutputPath maps a Url onto a relative output file path.
func OutputPath(url string) string {
	u := NormalizeURL(url)
	if strings.HasSuffix(u, "/") {
		u += "index.html"
	}
	return strings.TrimPrefix(u, "/")
}
