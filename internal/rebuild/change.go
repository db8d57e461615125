// Package rebuild turns file system changes into build passes. A watcher
// reports changes, a debouncer coalesces them into batches, a single
// executor goroutine runs one pass at a time and the controller decides
// between a partial and a full pass for each batch.
package rebuild

import "git.home.luguber.info/inful/sitebuilder/internal/util/sets"

// Kind is the type of a file change.
type Kind int

const (
	Write Kind = iota
	Create
	Remove
	Rename
	// Rescan requests a full pass without naming a path.
	Rescan
)

func (k Kind) String() string {
	switch k {
	case Create:
		return "create"
	case Remove:
		return "remove"
	case Rename:
		return "rename"
	case Rescan:
		return "rescan"
	default:
		return "write"
	}
}

// Change describes one changed path. Paths inside a source root are
// root-relative with forward slashes; anything else is absolute.
type Change struct {
	Path string
	Kind Kind
}

// Batch is an ordered set of changes handled by one pass. Batches are
// never modified after they are handed out.
type Batch []Change

// Merge returns a new batch holding the changes of b followed by the
// changes of others. A path seen again keeps its first position and takes
// the later kind unless that kind is a plain write.
func Merge(b Batch, others ...Batch) Batch {
	out := make(Batch, 0, len(b))
	byPath := make(map[string]int)
	add := func(c Change) {
		if i, ok := byPath[c.Path]; ok {
			if c.Kind != Write {
				out[i].Kind = c.Kind
			}
			return
		}
		byPath[c.Path] = len(out)
		out = append(out, c)
	}
	for _, c := range b {
		add(c)
	}
	for _, o := range others {
		for _, c := range o {
			add(c)
		}
	}
	return out
}

// Paths returns the distinct changed paths in batch order.
func (b Batch) Paths() []string {
	seen := sets.New[string]()
	var out []string
	for _, c := range b {
		if c.Kind == Rescan || c.Path == "" {
			continue
		}
		if seen.Add(c.Path) {
			out = append(out, c.Path)
		}
	}
	return out
}

// Rescans reports whether the batch creates or renames paths or asks for
// a rescan. Such batches cannot be mapped onto recorded dependencies.
func (b Batch) Rescans() bool {
	for _, c := range b {
		switch c.Kind {
		case Create, Rename, Rescan:
			return true
		}
	}
	return false
}
