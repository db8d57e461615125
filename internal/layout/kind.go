package layout

import "git.home.luguber.info/inful/sitebuilder/internal/content"

// DefaultName is the layout name used when an item does not choose one and
// the fallback probed after any other name.
const DefaultName = "_default"

// Kind selects how candidate layout files are probed for a name.
type Kind string

const (
	Single Kind = "single"
	List   Kind = "list"
)

// Prober returns the extensionless candidate files for a layout name, in
// priority order, relative to the layout directory.
type Prober func(name string) []string

func singleProber(name string) []string {
	return []string{name + "/single", name + ".single", name}
}

func listProber(name string) []string {
	return []string{name + "/list", name + ".list"}
}

func kindProber(k Kind) Prober {
	return func(name string) []string {
		return []string{name + "/" + string(k), name + "." + string(k)}
	}
}

// State tracks where an item is in layout resolution.
type State int

const (
	AwaitingConversion State = iota
	AwaitingLayout
	Applied
	Skipped
	Cycle
)

func (s State) String() string {
	switch s {
	case AwaitingConversion:
		return "awaiting_conversion"
	case AwaitingLayout:
		return "awaiting_layout"
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Cycle:
		return "cycle"
	default:
		return "unknown"
	}
}

// KindOf returns the layout kind of an item, defaulting to Single.
func KindOf(it *content.Item) Kind {
	if it.LayoutKind == "" {
		return Single
	}
	return Kind(it.LayoutKind)
}
