package content

import "strconv"

// DependencyKind discriminates dependency edges.
type DependencyKind int

const (
	// FileDependency points at a source path; Fingerprint is the content hash
	// observed when the edge was recorded.
	FileDependency DependencyKind = iota
	// ItemDependency points at another item of the same store.
	ItemDependency
)

// Dependency is one edge from an item to a resource it was derived from.
type Dependency struct {
	Kind        DependencyKind
	Path        string
	Fingerprint string
	Target      ItemID
}

// OnFile returns a file dependency edge.
func OnFile(path, fingerprint string) Dependency {
	return Dependency{Kind: FileDependency, Path: path, Fingerprint: fingerprint}
}

// OnItem returns an item dependency edge.
func OnItem(id ItemID) Dependency {
	return Dependency{Kind: ItemDependency, Target: id}
}

// Key identifies the edge for idempotent recording. The fingerprint is not
// part of the key; recording the same path again refreshes it.
func (d Dependency) Key() string {
	if d.Kind == ItemDependency {
		return "item:" + strconv.FormatUint(uint64(d.Target), 10)
	}
	return "file:" + d.Path
}
