// Package output collects the files a build pass emits and commits them to a
// sink once the pass has finished. Nothing reaches the sink while a pass is
// still running, so a cancelled pass leaves the published tree untouched.
package output

import (
	"sort"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// Batch buffers rendered outputs keyed by Url.
type Batch struct {
	files map[string][]byte
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{files: make(map[string][]byte)}
}

// Put stores data for url, replacing any earlier entry.
func (b *Batch) Put(url string, data []byte) {
	b.files[content.NormalizeURL(url)] = data
}

// Get returns the buffered bytes for url.
func (b *Batch) Get(url string) ([]byte, bool) {
	d, ok := b.files[content.NormalizeURL(url)]
	return d, ok
}

// Has reports whether url was emitted.
func (b *Batch) Has(url string) bool {
	_, ok := b.files[content.NormalizeURL(url)]
	return ok
}

// URLs returns the emitted Urls in sorted order.
func (b *Batch) URLs() []string {
	out := make([]string, 0, len(b.files))
	for u := range b.files {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (b *Batch) Len() int { return len(b.files) }
