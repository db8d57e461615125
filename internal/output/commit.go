package output

import (
	"fmt"
	"sort"

	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

// Manifest maps every published Url to the hash of its bytes.
type Manifest map[string]string

// Clone returns an independent copy.
func (m Manifest) Clone() Manifest {
	out := make(Manifest, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// URLs returns the Urls in sorted order.
func (m Manifest) URLs() []string {
	out := make([]string, 0, len(m))
	for u := range m {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// CommitResult describes what a commit changed on the sink.
type CommitResult struct {
	Written   []string
	Unchanged []string
	Removed   []string
	Manifest  Manifest
}

// Changed returns written and removed Urls together, sorted.
func (r CommitResult) Changed() []string {
	out := append(append([]string(nil), r.Written...), r.Removed...)
	sort.Strings(out)
	return out
}

// Commit writes the batch to sink, skipping Urls whose bytes match prev, and
// removes the stale Urls. The returned manifest is prev updated with the
// commit.
func Commit(sink Sink, batch *Batch, prev Manifest, stale []string) (CommitResult, error) {
	res := CommitResult{Manifest: prev.Clone()}
	for _, u := range batch.URLs() {
		data, _ := batch.Get(u)
		h := source.Hash(data)
		if prev[u] == h {
			res.Unchanged = append(res.Unchanged, u)
			continue
		}
		if err := sink.Write(u, data); err != nil {
			return res, fmt.Errorf("commit: %w", err)
		}
		res.Manifest[u] = h
		res.Written = append(res.Written, u)
	}
	sort.Strings(stale)
	for _, u := range stale {
		if batch.Has(u) {
			continue
		}
		if err := sink.Remove(u); err != nil {
			return res, fmt.Errorf("commit: %w", err)
		}
		delete(res.Manifest, u)
		res.Removed = append(res.Removed, u)
	}
	return res, nil
}

// Stale returns the Urls of prev that the batch no longer emits.
func Stale(prev Manifest, batch *Batch) []string {
	var out []string
	for _, u := range prev.URLs() {
		if !batch.Has(u) {
			out = append(out, u)
		}
	}
	return out
}
