package plugins

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// Committer writes the output batch to the sink after the Run stage and
// removes outputs that are no longer produced. It keeps the manifest of
// published hashes between passes so unchanged bytes are never rewritten.
// A cancelled pass never reaches AfterRun, so it commits nothing.
type Committer struct {
	Sink     output.Sink
	manifest output.Manifest
}

// NewCommitter returns a committer whose previous state is prev, typically
// loaded from the state store.
func NewCommitter(sink output.Sink, prev output.Manifest) *Committer {
	if prev == nil {
		prev = output.Manifest{}
	}
	return &Committer{Sink: sink, manifest: prev}
}

func (c *Committer) Name() string { return "commit" }

// Manifest returns the published hashes after the last commit.
func (c *Committer) Manifest() output.Manifest { return c.manifest.Clone() }

func (c *Committer) Process(_ context.Context, b *pipeline.Build, stage pipeline.Stage) error {
	if stage != pipeline.AfterRun {
		return nil
	}
	res, err := output.Commit(c.Sink, b.Output, c.manifest, c.stale(b))
	c.manifest = res.Manifest
	b.Commit = &res
	if err != nil {
		return errors.IOError("cannot write outputs").WithCause(err).Build()
	}
	return nil
}

// stale lists the published Urls this pass no longer emits. A partial pass
// only answers for the Urls in its scope.
func (c *Committer) stale(b *pipeline.Build) []string {
	if b.Scope == nil {
		return output.Stale(c.manifest, b.Output)
	}
	candidates := sets.New[string]()
	for u := range b.Scope.URLs {
		if _, published := c.manifest[u]; published && !b.Output.Has(u) {
			candidates.Add(u)
		}
	}
	var out []string
	for _, u := range sets.Sorted(candidates) {
		if owner, ok := b.Store.Find(u); ok && !b.Current(owner) {
			continue
		}
		out = append(out, u)
	}
	return out
}
