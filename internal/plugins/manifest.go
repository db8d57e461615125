package plugins

import (
	"context"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/state"
)

// Manifest persists the committed outputs, their dependencies and a build
// history entry to the state store.
type Manifest struct {
	State *state.Store
}

func (m *Manifest) Name() string { return "manifest" }

func (m *Manifest) Process(ctx context.Context, b *pipeline.Build, stage pipeline.Stage) error {
	if stage != pipeline.AfterRun || m.State == nil || b.Commit == nil {
		return nil
	}

	records := make([]state.OutputRecord, 0, len(b.Commit.Manifest))
	for _, u := range b.Commit.Manifest.URLs() {
		rec := state.OutputRecord{URL: u, Hash: b.Commit.Manifest[u]}
		if it, ok := b.Store.Find(u); ok {
			rec.Source = it.SourcePath
			rec.Edges = edgesOf(b.Store, it)
		}
		records = append(records, rec)
	}
	if err := m.State.ReplaceOutputs(ctx, records); err != nil {
		return errors.IOError("cannot persist manifest").WithCause(err).Build()
	}

	current := 0
	for _, it := range b.Store.All() {
		if it.Generation == b.Generation {
			current++
		}
	}
	outcome := metrics.OutcomeSuccess
	switch {
	case b.Log.Failed():
		outcome = metrics.OutcomeFailed
	case len(b.Log.Warnings()) > 0:
		outcome = metrics.OutcomeWarning
	}
	err := m.State.RecordBuild(ctx, state.BuildRecord{
		ID:       b.ID,
		Mode:     b.Mode.String(),
		Outcome:  string(outcome),
		Started:  b.Started,
		Duration: time.Since(b.Started),
		Items:    current,
		Written:  len(b.Commit.Written),
		Removed:  len(b.Commit.Removed),
		Errors:   len(b.Log.Errors()),
		Warnings: len(b.Log.Warnings()),
	})
	if err != nil {
		return errors.IOError("cannot record build").WithCause(err).Build()
	}
	return nil
}

func edgesOf(store *content.Store, it *content.Item) []state.Edge {
	var out []state.Edge
	for _, d := range it.Dependencies() {
		switch d.Kind {
		case content.FileDependency:
			out = append(out, state.Edge{Kind: state.EdgeFile, Ref: d.Path, Fingerprint: d.Fingerprint})
		case content.ItemDependency:
			if target, ok := store.Get(d.Target); ok && target.Live() {
				out = append(out, state.Edge{Kind: state.EdgeItem, Ref: target.URL})
			}
		}
	}
	return out
}
