package plugins

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
)

// Writer renders every live item of this pass that did not fail into the
// build's output batch. Nothing reaches the sink until the batch is
// committed.
type Writer struct{}

func (w *Writer) Name() string { return "writer" }

func (w *Writer) Process(ctx context.Context, b *pipeline.Build, stage pipeline.Stage) error {
	if stage != pipeline.Run {
		return nil
	}
	for _, it := range b.Store.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !b.Current(it) || it.Failed() {
			continue
		}
		body, err := it.Body()
		if err != nil {
			b.Log.ItemError(stage, w.Name(), it, errors.IOError("cannot read source").
				WithCause(err).
				WithContext("path", it.SourcePath).
				Build())
			continue
		}
		b.Output.Put(it.URL, body)
	}
	b.Logger.Debug("Rendered outputs", logfields.BuildID(b.ID), logfields.Items(b.Output.Len()))
	return nil
}
