package plugins

import (
	"context"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// Minifier minifies css items once per item, after any conversion into css
// has happened.
type Minifier struct {
	done sets.Set[content.ItemID]
}

func (m *Minifier) Name() string { return "minifier" }

func (m *Minifier) Process(_ context.Context, _ *pipeline.Build, stage pipeline.Stage) error {
	if stage == pipeline.BeforeProcess {
		m.done = sets.New[content.ItemID]()
	}
	return nil
}

func (m *Minifier) TryProcessItem(_ context.Context, _ *pipeline.Build, it *content.Item, sub pipeline.SubStage) (pipeline.Result, error) {
	if sub != pipeline.Finalize || it.Type != content.CSS {
		return pipeline.None, nil
	}
	if m.done == nil {
		m.done = sets.New[content.ItemID]()
	}
	if !m.done.Add(it.ID) {
		return pipeline.None, nil
	}
	body, err := it.Body()
	if err != nil {
		return pipeline.Break, errors.ContentError("cannot read stylesheet").WithCause(err).Build()
	}
	out, err := MinifyCSS(body)
	if err != nil {
		return pipeline.Break, errors.ContentError("cannot minify stylesheet").
			WithCause(err).
			WithContext("url", it.URL).
			Build()
	}
	it.SetBody(out)
	return pipeline.Continue, nil
}

// MinifyCSS minifies a stylesheet. License comments (/*! ... */) are kept.
func MinifyCSS(src []byte) ([]byte, error) {
	return cssMinifier.Bytes(cssMediaType, src)
}

const cssMediaType = "text/css"

var cssMinifier = newCSSMinifier()

func newCSSMinifier() *minify.M {
	m := minify.New()
	m.AddFunc(cssMediaType, css.Minify)
	return m
}
