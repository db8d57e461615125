package plugins

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/convert"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
)

// HighlightCSSURL is where the code highlighting stylesheet is published.
const HighlightCSSURL = "/css/highlight.css"

// HighlightCSS publishes the stylesheet for the classes the markdown
// converter puts on highlighted code, unless the site ships its own.
type HighlightCSS struct {
	Style string
}

func (h *HighlightCSS) Name() string { return "highlight-css" }

func (h *HighlightCSS) Process(_ context.Context, b *pipeline.Build, stage pipeline.Stage) error {
	if stage != pipeline.BeforeProcess || !b.Want(HighlightCSSURL) {
		return nil
	}
	if _, owned := b.Store.Find(HighlightCSSURL); owned {
		return nil
	}
	css, err := convert.StyleCSS(h.Style)
	if err != nil {
		return errors.InternalError("cannot render highlight stylesheet").WithCause(err).Build()
	}
	it := content.NewDynamicItem(HighlightCSSURL, content.CSS, []byte(css))
	it.NoLayout = true
	return b.Add(it)
}
