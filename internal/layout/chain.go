package layout

import (
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// applyChain applies the item's layout and every next layout it declares.
// The visited set bounds the recursion; revisiting a name and kind is a
// cycle. A next name that falls back to a file already applied ends the
// chain, so no file wraps the body twice.
func (e *Engine) applyChain(b *pipeline.Build, it *content.Item) (pipeline.Result, error) {
	if it.NoLayout || it.Set == content.StaticFiles {
		e.states[it.ID] = Skipped
		return pipeline.None, nil
	}

	name, kind := e.nameOf(it), KindOf(it)
	visited := sets.New[string]()
	files := sets.New[string]()
	applied := 0
	for {
		if !visited.Add(name + "|" + string(kind)) {
			e.states[it.ID] = Cycle
			return pipeline.Break, errors.ContentError("layout cycle").
				WithContext("layout", name).
				WithContext("kind", string(kind)).
				WithContext("url", it.URL).
				Build()
		}

		l, err := e.Resolve(b, name, kind, it.Type)
		if err != nil {
			e.states[it.ID] = Skipped
			return pipeline.Break, err
		}
		if l == nil {
			if applied == 0 {
				e.states[it.ID] = Skipped
				b.Log.ItemWarning(pipeline.Process, e.Name(), it,
					"no layout found for "+name+"/"+string(kind)+"; content left as-is")
				return pipeline.None, nil
			}
			b.Log.ItemWarning(pipeline.Process, e.Name(), it,
				"next layout "+name+"/"+string(kind)+" not found; chain stopped")
			break
		}
		if !files.Add(l.Path) {
			b.Log.ItemWarning(pipeline.Process, e.Name(), it,
				"next layout "+name+"/"+string(kind)+" resolves to "+l.Path+", already applied; chain stopped")
			break
		}

		if err := e.apply(b, it, l, kind); err != nil {
			e.states[it.ID] = Skipped
			return pipeline.Break, err
		}
		applied++
		b.Logger.Debug("Applied layout",
			logfields.URL(it.URL),
			logfields.Layout(l.Path),
			logfields.Kind(string(kind)))

		nextName, nextKind := name, kind
		if l.Next != "" {
			nextName = l.Next
		}
		if l.NextKind != "" {
			nextKind = l.NextKind
		}
		if nextName == name && nextKind == kind {
			break
		}
		name, kind = nextName, nextKind
	}
	e.states[it.ID] = Applied
	return pipeline.Continue, nil
}

func (e *Engine) apply(b *pipeline.Build, it *content.Item, l *Layout, kind Kind) error {
	b.Depend(it, content.OnFile(l.Path, l.Fingerprint))
	it.Bindings.CopyDefaults(l.Bindings)

	body, err := it.Body()
	if err != nil {
		return errors.ContentError("cannot read source").WithCause(err).WithContext("url", it.URL).Build()
	}
	it.Bindings.Set("content", content.String(string(body)))

	page := templates.NewPage(it.URL, string(kind), string(body),
		it.Bindings, b.Sections[it.Section], b.Site, &resolver{b: b, from: it})
	page.SectionName = it.Section
	out, err := l.tpl.Execute(page)
	if err != nil {
		return errors.ContentError("layout evaluation failed").
			WithCause(err).
			WithContext("layout", l.Path).
			WithContext("url", it.URL).
			Build()
	}
	it.SetBody(out)
	return nil
}

// resolver answers template lookups and records each hit as an item
// dependency of the rendering item.
type resolver struct {
	b    *pipeline.Build
	from *content.Item
}

func (r *resolver) Find(url string) (map[string]any, bool) {
	target, ok := r.b.Store.Find(url)
	if !ok {
		return nil, false
	}
	if target.ID != r.from.ID {
		r.b.Depend(r.from, content.OnItem(target.ID))
	}
	return target.Summary(), true
}

func (r *resolver) Pages(section string) []map[string]any {
	var members []*content.Item
	for _, p := range r.b.Store.Pages() {
		if p.Section == section && p.ID != r.from.ID && p.LayoutKind != string(List) {
			members = append(members, p)
		}
	}
	content.SortPages(members)
	out := make([]map[string]any, 0, len(members))
	for _, p := range members {
		r.b.Depend(r.from, content.OnItem(p.ID))
		out = append(out, p.Summary())
	}
	return out
}
