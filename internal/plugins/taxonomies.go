package plugins

import (
	"context"
	"sort"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/layout"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// TaxonomyKind is the layout kind of term pages. Term pages probe
// {name}/taxonomy and {name}.taxonomy.
const TaxonomyKind layout.Kind = "taxonomy"

// Taxonomies generates one term page per distinct value of each configured
// taxonomy binding (tags: [go, web] yields /tags/go/ and /tags/web/) and a
// list page per taxonomy holding its terms.
type Taxonomies struct {
	Names []string
}

// NewTaxonomies returns the generator and registers the term page kind with
// the layout engine.
func NewTaxonomies(engine *layout.Engine, names ...string) *Taxonomies {
	engine.RegisterKind(TaxonomyKind, nil)
	return &Taxonomies{Names: names}
}

func (t *Taxonomies) Name() string { return "taxonomies" }

type term struct {
	name  string
	slug  string
	pages []*content.Item
}

func (t *Taxonomies) Process(ctx context.Context, b *pipeline.Build, stage pipeline.Stage) error {
	if stage != pipeline.BeforeProcess {
		return nil
	}
	pages := b.Store.Pages()
	for _, tax := range t.Names {
		if err := ctx.Err(); err != nil {
			return err
		}
		terms := collectTerms(pages, tax)
		index := make([]content.Value, 0, len(terms))
		for _, tm := range terms {
			url := "/" + tax + "/" + tm.slug + "/"
			index = append(index, content.Map(termSummary(tm, url)))
			if !b.Want(url) {
				continue
			}
			t.addTermPage(b, stage, tax, tm, url)
		}
		t.addIndexPage(b, stage, tax, index, terms)
	}
	return nil
}

func (t *Taxonomies) addTermPage(b *pipeline.Build, stage pipeline.Stage, tax string, tm *term, url string) {
	it := content.NewDynamicItem(url, content.HTML, nil)
	it.LayoutKind = string(TaxonomyKind)
	it.Layout = tax
	it.Section = tax
	it.Bindings.Set("title", content.String(templates.TitleCase(tm.name)))
	it.Bindings.Set("term", content.String(tm.name))
	it.Bindings.Set("taxonomy", content.String(tax))
	if err := b.Add(it); err != nil {
		b.Log.ItemError(stage, t.Name(), it, err)
		return
	}

	content.SortPages(tm.pages)
	members := make([]content.Value, 0, len(tm.pages))
	for _, p := range tm.pages {
		b.Depend(it, content.OnItem(p.ID))
		members = append(members, content.FromAny(p.Summary()))
	}
	it.Bindings.Set("pages", content.List(members...))
}

func (t *Taxonomies) addIndexPage(b *pipeline.Build, stage pipeline.Stage, tax string, index []content.Value, terms []*term) {
	url := "/" + tax + "/"
	if len(terms) == 0 || !b.Want(url) {
		return
	}
	if _, owned := b.Store.Find(url); owned {
		return
	}
	it := content.NewDynamicItem(url, content.HTML, nil)
	it.LayoutKind = "list"
	it.Layout = tax
	it.Section = tax
	it.Bindings.Set("title", content.String(templates.TitleCase(tax)))
	it.Bindings.Set("terms", content.List(index...))
	if err := b.Add(it); err != nil {
		b.Log.ItemError(stage, t.Name(), it, err)
		return
	}
	for _, tm := range terms {
		for _, p := range tm.pages {
			b.Depend(it, content.OnItem(p.ID))
		}
	}
}

func collectTerms(pages []*content.Item, tax string) []*term {
	bySlug := make(map[string]*term)
	for _, p := range pages {
		v, ok := p.Bindings.Get(tax)
		if !ok {
			continue
		}
		for _, name := range v.Strings() {
			slug := templates.Urlize(name)
			if slug == "" {
				continue
			}
			tm, ok := bySlug[slug]
			if !ok {
				tm = &term{name: name, slug: slug}
				bySlug[slug] = tm
			}
			tm.pages = append(tm.pages, p)
		}
	}
	out := make([]*term, 0, len(bySlug))
	for _, tm := range bySlug {
		out = append(out, tm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].slug < out[j].slug })
	return out
}

func termSummary(tm *term, url string) *content.Bindings {
	m := content.NewBindings()
	m.Set("name", content.String(tm.name))
	m.Set("url", content.String(url))
	m.Set("count", content.Number(float64(len(tm.pages))))
	return m
}
