package plugins

import (
	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/convert"
	"git.home.luguber.info/inful/sitebuilder/internal/layout"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/state"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
)

// Set is the assembled default processor chain of a site.
type Set struct {
	Registry  *pipeline.Registry
	Engine    *layout.Engine
	Committer *Committer
}

// Deps are the collaborators the default chain writes to.
type Deps struct {
	Sink output.Sink
	// Previous seeds the committer with what an earlier process published.
	Previous output.Manifest
	// State is optional; without it nothing is persisted.
	State *state.Store
}

// Default builds the processor chain for cfg. The order is:
// loader, site data, front matter, git info, section lists, taxonomies,
// highlight css, layout engine, link resolver, minifier, sitemap, writer,
// commit and manifest.
func Default(cfg *config.Config, d Deps) (*Set, error) {
	converters := layout.NewConverters(
		convert.NewMarkdown(cfg.Build.HighlightStyle),
		convert.NewPostCSS(),
	)
	engine := layout.NewEngine(templates.NewEvaluator(), converters,
		layout.WithDir(cfg.Paths.Layouts),
		layout.WithDefaultLayout(cfg.Build.DefaultLayout),
		layout.WithRenderWithoutLayout(cfg.Build.RenderWithoutLayout),
	)
	committer := NewCommitter(d.Sink, d.Previous)

	reg := pipeline.NewRegistry()
	procs := []pipeline.Processor{
		&Loader{ContentDir: cfg.Paths.Content, StaticDir: cfg.Paths.Static},
		&SiteData{DataDir: cfg.Paths.Data, Site: SiteBindings(cfg)},
		&FrontMatter{Drafts: cfg.Build.Drafts, Taxonomies: cfg.Taxonomies},
	}
	if cfg.Build.GitInfo {
		procs = append(procs, &GitInfo{})
	}
	procs = append(procs,
		&SectionLists{},
		NewTaxonomies(engine, cfg.Taxonomies...),
		&HighlightCSS{Style: cfg.Build.HighlightStyle},
		engine,
		&LinkResolver{ContentDir: cfg.Paths.Content},
	)
	if cfg.Build.Minify {
		procs = append(procs, &Minifier{})
	}
	procs = append(procs,
		&Sitemap{BaseURL: cfg.Site.BaseURL},
		&Writer{},
		committer,
	)
	if d.State != nil {
		procs = append(procs, &Manifest{State: d.State})
	}
	for _, p := range procs {
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return &Set{Registry: reg, Engine: engine, Committer: committer}, nil
}

// SiteBindings converts the site section of the config into the site scope.
func SiteBindings(cfg *config.Config) *content.Bindings {
	b := content.NewBindings()
	b.Set("title", content.String(cfg.Site.Title))
	b.Set("base_url", content.String(cfg.Site.BaseURL))
	b.Set("language", content.String(cfg.Site.Language))
	if cfg.Environment != "" {
		b.Set("environment", content.String(cfg.Environment))
	}
	b.Set("params", content.Map(content.BindingsFromMap(cfg.Site.Params)))
	return b
}
