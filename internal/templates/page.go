package templates

import (
	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// Resolver gives templates read access to other items. Implementations
// record every successful lookup as a dependency of the rendering item.
type Resolver interface {
	Find(url string) (map[string]any, bool)
	Pages(section string) []map[string]any
}

// Page is the data a template is evaluated against.
type Page struct {
	Content string
	URL     string
	Kind    string
	Params  map[string]any
	Section map[string]any
	Site    map[string]any
	// SectionName names the section the item belongs to; "" is the root.
	SectionName string

	scope    content.Scope
	resolver Resolver
}

// NewPage builds template data from an ordered scope chain: the item's
// bindings first, then its section, then the site.
func NewPage(url, kind, body string, item, section, site *content.Bindings, resolver Resolver) *Page {
	return &Page{
		Content:  body,
		URL:      url,
		Kind:     kind,
		Params:   item.ToMap(),
		Section:  section.ToMap(),
		Site:     site.ToMap(),
		scope:    content.Scope{item, section, site},
		resolver: resolver,
	}
}

// Param resolves key along item, section and site scopes. Missing keys
// yield nil instead of failing the render.
func (p *Page) Param(key string) any {
	v, ok := p.scope.Lookup(key)
	if !ok {
		return nil
	}
	return v.ToAny()
}

// Title returns the page title binding.
func (p *Page) Title() string {
	if t, ok := p.Params["title"].(string); ok {
		return t
	}
	return ""
}

// Find returns the bindings of the item at url, or nil when no live item
// owns it.
func (p *Page) Find(url string) map[string]any {
	if p.resolver == nil {
		return nil
	}
	m, ok := p.resolver.Find(url)
	if !ok {
		return nil
	}
	return m
}

// Pages lists the pages of a section.
func (p *Page) Pages(section string) []map[string]any {
	if p.resolver == nil {
		return nil
	}
	return p.resolver.Pages(section)
}
