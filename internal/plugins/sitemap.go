package plugins

import (
	"context"
	"encoding/xml"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
)

// SitemapURL is where the sitemap is published.
const SitemapURL = "/sitemap.xml"

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// Sitemap generates /sitemap.xml over every html page that will be emitted.
// Pages opt out with sitemap: false.
type Sitemap struct {
	BaseURL string
}

func (s *Sitemap) Name() string { return "sitemap" }

func (s *Sitemap) Process(_ context.Context, b *pipeline.Build, stage pipeline.Stage) error {
	if stage != pipeline.AfterProcess || !b.Want(SitemapURL) {
		return nil
	}

	var entries []*content.Item
	for _, it := range b.Store.All() {
		if it.Failed() || it.NoLayout || it.Type != content.HTML || it.Set == content.StaticFiles {
			continue
		}
		if v, ok := it.Bindings.Get("sitemap"); ok && !v.Truthy() {
			continue
		}
		entries = append(entries, it)
	}

	set := urlset{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	base := strings.TrimSuffix(s.BaseURL, "/")
	for _, it := range entries {
		lastmod := it.Bindings.GetString("lastmod")
		if lastmod == "" {
			lastmod = it.Bindings.GetString("date")
		}
		set.URLs = append(set.URLs, sitemapURL{Loc: base + it.URL, LastMod: lastmod})
	}
	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return errors.InternalError("cannot encode sitemap").WithCause(err).Build()
	}

	it := content.NewDynamicItem(SitemapURL, content.XML, append([]byte(xml.Header), body...))
	it.NoLayout = true
	if err := b.Add(it); err != nil {
		return err
	}
	for _, e := range entries {
		b.Depend(it, content.OnItem(e.ID))
	}
	return nil
}
