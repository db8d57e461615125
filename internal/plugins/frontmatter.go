package plugins

import (
	"context"
	"path"
	"slices"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
)

// FrontMatter splits the front matter of every page loaded in this pass into
// its bindings and applies the keys that steer the build:
//
//   - draft: true discards the page unless drafts are enabled
//   - url replaces the Url, slug replaces its last segment
//   - layout names the layout chain
//   - cascade on an _index page is copied into its section scope
//
// It also sets a content fingerprint binding.
type FrontMatter struct {
	Drafts     bool
	Taxonomies []string
}

func (f *FrontMatter) Name() string { return "frontmatter" }

func (f *FrontMatter) Process(ctx context.Context, b *pipeline.Build, stage pipeline.Stage) error {
	if stage != pipeline.BeforeInit {
		return nil
	}
	for _, it := range b.Store.Pages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if it.Kind != content.FileItem || !b.Current(it) {
			continue
		}
		f.apply(b, stage, it)
	}
	f.cascade(b)
	return nil
}

func (f *FrontMatter) apply(b *pipeline.Build, stage pipeline.Stage, it *content.Item) {
	doc, err := frontmatter.Apply(it)
	if err != nil {
		b.Log.ItemError(stage, f.Name(), it, errors.ContentError("cannot read front matter").
			WithCause(err).
			WithContext("path", it.SourcePath).
			Build())
		return
	}
	it.Membership = MembershipKey(doc.Fields, f.Taxonomies)

	if v, ok := it.Bindings.Get("draft"); ok && v.Truthy() && !f.Drafts {
		it.Discard()
		b.Logger.Debug("Discarded draft", logfields.URL(it.URL))
		return
	}
	if l := it.Bindings.GetString("layout"); l != "" {
		it.Layout = l
	}

	target := ""
	if u := it.Bindings.GetString("url"); u != "" {
		target = u
	} else if slug := it.Bindings.GetString("slug"); slug != "" && it.LayoutKind != "list" {
		target = path.Join(path.Dir(strings.TrimSuffix(it.URL, "/")), slug) + "/"
	}
	if target != "" {
		if err := b.Store.Retarget(it, target); err != nil {
			b.Log.ItemError(stage, f.Name(), it, err)
			return
		}
	}

	fp, err := Fingerprint(doc.Fields, doc.Body)
	if err != nil {
		b.Log.ItemError(stage, f.Name(), it, errors.ContentError("cannot fingerprint page").WithCause(err).Build())
		return
	}
	it.Bindings.Set("fingerprint", content.String(fp))
}

// membershipFields decide whether and where a page is listed: section
// lists, term pages and the sitemap. Taxonomy names are appended per site.
var membershipFields = []string{"draft", "url", "slug", "sitemap", "cascade"}

// MembershipKey renders the listing-relevant front matter fields. Two
// versions of a page with the same key appear on the same generated pages.
func MembershipKey(fields *content.Bindings, taxonomies []string) string {
	var sb strings.Builder
	for _, k := range append(slices.Clone(membershipFields), taxonomies...) {
		v, ok := fields.Get(k)
		if !ok {
			continue
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(v.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// cascade copies the cascade map of every live _index page into its section
// scope and makes the section members of this pass depend on it.
func (f *FrontMatter) cascade(b *pipeline.Build) {
	pages := b.Store.Pages()
	for _, idx := range pages {
		if !isSectionIndex(idx) || idx.Section == "" {
			continue
		}
		scope := b.Section(idx.Section)
		if v, ok := idx.Bindings.Get("cascade"); ok {
			if m, isMap := v.AsMap(); isMap {
				scope.CopyDefaults(m)
			}
		}
		if t := idx.Bindings.GetString("title"); t != "" {
			scope.SetDefault("section_title", content.String(t))
		}
		for _, p := range pages {
			if p.ID != idx.ID && p.Section == idx.Section && b.Current(p) {
				b.Depend(p, content.OnItem(idx.ID))
			}
		}
	}
}

func isSectionIndex(it *content.Item) bool {
	base := path.Base(it.SourcePath)
	return strings.TrimSuffix(base, path.Ext(base)) == "_index"
}
