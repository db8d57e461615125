package plugins

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// SectionLists generates a list page for the home page and for every
// section that has no _index page of its own. Each list page depends on
// the members of its section. A static file publishing the same output,
// such as static/index.html, takes the place of the list.
type SectionLists struct{}

func (s *SectionLists) Name() string { return "section-lists" }

func (s *SectionLists) Process(ctx context.Context, b *pipeline.Build, stage pipeline.Stage) error {
	if stage != pipeline.BeforeProcess {
		return nil
	}
	pages := b.Store.Pages()
	sections := sets.New("")
	for _, p := range pages {
		sections.Add(p.Section)
	}

	for _, section := range sets.Sorted(sections) {
		if err := ctx.Err(); err != nil {
			return err
		}
		url := "/"
		if section != "" {
			url = "/" + section + "/"
		}

		list, owned := b.Store.Find(url)
		if !owned {
			if !b.Want(url) {
				continue
			}
			list = content.NewDynamicItem(url, content.HTML, nil)
			list.LayoutKind = "list"
			list.Section = section
			if section != "" {
				list.Bindings.Set("title", content.String(templates.TitleCase(section)))
			}
			if err := b.Add(list); err != nil {
				b.Log.ItemError(stage, s.Name(), list, err)
				continue
			}
		}
		if !b.Current(list) || list.Set == content.StaticFiles {
			continue
		}
		for _, p := range pages {
			if p.Section == section && p.ID != list.ID && p.LayoutKind != "list" {
				b.Depend(list, content.OnItem(p.ID))
			}
		}
	}
	return nil
}
