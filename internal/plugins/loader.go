package plugins

import (
	"context"
	"path"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

// Loader enumerates the content and static directories of the overlay.
// Markup under the content directory becomes pages; every other file is a
// static file published at its relative path.
type Loader struct {
	ContentDir string
	StaticDir  string
}

func (l *Loader) Name() string { return "loader" }

func (l *Loader) Process(ctx context.Context, b *pipeline.Build, stage pipeline.Stage) error {
	if stage != pipeline.BeforeLoad {
		return nil
	}
	loaded := 0
	for _, dir := range []string{l.ContentDir, l.StaticDir} {
		if dir == "" {
			continue
		}
		files, err := b.Source.Walk(dir)
		if err != nil {
			return errors.IOError("cannot enumerate sources").WithCause(err).WithContext("dir", dir).Build()
		}
		for _, p := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !b.Scope.HasPath(p) {
				continue
			}
			it := l.itemFor(b, dir, p)
			if err := b.Add(it); err != nil {
				b.Log.ItemError(stage, l.Name(), it, err)
				continue
			}
			b.DependOnFile(it, p)
			loaded++
		}
	}
	b.Logger.Debug("Loaded sources", logfields.BuildID(b.ID), logfields.Items(loaded))
	return nil
}

func (l *Loader) itemFor(b *pipeline.Build, dir, p string) *content.Item {
	rel := strings.TrimPrefix(p, strings.Trim(dir, "/")+"/")
	t := b.Types.ForPath(p)
	load := readFrom(b.Source, p)

	if dir == l.ContentDir && isMarkup(t) {
		it := content.NewFileItem(content.Pages, PageURL(rel), p, t, load)
		it.Section = SectionOf(rel)
		if strings.TrimSuffix(path.Base(rel), path.Ext(rel)) == "_index" {
			it.LayoutKind = "list"
		}
		return it
	}
	it := content.NewFileItem(content.StaticFiles, "/"+rel, p, t, load)
	it.Section = SectionOf(rel)
	return it
}

func readFrom(src source.Reader, p string) content.LoadFunc {
	return func() ([]byte, error) { return src.Read(p) }
}

func isMarkup(t content.Type) bool {
	return t == content.Markdown || t == content.HTML
}

// PageURL maps a content-relative source path onto a pretty Url:
// posts/hello.md is /posts/hello/, and index or _index files publish their
// directory.
func PageURL(rel string) string {
	dir, file := path.Split(rel)
	stem := strings.TrimSuffix(file, path.Ext(file))
	if stem == "index" || stem == "_index" {
		return "/" + dir
	}
	return "/" + dir + stem + "/"
}

// SectionOf returns the first directory of a content-relative path, or ""
// for files at the root.
func SectionOf(rel string) string {
	if i := strings.IndexByte(rel, '/'); i > 0 {
		return rel[:i]
	}
	return ""
}
