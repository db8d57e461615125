package plugins

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// LinkResolver rewrites links in rendered html. A link to a markdown source
// (../other.md#part) becomes the Url of the page built from it; links to
// site Urls are checked. Every resolved link makes the page depend on its
// target, and internal links with no target are reported as warnings.
type LinkResolver struct {
	ContentDir string

	done sets.Set[content.ItemID]
}

func (l *LinkResolver) Name() string { return "link-resolver" }

func (l *LinkResolver) Process(_ context.Context, _ *pipeline.Build, stage pipeline.Stage) error {
	if stage == pipeline.BeforeProcess {
		l.done = sets.New[content.ItemID]()
	}
	return nil
}

func (l *LinkResolver) TryProcessItem(_ context.Context, b *pipeline.Build, it *content.Item, sub pipeline.SubStage) (pipeline.Result, error) {
	if sub != pipeline.Finalize || it.Type != content.HTML || it.Set == content.StaticFiles {
		return pipeline.None, nil
	}
	if l.done == nil {
		l.done = sets.New[content.ItemID]()
	}
	if !l.done.Add(it.ID) {
		return pipeline.None, nil
	}

	body, err := it.Body()
	if err != nil {
		return pipeline.Break, errors.ContentError("cannot read body").WithCause(err).Build()
	}
	edits, broken := l.rewrite(b, it, body)
	for _, target := range broken {
		b.Log.ItemWarning(pipeline.Process, l.Name(), it, "broken internal link: "+target)
	}
	if len(edits) == 0 {
		return pipeline.None, nil
	}
	out, err := ApplyEdits(body, edits)
	if err != nil {
		return pipeline.Break, errors.InternalError("link rewrite failed").WithCause(err).Build()
	}
	it.SetBody(out)
	return pipeline.Continue, nil
}

var linkAttrs = map[string]string{"a": "href", "img": "src", "link": "href", "script": "src"}

// rewrite tokenizes body and returns one edit per tag whose link changed,
// plus the internal links that resolve to nothing.
func (l *LinkResolver) rewrite(b *pipeline.Build, it *content.Item, body []byte) ([]Edit, []string) {
	var edits []Edit
	var broken []string

	z := html.NewTokenizer(bytes.NewReader(body))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				b.Logger.Debug("Stopped link scan on malformed html", logfields.URL(it.URL), logfields.Error(z.Err()))
			}
			break
		}
		raw := z.Raw()
		start := offset
		offset += len(raw)
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		tok := z.Token()
		attr, ok := linkAttrs[tok.Data]
		if !ok {
			continue
		}
		changed := false
		for i, a := range tok.Attr {
			if a.Key != attr || a.Namespace != "" {
				continue
			}
			resolved, found, internal := l.resolve(b, it, a.Val)
			if !internal {
				continue
			}
			if !found {
				broken = append(broken, a.Val)
				continue
			}
			if resolved != a.Val {
				tok.Attr[i].Val = resolved
				changed = true
			}
		}
		if changed {
			edits = append(edits, Edit{Start: start, End: offset, Replacement: []byte(tok.String())})
		}
	}
	return edits, broken
}

// resolve maps one link. internal is false for links it does not manage:
// external Urls, fragments and relative links to non-markdown files.
func (l *LinkResolver) resolve(b *pipeline.Build, it *content.Item, link string) (resolved string, found, internal bool) {
	u, err := url.Parse(link)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return link, false, false
	}

	suffix := ""
	if u.RawQuery != "" {
		suffix += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		suffix += "#" + u.Fragment
	}

	if ext := strings.ToLower(path.Ext(u.Path)); ext == ".md" || ext == ".markdown" {
		src := l.sourceFor(it, u.Path)
		for _, target := range b.Store.BySource(src) {
			if target.Set != content.Pages {
				continue
			}
			if target.ID != it.ID {
				b.Depend(it, content.OnItem(target.ID))
			}
			return target.URL + suffix, true, true
		}
		return link, false, true
	}

	if !strings.HasPrefix(u.Path, "/") {
		return link, false, false
	}
	if target, ok := b.Store.Find(u.Path); ok {
		if target.ID != it.ID {
			b.Depend(it, content.OnItem(target.ID))
		}
		return link, true, true
	}
	if !strings.HasSuffix(u.Path, "/") && path.Ext(u.Path) == "" {
		if target, ok := b.Store.Find(u.Path + "/"); ok {
			if target.ID != it.ID {
				b.Depend(it, content.OnItem(target.ID))
			}
			return link, true, true
		}
	}
	return link, false, true
}

// sourceFor resolves a markdown link against the linking page's source
// directory, or against the content directory for root-relative links.
func (l *LinkResolver) sourceFor(it *content.Item, p string) string {
	if strings.HasPrefix(p, "/") {
		return path.Join(strings.Trim(l.ContentDir, "/"), p)
	}
	return path.Join(path.Dir(it.SourcePath), p)
}
