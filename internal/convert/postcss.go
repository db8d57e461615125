package convert

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/layout"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

var importRe = regexp.MustCompile(`(?m)^[ \t]*@import\s+(?:url\()?\s*["']([^"']+)["']\s*\)?\s*;[ \t]*$`)

// PostCSS turns stylesheet sources into plain css by inlining local
// @import rules. It runs without a layout.
type PostCSS struct {
	// MaxDepth bounds nested imports.
	MaxDepth int
}

// NewPostCSS returns the converter with the default import depth.
func NewPostCSS() *PostCSS {
	return &PostCSS{MaxDepth: 16}
}

func (p *PostCSS) Name() string           { return "postcss" }
func (p *PostCSS) From() content.Type     { return content.PostCSS }
func (p *PostCSS) To() content.Type       { return content.CSS }
func (p *PostCSS) RunWithoutLayout() bool { return true }

func (p *PostCSS) Convert(ctx context.Context, c *layout.Conversion) ([]byte, error) {
	base := path.Dir(c.Item.SourcePath)
	stack := sets.New(c.Item.SourcePath)
	return p.inline(ctx, c, base, c.Body, stack, 0)
}

func (p *PostCSS) inline(ctx context.Context, c *layout.Conversion, dir string, body []byte, stack sets.Set[string], depth int) ([]byte, error) {
	if depth > p.MaxDepth {
		return nil, fmt.Errorf("imports nested deeper than %d", p.MaxDepth)
	}
	var out bytes.Buffer
	last := 0
	for _, m := range importRe.FindAllSubmatchIndex(body, -1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := string(body[m[2]:m[3]])
		out.Write(body[last:m[0]])
		last = m[1]

		if isRemote(target) {
			out.Write(body[m[0]:m[1]])
			continue
		}
		resolved := resolveImport(c, dir, target)
		if resolved == "" {
			return nil, fmt.Errorf("import %q not found from %s", target, dir)
		}
		if stack.Has(resolved) {
			return nil, fmt.Errorf("import cycle through %s", resolved)
		}
		data, err := c.Source.Read(resolved)
		if err != nil {
			return nil, err
		}
		if c.Depend != nil {
			c.Depend(resolved)
		}
		stack.Add(resolved)
		nested, err := p.inline(ctx, c, path.Dir(resolved), data, stack, depth+1)
		stack.Delete(resolved)
		if err != nil {
			return nil, err
		}
		out.Write(bytes.TrimRight(nested, "\n"))
	}
	out.Write(body[last:])
	return out.Bytes(), nil
}

// resolveImport tries the import as written, then with the postcss
// extensions, then as a partial with a leading underscore.
func resolveImport(c *layout.Conversion, dir, target string) string {
	p := path.Join(dir, target)
	candidates := []string{p}
	if path.Ext(p) == "" {
		candidates = append(candidates, p+".pcss", p+".postcss", p+".css")
	}
	partial := path.Join(path.Dir(p), "_"+path.Base(p))
	candidates = append(candidates, partial)
	if path.Ext(p) == "" {
		candidates = append(candidates, partial+".pcss", partial+".css")
	}
	for _, cand := range candidates {
		if c.Source.Exists(cand) {
			return cand
		}
	}
	return ""
}

func isRemote(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "//")
}
