// Package convert provides the content type converters: markdown to html
// with highlighted code blocks, and postcss to css with inlined imports.
package convert

import (
	"bytes"
	"context"
	"html"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/layout"
)

// Markdown converts markdown pages to html. It needs a layout for the html
// result unless the engine is told to render without one.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown builds the converter with GitHub flavored markdown, heading
// ids and chroma highlighting of fenced code using the named style.
func NewMarkdown(style string) *Markdown {
	s := styles.Get(style)
	if s == nil {
		s = styles.Fallback
	}
	hl := &highlighter{
		style:     s,
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}
	return &Markdown{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithUnsafe(),
			renderer.WithNodeRenderers(util.Prioritized(hl, 200)),
		),
	)}
}

func (m *Markdown) Name() string           { return "markdown" }
func (m *Markdown) From() content.Type     { return content.Markdown }
func (m *Markdown) To() content.Type       { return content.HTML }
func (m *Markdown) RunWithoutLayout() bool { return false }

func (m *Markdown) Convert(_ context.Context, c *layout.Conversion) ([]byte, error) {
	var buf bytes.Buffer
	if err := m.md.Convert(c.Body, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// highlighter renders fenced code blocks through chroma.
type highlighter struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
}

func (h *highlighter) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gmast.KindFencedCodeBlock, h.renderFencedCode)
}

func (h *highlighter) renderFencedCode(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}
	n := node.(*gmast.FencedCodeBlock)

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	lexer := lexers.Get(string(n.Language(source)))
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iter, err := chroma.Coalesce(lexer).Tokenise(nil, code.String())
	if err != nil {
		_, _ = w.WriteString("<pre><code>" + html.EscapeString(code.String()) + "</code></pre>\n")
		return gmast.WalkSkipChildren, nil
	}
	if err := h.formatter.Format(w, h.style, iter); err != nil {
		return gmast.WalkStop, err
	}
	return gmast.WalkSkipChildren, nil
}

// StyleCSS returns the stylesheet for the highlight classes.
func StyleCSS(style string) (string, error) {
	s := styles.Get(style)
	if s == nil {
		s = styles.Fallback
	}
	var buf bytes.Buffer
	if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&buf, s); err != nil {
		return "", err
	}
	return buf.String(), nil
}
