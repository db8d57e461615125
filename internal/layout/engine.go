// Package layout resolves and applies layout chains. For every item it first
// runs the content type converters, then probes layout files by name, kind
// and content type, evaluates them, and follows the next layout each one
// declares until the chain ends or revisits a layout.
package layout

import (
	"context"
	"path"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/frontmatter"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/pipeline"
	"git.home.luguber.info/inful/sitebuilder/internal/templates"
	"git.home.luguber.info/inful/sitebuilder/internal/util/sets"
)

// Layout is a parsed layout file.
type Layout struct {
	Path        string
	Fingerprint string
	// Bindings are copied into items without overwriting their own.
	Bindings *content.Bindings
	// Next and NextKind name the layout applied after this one; empty
	// values keep the current name or kind.
	Next     string
	NextKind Kind

	tpl *templates.Template
}

type cacheKey struct {
	name string
	kind Kind
	typ  content.Type
}

// Engine is the layout resolution processor.
type Engine struct {
	dir                 string
	defaultName         string
	renderWithoutLayout bool
	eval                *templates.Evaluator
	converters          *Converters
	probers             map[Kind]Prober

	cache     map[cacheKey]*Layout
	states    map[content.ItemID]State
	converted map[content.ItemID]sets.Set[content.Type]
}

// Option configures an Engine.
type Option func(*Engine)

// WithDir sets the layout directory inside the source overlay.
func WithDir(dir string) Option {
	return func(e *Engine) { e.dir = strings.Trim(dir, "/") }
}

// WithDefaultLayout sets the name used for items without a layout binding.
func WithDefaultLayout(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.defaultName = name
		}
	}
}

// WithRenderWithoutLayout makes converters that normally need a layout run
// even when none exists.
func WithRenderWithoutLayout(enabled bool) Option {
	return func(e *Engine) { e.renderWithoutLayout = enabled }
}

// NewEngine creates the engine with the single and list kinds registered.
func NewEngine(eval *templates.Evaluator, converters *Converters, opts ...Option) *Engine {
	if converters == nil {
		converters = NewConverters()
	}
	e := &Engine{
		dir:         "layouts",
		defaultName: DefaultName,
		eval:        eval,
		converters:  converters,
		probers: map[Kind]Prober{
			Single: singleProber,
			List:   listProber,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reset()
	return e
}

func (e *Engine) Name() string { return "layout" }

// RegisterKind installs the probing rule of a generator-defined kind. A nil
// prober probes {name}/{kind} and {name}.{kind}.
func (e *Engine) RegisterKind(k Kind, p Prober) {
	if p == nil {
		p = kindProber(k)
	}
	e.probers[k] = p
}

// State returns the resolution state of an item in the current pass.
func (e *Engine) State(id content.ItemID) State {
	return e.states[id]
}

// Process clears per-pass caches before items are offered.
func (e *Engine) Process(_ context.Context, _ *pipeline.Build, stage pipeline.Stage) error {
	if stage == pipeline.BeforeProcess {
		e.reset()
	}
	return nil
}

func (e *Engine) reset() {
	e.cache = make(map[cacheKey]*Layout)
	e.states = make(map[content.ItemID]State)
	e.converted = make(map[content.ItemID]sets.Set[content.Type])
}

// Candidates returns the layout files probed for name, kind and type, in
// priority order.
func (e *Engine) Candidates(types *content.TypeRegistry, name string, kind Kind, t content.Type) []string {
	prober, ok := e.probers[kind]
	if !ok {
		prober = kindProber(kind)
	}
	bases := prober(name)
	if name != e.defaultName {
		bases = append(bases, prober(e.defaultName)...)
	}
	var out []string
	for _, base := range bases {
		for _, ext := range types.Extensions(t) {
			out = append(out, path.Join(e.dir, base+ext))
		}
	}
	return out
}

// Resolve finds and parses the layout for name, kind and type. A nil layout
// with a nil error means no candidate exists. Results, including misses, are
// cached for the pass.
func (e *Engine) Resolve(b *pipeline.Build, name string, kind Kind, t content.Type) (*Layout, error) {
	key := cacheKey{name: name, kind: kind, typ: t}
	if l, ok := e.cache[key]; ok {
		return l, nil
	}
	for _, candidate := range e.Candidates(b.Types, name, kind, t) {
		if !b.Source.Exists(candidate) {
			continue
		}
		l, err := e.load(b, candidate)
		if err != nil {
			return nil, err
		}
		e.cache[key] = l
		return l, nil
	}
	e.cache[key] = nil
	return nil, nil
}

func (e *Engine) load(b *pipeline.Build, file string) (*Layout, error) {
	raw, err := b.Source.Read(file)
	if err != nil {
		return nil, errors.IOError("cannot read layout").WithCause(err).WithContext("layout", file).Build()
	}
	fp, err := b.Source.Fingerprint(file)
	if err != nil {
		return nil, errors.IOError("cannot fingerprint layout").WithCause(err).WithContext("layout", file).Build()
	}
	doc, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, errors.ContentError("invalid layout front matter").WithCause(err).WithContext("layout", file).Build()
	}
	tpl, err := e.eval.Parse(file, string(doc.Body))
	if err != nil {
		return nil, errors.ContentError("invalid layout template").WithCause(err).WithContext("layout", file).Build()
	}
	l := &Layout{Path: file, Fingerprint: fp, Bindings: doc.Fields, tpl: tpl}
	if next := doc.Fields.GetString("layout"); next != "" {
		l.Next = next
	}
	if next := doc.Fields.GetString("kind"); next != "" {
		l.NextKind = Kind(next)
	}
	l.Bindings.Delete("layout")
	l.Bindings.Delete("kind")
	return l, nil
}

// TryProcessItem runs during the Transform sub-stage: conversion first, then
// the layout chain.
func (e *Engine) TryProcessItem(ctx context.Context, b *pipeline.Build, it *content.Item, sub pipeline.SubStage) (pipeline.Result, error) {
	if sub != pipeline.Transform {
		return pipeline.None, nil
	}
	switch e.states[it.ID] {
	case AwaitingConversion:
		return e.convert(ctx, b, it)
	case AwaitingLayout:
		return e.applyChain(b, it)
	default:
		return pipeline.None, nil
	}
}

func (e *Engine) nameOf(it *content.Item) string {
	if it.Layout != "" {
		return it.Layout
	}
	return e.defaultName
}

func (e *Engine) convert(ctx context.Context, b *pipeline.Build, it *content.Item) (pipeline.Result, error) {
	conv, ok := e.converters.For(it.Type)
	if !ok {
		e.states[it.ID] = AwaitingLayout
		return e.applyChain(b, it)
	}

	needsLayout := !conv.RunWithoutLayout() && !e.renderWithoutLayout
	if needsLayout && (it.NoLayout || it.Set == content.StaticFiles) {
		e.states[it.ID] = Skipped
		return pipeline.None, nil
	}
	if needsLayout {
		l, err := e.Resolve(b, e.nameOf(it), KindOf(it), conv.To())
		if err != nil {
			e.states[it.ID] = Skipped
			return pipeline.Break, err
		}
		if l == nil {
			e.states[it.ID] = Skipped
			b.Log.ItemWarning(pipeline.Process, e.Name(), it,
				"no "+string(conv.To())+" layout for "+e.nameOf(it)+"; emitted unconverted")
			return pipeline.None, nil
		}
	}

	seen, ok := e.converted[it.ID]
	if !ok {
		seen = sets.New(it.Type)
		e.converted[it.ID] = seen
	}
	if !seen.Add(conv.To()) {
		e.states[it.ID] = Skipped
		return pipeline.Break, errors.ContentError("converter chain revisits a content type").
			WithContext("url", it.URL).
			WithContext("type", string(conv.To())).
			Build()
	}

	body, err := it.Body()
	if err != nil {
		return pipeline.Break, errors.ContentError("cannot read source").WithCause(err).WithContext("url", it.URL).Build()
	}
	out, err := conv.Convert(ctx, &Conversion{
		Item:   it,
		Body:   body,
		Source: b.Source,
		Depend: func(p string) { b.DependOnFile(it, p) },
	})
	if err != nil {
		e.states[it.ID] = Skipped
		return pipeline.Break, errors.ContentError("conversion failed").
			WithCause(err).
			WithContext("converter", conv.Name()).
			WithContext("url", it.URL).
			Build()
	}

	from := it.Type
	it.SetBody(out)
	it.Type = conv.To()
	if err := retarget(b, it, from); err != nil {
		return pipeline.Break, err
	}
	b.Logger.Debug("Converted item",
		logfields.URL(it.URL),
		logfields.Processor(conv.Name()),
		logfields.ContentType(string(it.Type)))
	return pipeline.Continue, nil
}

// retarget swaps a file-style Url extension of the old type for the
// canonical extension of the new one: /css/site.pcss becomes /css/site.css.
func retarget(b *pipeline.Build, it *content.Item, from content.Type) error {
	ext := path.Ext(it.URL)
	if ext == "" || strings.HasSuffix(it.URL, "/") {
		return nil
	}
	canonical := b.Types.Canonical(it.Type)
	if canonical == "" {
		return nil
	}
	for _, e := range b.Types.Extensions(from) {
		if strings.EqualFold(e, ext) {
			return b.Store.Retarget(it, strings.TrimSuffix(it.URL, ext)+canonical)
		}
	}
	return nil
}
