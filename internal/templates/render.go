// Package templates is the template evaluator used by layouts. Templates are
// parsed once and evaluated against a Page, which exposes the item's bindings,
// its section and site scopes and lookups into the rest of the build.
package templates

import (
	"bytes"
	"fmt"
	"text/template"
)

// Evaluator parses layout sources into reusable templates.
type Evaluator struct {
	funcs template.FuncMap
}

// NewEvaluator returns an evaluator with the builtin function set.
func NewEvaluator() *Evaluator {
	return &Evaluator{funcs: builtinFuncs()}
}

// Template is a parsed layout ready for repeated evaluation.
type Template struct {
	name string
	tpl  *template.Template
}

// Parse compiles text under name.
func (e *Evaluator) Parse(name, text string) (*Template, error) {
	tpl, err := template.New(name).Funcs(e.funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", name, err)
	}
	return &Template{name: name, tpl: tpl}, nil
}

// Name returns the name the template was parsed under.
func (t *Template) Name() string { return t.name }

// Execute renders the template for page.
func (t *Template) Execute(page *Page) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("render template %s: %w", t.name, err)
	}
	return buf.Bytes(), nil
}
