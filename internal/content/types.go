package content

import (
	"path"
	"strings"
)

// Type names a content type. Equality is by name.
type Type string

// Built-in content types.
const (
	Markdown   Type = "markdown"
	HTML       Type = "html"
	CSS        Type = "css"
	PostCSS    Type = "postcss"
	XML        Type = "xml"
	JSON       Type = "json"
	YAML       Type = "yaml"
	Text       Type = "text"
	JavaScript Type = "javascript"
	Binary     Type = "binary"
)

// TypeRegistry maps file extensions to content types and back. Extensions are
// kept in registration order; the first registered extension of a type is its
// canonical output extension.
type TypeRegistry struct {
	order []Type
	exts  map[Type][]string
	byExt map[string]Type
}

// NewTypeRegistry returns an empty registry that still resolves unknown
// extensions to Binary.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		exts:  make(map[Type][]string),
		byExt: make(map[string]Type),
	}
}

// DefaultTypes returns the registry used by sitebuilder out of the box.
func DefaultTypes() *TypeRegistry {
	r := NewTypeRegistry()
	r.Register(Markdown, ".md", ".markdown")
	r.Register(HTML, ".html", ".htm")
	r.Register(CSS, ".css")
	r.Register(PostCSS, ".pcss", ".postcss")
	r.Register(XML, ".xml")
	r.Register(JSON, ".json")
	r.Register(YAML, ".yaml", ".yml")
	r.Register(Text, ".txt")
	r.Register(JavaScript, ".js", ".mjs")
	r.Register(Binary)
	return r
}

// Register adds a type with its extensions. Registering an existing type
// appends extensions. An extension already claimed by another type is moved.
func (r *TypeRegistry) Register(t Type, exts ...string) {
	if _, ok := r.exts[t]; !ok {
		r.order = append(r.order, t)
		r.exts[t] = nil
	}
	for _, e := range exts {
		e = normalizeExt(e)
		if prev, ok := r.byExt[e]; ok && prev != t {
			r.exts[prev] = removeString(r.exts[prev], e)
		}
		if _, ok := r.byExt[e]; ok && r.byExt[e] == t {
			continue
		}
		r.byExt[e] = t
		r.exts[t] = append(r.exts[t], e)
	}
}

// Known reports whether t has been registered.
func (r *TypeRegistry) Known(t Type) bool {
	_, ok := r.exts[t]
	return ok
}

// ForExt resolves an extension (with or without leading dot). Unknown
// extensions resolve to Binary.
func (r *TypeRegistry) ForExt(ext string) Type {
	if t, ok := r.byExt[normalizeExt(ext)]; ok {
		return t
	}
	return Binary
}

// ForPath resolves the type of a file path by its extension.
func (r *TypeRegistry) ForPath(p string) Type {
	return r.ForExt(path.Ext(p))
}

// Extensions returns the extensions of t in registration order.
func (r *TypeRegistry) Extensions(t Type) []string {
	return append([]string(nil), r.exts[t]...)
}

// Canonical returns the first extension of t, or "" when it has none.
func (r *TypeRegistry) Canonical(t Type) string {
	if e := r.exts[t]; len(e) > 0 {
		return e[0]
	}
	return ""
}

// Types lists registered types in registration order.
func (r *TypeRegistry) Types() []Type {
	return append([]Type(nil), r.order...)
}

func normalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e != "" && !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
