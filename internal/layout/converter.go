package layout

import (
	"context"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/source"
)

// Converter turns content of one type into another.
type Converter interface {
	Name() string
	From() content.Type
	To() content.Type
	// RunWithoutLayout reports whether the conversion happens even when no
	// layout exists for the target type.
	RunWithoutLayout() bool
	Convert(ctx context.Context, c *Conversion) ([]byte, error)
}

// Conversion is the input of one converter run.
type Conversion struct {
	Item   *content.Item
	Body   []byte
	Source source.Reader
	// Depend records a file the output was derived from.
	Depend func(path string)
}

// Converters indexes converters by source type. The first converter
// registered for a type wins.
type Converters struct {
	byFrom map[content.Type]Converter
	order  []Converter
}

// NewConverters returns a registry holding cs.
func NewConverters(cs ...Converter) *Converters {
	r := &Converters{byFrom: make(map[content.Type]Converter)}
	for _, c := range cs {
		r.Register(c)
	}
	return r
}

// Register adds c unless its source type is already taken, and reports
// whether it was added.
func (r *Converters) Register(c Converter) bool {
	if _, ok := r.byFrom[c.From()]; ok {
		return false
	}
	r.byFrom[c.From()] = c
	r.order = append(r.order, c)
	return true
}

// For returns the converter for t.
func (r *Converters) For(t content.Type) (Converter, bool) {
	c, ok := r.byFrom[t]
	return c, ok
}

// All lists converters in registration order.
func (r *Converters) All() []Converter {
	return append([]Converter(nil), r.order...)
}
