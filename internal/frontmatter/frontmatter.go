// Package frontmatter splits source documents into front matter bindings and
// body. YAML (---), TOML (+++) and JSON ({...}) front matter are accepted.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/adrg/frontmatter"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

// Document is a parsed source file.
type Document struct {
	Fields *content.Bindings
	Body   []byte
	// Had reports whether the file carried a front matter block at all.
	Had bool
}

// Parse separates front matter from body. A document without front matter
// yields empty bindings and the full input as body.
func Parse(doc []byte) (Document, error) {
	var fields map[string]any
	body, err := frontmatter.MustParse(bytes.NewReader(doc), &fields)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return Document{Fields: content.NewBindings(), Body: doc}, nil
		}
		return Document{}, fmt.Errorf("parse front matter: %w", err)
	}
	return Document{
		Fields: content.BindingsFromMap(fields),
		Body:   body,
		Had:    true,
	}, nil
}

// Apply splits the item body, merges the fields into the item's bindings
// without overwriting existing ones, and replaces the body with the rest.
func Apply(it *content.Item) (Document, error) {
	raw, err := it.Body()
	if err != nil {
		return Document{}, err
	}
	doc, err := Parse(raw)
	if err != nil {
		return Document{}, err
	}
	it.Bindings.CopyDefaults(doc.Fields)
	it.SetBody(doc.Body)
	return doc, nil
}
