package content

import (
	"sort"
)

// SortPages orders items newest first by their date binding, then by weight
// ascending, then by title and Url. Items without a date sort last.
func SortPages(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		da, db := a.Bindings.GetString("date"), b.Bindings.GetString("date")
		if da != db {
			if da == "" || db == "" {
				return db == ""
			}
			return da > db
		}
		wa, wb := weight(a), weight(b)
		if wa != wb {
			return wa < wb
		}
		if ta, tb := a.Title(), b.Title(); ta != tb {
			return ta < tb
		}
		return a.URL < b.URL
	})
}

func weight(it *Item) float64 {
	v, ok := it.Bindings.Get("weight")
	if !ok {
		return 0
	}
	n, _ := v.AsNumber()
	return n
}

// Summary returns the bindings exposed to templates when one item refers to
// another: every binding plus url, title and section.
func (it *Item) Summary() map[string]any {
	m := it.Bindings.ToMap()
	delete(m, "content")
	m["url"] = it.URL
	m["title"] = it.Title()
	m["section"] = it.Section
	return m
}
