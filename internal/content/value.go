package content

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ValueKind discriminates the variants of a Value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
	KindItem
)

func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindItem:
		return "item"
	default:
		return "null"
	}
}

// Value is a tagged union holding one binding value. The zero Value is null.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	list []Value
	m    *Bindings
	item ItemID
}

func String(s string) Value     { return Value{kind: KindString, str: s} }
func Number(n float64) Value    { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func List(vs ...Value) Value    { return Value{kind: KindList, list: vs} }
func Map(b *Bindings) Value     { return Value{kind: KindMap, m: b} }
func ItemRef(id ItemID) Value   { return Value{kind: KindItem, item: id} }
func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }

func (v Value) AsString() (string, bool)  { return v.str, v.kind == KindString }
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) AsList() ([]Value, bool)   { return v.list, v.kind == KindList }
func (v Value) AsMap() (*Bindings, bool)  { return v.m, v.kind == KindMap }
func (v Value) AsItem() (ItemID, bool)    { return v.item, v.kind == KindItem }

// Truthy follows template truthiness: null, "", 0, false and empty
// collections are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		return v.str != ""
	case KindNumber:
		return v.num != 0
	case KindBool:
		return v.b
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return v.m != nil && v.m.Len() > 0
	case KindItem:
		return v.item != 0
	default:
		return false
	}
}

// Strings flattens a string or a list of scalars into a string slice. It is
// the accessor used for tags, aliases and similar front matter fields.
func (v Value) Strings() []string {
	switch v.kind {
	case KindString:
		if v.str == "" {
			return nil
		}
		return []string{v.str}
	case KindList:
		out := make([]string, 0, len(v.list))
		for _, e := range v.list {
			if e.kind == KindNull {
				continue
			}
			out = append(out, e.String())
		}
		return out
	default:
		return nil
	}
}

// String renders the value for display and template output.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, e := range v.list {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindMap:
		if v.m == nil {
			return "map[]"
		}
		parts := make([]string, 0, v.m.Len())
		for _, k := range v.m.Keys() {
			e, _ := v.m.Get(k)
			parts = append(parts, k+":"+e.String())
		}
		return "map[" + strings.Join(parts, " ") + "]"
	case KindItem:
		return fmt.Sprintf("item#%d", v.item)
	default:
		return ""
	}
}

// Equal compares two values structurally.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindItem:
		return v.item == o.item
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(o.m)
	default:
		return true
	}
}

// FromAny converts decoded YAML/JSON data into a Value. Map keys are sorted
// so the resulting bindings are deterministic.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case float32:
		return Number(float64(t))
	case float64:
		return Number(t)
	case time.Time:
		return String(t.Format(time.RFC3339))
	case []any:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = FromAny(e)
		}
		return List(out...)
	case []string:
		out := make([]Value, len(t))
		for i, e := range t {
			out[i] = String(e)
		}
		return List(out...)
	case map[string]any:
		return Map(BindingsFromMap(t))
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = e
		}
		return Map(BindingsFromMap(m))
	default:
		return String(fmt.Sprint(t))
	}
}

// ToAny converts a Value into plain Go data for template evaluation.
func (v Value) ToAny() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.ToAny()
		}
		return out
	case KindMap:
		if v.m == nil {
			return map[string]any{}
		}
		return v.m.ToMap()
	case KindItem:
		return v.item
	default:
		return nil
	}
}

// Bindings is an insertion-ordered string-keyed map of Values.
type Bindings struct {
	keys []string
	vals map[string]Value
}

// NewBindings returns an empty binding set.
func NewBindings() *Bindings {
	return &Bindings{vals: make(map[string]Value)}
}

// BindingsFromMap builds bindings from decoded data with keys in sorted order.
func BindingsFromMap(m map[string]any) *Bindings {
	b := NewBindings()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.Set(k, FromAny(m[k]))
	}
	return b
}

func (b *Bindings) Len() int {
	if b == nil {
		return 0
	}
	return len(b.keys)
}

// Keys returns the keys in insertion order.
func (b *Bindings) Keys() []string {
	if b == nil {
		return nil
	}
	return append([]string(nil), b.keys...)
}

func (b *Bindings) Get(key string) (Value, bool) {
	if b == nil {
		return Value{}, false
	}
	v, ok := b.vals[key]
	return v, ok
}

// GetString returns the string binding for key, or "" if absent or not a
// string.
func (b *Bindings) GetString(key string) string {
	v, _ := b.Get(key)
	s, _ := v.AsString()
	return s
}

// Set stores v under key, keeping the original position of existing keys.
func (b *Bindings) Set(key string, v Value) {
	if b.vals == nil {
		b.vals = make(map[string]Value)
	}
	if _, ok := b.vals[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.vals[key] = v
}

// SetDefault stores v only when key is absent and reports whether it did.
func (b *Bindings) SetDefault(key string, v Value) bool {
	if _, ok := b.vals[key]; ok {
		return false
	}
	b.Set(key, v)
	return true
}

func (b *Bindings) Delete(key string) {
	if _, ok := b.vals[key]; !ok {
		return
	}
	delete(b.vals, key)
	b.keys = removeString(b.keys, key)
}

// Lookup resolves a dotted path such as "data.menu.main".
func (b *Bindings) Lookup(dotted string) (Value, bool) {
	parts := strings.Split(dotted, ".")
	cur := b
	for i, p := range parts {
		v, ok := cur.Get(p)
		if !ok {
			return Value{}, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		m, ok := v.AsMap()
		if !ok {
			return Value{}, false
		}
		cur = m
	}
	return Value{}, false
}

// CopyDefaults copies every binding of src that b does not already define.
func (b *Bindings) CopyDefaults(src *Bindings) {
	if src == nil {
		return
	}
	for _, k := range src.keys {
		b.SetDefault(k, src.vals[k])
	}
}

// Clone returns a shallow copy; nested maps are shared.
func (b *Bindings) Clone() *Bindings {
	out := NewBindings()
	if b == nil {
		return out
	}
	out.keys = append(out.keys, b.keys...)
	for k, v := range b.vals {
		out.vals[k] = v
	}
	return out
}

func (b *Bindings) Equal(o *Bindings) bool {
	if b.Len() != o.Len() {
		return false
	}
	for _, k := range b.Keys() {
		ov, ok := o.Get(k)
		if !ok {
			return false
		}
		if v, _ := b.Get(k); !v.Equal(ov) {
			return false
		}
	}
	return true
}

// ToMap converts the bindings into plain Go data.
func (b *Bindings) ToMap() map[string]any {
	out := make(map[string]any, b.Len())
	if b == nil {
		return out
	}
	for _, k := range b.keys {
		out[k] = b.vals[k].ToAny()
	}
	return out
}

// Scope is an ordered chain of bindings searched front to back, typically
// item, then section, then site.
type Scope []*Bindings

// Lookup returns the first binding for the dotted key along the chain.
func (s Scope) Lookup(key string) (Value, bool) {
	for _, b := range s {
		if b == nil {
			continue
		}
		if v, ok := b.Lookup(key); ok {
			return v, true
		}
	}
	return Value{}, false
}

// Flatten merges the chain into one map with earlier scopes winning.
func (s Scope) Flatten() *Bindings {
	out := NewBindings()
	for _, b := range s {
		out.CopyDefaults(b)
	}
	return out
}
