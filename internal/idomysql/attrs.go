package idomysql

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Value is an explicit optional config value. The zero Value is unset and is
// omitted from the render entirely; it never renders as an empty or null
// token. Values are pre-rendered icinga2 DSL literals.
type Value struct {
	set  bool
	text string
}

// Unset returns the unset sentinel.
func Unset() Value {
	return Value{}
}

// IsSet reports whether the value renders at all.
func (v Value) IsSet() bool {
	return v.set
}

// StringVal returns a quoted string literal.
func StringVal(s string) Value {
	return Value{set: true, text: quote(s)}
}

// NumberVal returns a bare numeric literal.
func NumberVal(n int) Value {
	return Value{set: true, text: strconv.Itoa(n)}
}

// BoolVal returns a bare boolean literal.
func BoolVal(b bool) Value {
	return Value{set: true, text: strconv.FormatBool(b)}
}

// DurationVal returns a duration literal in whole seconds.
func DurationVal(d time.Duration) Value {
	return Value{set: true, text: strconv.Itoa(int(d/time.Second)) + "s"}
}

// ArrayVal returns an array literal of quoted strings.
func ArrayVal(items []string) Value {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		quoted = append(quoted, quote(item))
	}
	return Value{set: true, text: "[ " + strings.Join(quoted, ", ") + " ]"}
}

// DictVal returns a dictionary literal of duration values with keys in
// sorted order, so identical inputs always render identically.
func DictVal(entries map[string]time.Duration) Value {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("{\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "    %s = %ds\n", k, int(entries[k]/time.Second))
	}
	b.WriteString("  }")
	return Value{set: true, text: b.String()}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// Pair is one rendered attribute.
type Pair struct {
	Key   string
	Value Value
}

// Attrs is the ordered attribute mapping destined for the rendered config.
type Attrs struct {
	keys []string
	vals map[string]Value
}

// NewAttrs creates an empty mapping.
func NewAttrs() *Attrs {
	return &Attrs{vals: make(map[string]Value)}
}

// Set records a value under key. Setting an existing key replaces the value
// but keeps the key's original position.
func (a *Attrs) Set(key string, v Value) {
	if _, ok := a.vals[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.vals[key] = v
}

// Get returns the value for key.
func (a *Attrs) Get(key string) (Value, bool) {
	v, ok := a.vals[key]
	return v, ok
}

// Merge merges the overlay over this mapping: overlay keys take precedence
// on conflict, new overlay keys append after the base keys.
func (a *Attrs) Merge(overlay *Attrs) {
	if overlay == nil {
		return
	}
	for _, p := range overlay.all() {
		a.Set(p.Key, p.Value)
	}
}

// Pairs returns the set attributes in order; unset values are filtered out.
func (a *Attrs) Pairs() []Pair {
	pairs := make([]Pair, 0, len(a.keys))
	for _, k := range a.keys {
		v := a.vals[k]
		if !v.IsSet() {
			continue
		}
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	return pairs
}

func (a *Attrs) all() []Pair {
	pairs := make([]Pair, 0, len(a.keys))
	for _, k := range a.keys {
		pairs = append(pairs, Pair{Key: k, Value: a.vals[k]})
	}
	return pairs
}
