package zettel

import (
	"strings"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// LinksKey is the reserved attribute holding zettel-link identifiers.
const LinksKey = "zlinks"

// CreationDateKey is the reserved attribute every materialized zettel carries.
const CreationDateKey = "creation_date"

// Kind identifies how an attribute value is typed.
type Kind int

const (
	// KindText is a plain string value.
	KindText Kind = iota
	// KindDate is a calendar date without a time of day.
	KindDate
	// KindDateTime is a date with a time of day.
	KindDateTime
	// KindLinks is a list of zettel-link identifiers.
	KindLinks
)

// Extra keys treated as date-typed even though they lack the "date"
// substring. Inherited from older vaults that scheduled events with them.
var dateKeys = map[string]struct{}{
	"event_begin":    {},
	"event_end":      {},
	"recurring_stop": {},
}

// Classify returns the intended kind for an attribute key. Date
// classification is opportunistic: when the text does not parse as a date
// the stored value degrades to KindText.
func Classify(key string) Kind {
	if key == LinksKey {
		return KindLinks
	}
	if _, ok := dateKeys[key]; ok {
		return KindDateTime
	}
	if strings.Contains(strings.ToLower(key), "date") {
		return KindDateTime
	}
	return KindText
}

// Value is a typed attribute value.
type Value struct {
	Kind  Kind
	Text  string    // KindText
	Time  time.Time // KindDate, KindDateTime
	Links []string  // KindLinks
}

// TextValue returns a plain-text value.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// DateValue returns a date-only value.
func DateValue(t time.Time) Value { return Value{Kind: KindDate, Time: t} }

// DateTimeValue returns a date-time value. The wall-clock fields are kept
// and the zone is dropped, minute precision, so the canonical zone-less
// rendering round-trips losslessly.
func DateTimeValue(t time.Time) Value {
	y, mo, d := t.Date()
	h, mi, _ := t.Clock()
	return Value{Kind: KindDateTime, Time: time.Date(y, mo, d, h, mi, 0, 0, time.UTC)}
}

// LinksValue returns a link-list value.
func LinksValue(ids ...string) Value { return Value{Kind: KindLinks, Links: ids} }

// String renders the value in its canonical text form.
func (v Value) String() string {
	switch v.Kind {
	case KindDate:
		return v.Time.Format(canonicalDate)
	case KindDateTime:
		return v.Time.Format(canonicalDateTime)
	case KindLinks:
		return strings.Join(v.Links, ",")
	default:
		return v.Text
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindDate, KindDateTime:
		return v.Time.Equal(o.Time)
	case KindLinks:
		if len(v.Links) != len(o.Links) {
			return false
		}
		for i := range v.Links {
			if v.Links[i] != o.Links[i] {
				return false
			}
		}
		return true
	default:
		return v.Text == o.Text
	}
}

// parseValue types raw text according to the key's classification.
func parseValue(key, raw string) Value {
	switch Classify(key) {
	case KindLinks:
		return LinksValue(splitLinks(raw)...)
	case KindDateTime:
		if raw == "" {
			return TextValue(raw)
		}
		t, hasClock, ok := parseDateText(raw)
		if !ok {
			return TextValue(raw)
		}
		if hasClock {
			return Value{Kind: KindDateTime, Time: t}
		}
		return DateValue(t)
	default:
		return TextValue(raw)
	}
}

func splitLinks(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Attributes is an insertion-ordered mapping of attribute name to typed
// value. Order is semantically meaningful: it is preserved across a
// parse→render→parse cycle so human-edited files keep their shape.
type Attributes struct {
	m *orderedmap.OrderedMap[string, Value]
}

// NewAttributes returns an empty attribute bag.
func NewAttributes() *Attributes {
	return &Attributes{m: orderedmap.New[string, Value]()}
}

// ParseAttributes parses a block of newline-separated "key: value" lines.
// Blank lines are skipped and surrounding whitespace is trimmed. A line
// without a separator or a repeated key is a ParseError.
func ParseAttributes(block string) (*Attributes, error) {
	a := NewAttributes()
	for i, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			return nil, parseErrorf(i+1, "attribute line %q has no ':' separator", line)
		}
		key := strings.TrimSpace(line[:idx])
		if key == "" {
			return nil, parseErrorf(i+1, "attribute line %q has an empty key", line)
		}
		if _, dup := a.Get(key); dup {
			return nil, parseErrorf(i+1, "duplicate attribute key %q", key)
		}
		a.Set(key, strings.TrimSpace(line[idx+1:]))
	}
	return a, nil
}

// Render serializes the bag as "key: value" lines in stored order.
// Rendering an empty bag yields an empty string.
func (a *Attributes) Render() string {
	var b strings.Builder
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(pair.Key)
		b.WriteByte(':')
		if s := pair.Value.String(); s != "" {
			b.WriteByte(' ')
			b.WriteString(s)
		}
	}
	return b.String()
}

// Get returns the value stored for key.
func (a *Attributes) Get(key string) (Value, bool) {
	return a.m.Get(key)
}

// Set stores raw text under key, typed via Classify. An existing key keeps
// its position; a new key is appended.
func (a *Attributes) Set(key, raw string) {
	a.m.Set(key, parseValue(key, raw))
}

// SetValue stores an already-typed value under key.
func (a *Attributes) SetValue(key string, v Value) {
	a.m.Set(key, v)
}

// Delete removes key and reports whether it was present.
func (a *Attributes) Delete(key string) bool {
	_, present := a.m.Delete(key)
	return present
}

// Len returns the number of attributes.
func (a *Attributes) Len() int { return a.m.Len() }

// Keys returns attribute names in stored order.
func (a *Attributes) Keys() []string {
	out := make([]string, 0, a.m.Len())
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Clone returns an independent copy preserving order.
func (a *Attributes) Clone() *Attributes {
	c := NewAttributes()
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		v := pair.Value
		if v.Kind == KindLinks {
			v.Links = append([]string(nil), v.Links...)
		}
		c.m.Set(pair.Key, v)
	}
	return c
}

// Equal reports strict equality: same keys, same order, same values.
func (a *Attributes) Equal(o *Attributes) bool {
	if a.Len() != o.Len() {
		return false
	}
	op := o.m.Oldest()
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		if op == nil || pair.Key != op.Key || !pair.Value.Equal(op.Value) {
			return false
		}
		op = op.Next()
	}
	return true
}

// equalIntersection compares only keys present in both bags. Keys on one
// side only are ignored, so zettels with heterogeneous attribute sets still
// compare equal on their shared fields.
func (a *Attributes) equalIntersection(o *Attributes) bool {
	for pair := a.m.Oldest(); pair != nil; pair = pair.Next() {
		if ov, ok := o.m.Get(pair.Key); ok && !pair.Value.Equal(ov) {
			return false
		}
	}
	return true
}
