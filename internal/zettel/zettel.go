// Package zettel implements the vault's document model: parsing free-form
// Markdown or RST text into a structured record and rendering it back
// losslessly enough to round-trip unmodified fields.
package zettel

import "time"

// Dialect selects the document grammar used by Parse and Render.
type Dialect string

const (
	// Markdown uses "# Title", "## Heading" and an HTML-comment attribute marker.
	Markdown Dialect = "md"
	// RST uses '='-underlined headings and a ".. attributes" marker.
	RST Dialect = "rst"
)

// Extension returns the vault file extension for the dialect, including the dot.
func (d Dialect) Extension() string { return "." + string(d) }

// Valid reports whether d is a known dialect.
func (d Dialect) Valid() bool { return d == Markdown || d == RST }

// Section is one heading with its body text. The text before the first
// heading forms a section with an empty Heading.
type Section struct {
	Heading string
	Body    string
}

// Zettel is a single note record. Title, sections, and attributes are all
// independently optional; a zettel with none of them is valid.
type Zettel struct {
	Title    string
	Sections []Section
	Attrs    *Attributes

	// Path records where the zettel was loaded from, relative to the vault
	// root. Empty for newly created, unsaved zettels. It is bookkeeping, not
	// an attribute, and is never rendered by Save.
	Path string
}

// New constructs a fresh zettel with the reserved defaults: creation_date
// set to the current time and an empty zlinks list.
func New(title string) *Zettel {
	z := &Zettel{Title: title, Attrs: NewAttributes()}
	z.ensureDefaults()
	return z
}

// ensureDefaults materializes creation_date and zlinks when absent.
func (z *Zettel) ensureDefaults() {
	if _, ok := z.Attrs.Get(CreationDateKey); !ok {
		z.Attrs.SetValue(CreationDateKey, DateTimeValue(time.Now()))
	}
	if _, ok := z.Attrs.Get(LinksKey); !ok {
		z.Attrs.SetValue(LinksKey, LinksValue())
	}
}

// AddSection appends a section.
func (z *Zettel) AddSection(heading, body string) {
	z.Sections = append(z.Sections, Section{Heading: heading, Body: body})
}

// Section returns the body of the named section.
func (z *Zettel) Section(heading string) (string, bool) {
	for _, s := range z.Sections {
		if s.Heading == heading {
			return s.Body, true
		}
	}
	return "", false
}

// Equal compares title, sections, and the intersection of attribute keys.
// An attribute present on only one side does not make the zettels unequal.
func (z *Zettel) Equal(o *Zettel) bool {
	if z.Title != o.Title || len(z.Sections) != len(o.Sections) {
		return false
	}
	for i := range z.Sections {
		if z.Sections[i] != o.Sections[i] {
			return false
		}
	}
	return z.Attrs.equalIntersection(o.Attrs)
}

// Update replaces this zettel's title, sections, and attributes with those
// of other, keeping the original creation_date.
//
// With a non-empty expectedHeadings list only those headings are
// reconciled: one that is listed but missing from other is removed, the
// rest of other's sections are merged in, and unlisted sections survive.
func (z *Zettel) Update(other *Zettel, expectedHeadings []string) {
	z.Title = other.Title

	orig, hadCreation := z.Attrs.Get(CreationDateKey)
	z.Attrs = other.Attrs.Clone()
	if hadCreation {
		z.Attrs.SetValue(CreationDateKey, orig)
	}

	if len(expectedHeadings) == 0 {
		z.Sections = append([]Section(nil), other.Sections...)
		return
	}

	for _, h := range expectedHeadings {
		if _, ok := other.Section(h); !ok {
			z.removeSection(h)
		}
	}
	for _, s := range other.Sections {
		z.setSection(s.Heading, s.Body)
	}
}

func (z *Zettel) removeSection(heading string) {
	out := z.Sections[:0]
	for _, s := range z.Sections {
		if s.Heading != heading {
			out = append(out, s)
		}
	}
	z.Sections = out
}

func (z *Zettel) setSection(heading, body string) {
	for i, s := range z.Sections {
		if s.Heading == heading {
			z.Sections[i].Body = body
			return
		}
	}
	z.AddSection(heading, body)
}

// Links returns the zlinks identifiers, never nil.
func (z *Zettel) Links() []string {
	if v, ok := z.Attrs.Get(LinksKey); ok && v.Kind == KindLinks {
		return v.Links
	}
	return []string{}
}

// CreationDate returns the creation_date value when it is date-typed.
func (z *Zettel) CreationDate() (time.Time, bool) {
	v, ok := z.Attrs.Get(CreationDateKey)
	if !ok || (v.Kind != KindDate && v.Kind != KindDateTime) {
		return time.Time{}, false
	}
	return v.Time, true
}
