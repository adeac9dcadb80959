package zettel

import (
	"strings"
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	before := time.Now()
	z := New("Fresh")
	if z.Title != "Fresh" {
		t.Errorf("title = %q", z.Title)
	}
	cd, ok := z.CreationDate()
	if !ok {
		t.Fatal("creation_date missing")
	}
	// The stored value is naive wall-clock; compare against the same fields.
	y, mo, d := before.Date()
	if cy, cmo, cdd := cd.Date(); cy != y || cmo != mo || cdd != d {
		t.Errorf("creation_date = %v, want today", cd)
	}
	if len(z.Links()) != 0 {
		t.Errorf("zlinks = %v", z.Links())
	}
}

func TestEqual_AsymmetricAttributes(t *testing.T) {
	a := mustParse(t, "# T\n<!--- attributes --->\ncreation_date: 2023-01-01\nshared: x\n", Markdown)
	b := mustParse(t, "# T\n<!--- attributes --->\ncreation_date: 2023-01-01\nshared: x\nextra: only here\n", Markdown)

	if !a.Equal(b) || !b.Equal(a) {
		t.Error("zettels differing only in a one-sided key must be equal")
	}

	b.Attrs.Set("shared", "different")
	if a.Equal(b) {
		t.Error("differing shared key must make zettels unequal")
	}
}

func TestEqual_SectionsOrdered(t *testing.T) {
	a := New("T")
	a.AddSection("One", "1")
	a.AddSection("Two", "2")

	b := New("T")
	b.AddSection("Two", "2")
	b.AddSection("One", "1")

	if a.Equal(b) {
		t.Error("section order is significant")
	}
}

func TestUpdate_PreservesCreationDate(t *testing.T) {
	orig := mustParse(t, "# Old\n<!--- attributes --->\ncreation_date: 2020-05-05\n", Markdown)
	edited := mustParse(t, "# New\n## H\nbody\n<!--- attributes --->\ncreation_date: 2024-01-01\nstate: open\n", Markdown)

	orig.Update(edited, nil)

	if orig.Title != "New" {
		t.Errorf("title = %q", orig.Title)
	}
	cd, _ := orig.CreationDate()
	if want := time.Date(2020, 5, 5, 0, 0, 0, 0, time.UTC); !cd.Equal(want) {
		t.Errorf("creation_date = %v, want %v", cd, want)
	}
	if v, ok := orig.Attrs.Get("state"); !ok || v.Text != "open" {
		t.Errorf("state = %+v, %v", v, ok)
	}
	if body, ok := orig.Section("H"); !ok || body != "body" {
		t.Errorf("section H = %q, %v", body, ok)
	}
}

func TestUpdate_ExpectedHeadings(t *testing.T) {
	orig := New("T")
	orig.AddSection("Keep", "untouched")
	orig.AddSection("Drop", "should go")

	edited := New("T")
	edited.AddSection("Drop2", "replacement content") // renamed, "Drop" absent

	orig.Update(edited, []string{"Drop"})

	if _, ok := orig.Section("Drop"); ok {
		t.Error("expected heading missing from edit should be removed")
	}
	if body, ok := orig.Section("Keep"); !ok || body != "untouched" {
		t.Error("unlisted section must survive")
	}
	if body, ok := orig.Section("Drop2"); !ok || body != "replacement content" {
		t.Error("new section from edit must be merged in")
	}
}

func TestParseMany_RoundTrip(t *testing.T) {
	a := New("First")
	a.AddSection("", "alpha body")
	b := New("Second")
	b.Attrs.Set("state", "open")

	text, err := RenderMany([]*Zettel{a, b}, Markdown)
	if err != nil {
		t.Fatalf("RenderMany: %v", err)
	}
	if !strings.Contains(text, mdSeparator) {
		t.Fatalf("separator missing:\n%s", text)
	}

	back, err := ParseMany(text, Markdown)
	if err != nil {
		t.Fatalf("ParseMany: %v", err)
	}
	if len(back) != 2 {
		t.Fatalf("len = %d, want 2", len(back))
	}
	if !a.Equal(back[0]) || !b.Equal(back[1]) {
		t.Error("batch round-trip changed zettels")
	}
}

func TestParseMany_Empty(t *testing.T) {
	zs, err := ParseMany("", Markdown)
	if err != nil || len(zs) != 0 {
		t.Errorf("zs = %v, err = %v", zs, err)
	}
}

func TestParseMany_TrailingSeparator(t *testing.T) {
	text := "# Only\n" + mdSeparator + "\n"
	zs, err := ParseMany(text, Markdown)
	if err != nil {
		t.Fatalf("ParseMany: %v", err)
	}
	if len(zs) != 1 || zs[0].Title != "Only" {
		t.Errorf("zs = %+v", zs)
	}
}

func TestParseMany_RSTSeparator(t *testing.T) {
	text := "First doc body\n" + rstSeparator + "\n\nSecond doc body\n"
	zs, err := ParseMany(text, RST)
	if err != nil {
		t.Fatalf("ParseMany: %v", err)
	}
	if len(zs) != 2 {
		t.Fatalf("len = %d, want 2", len(zs))
	}
}

func TestParse_UnknownDialect(t *testing.T) {
	if _, err := Parse("x", Dialect("org")); err == nil {
		t.Error("expected error for unknown dialect")
	}
	z := New("")
	if _, err := z.Render(Dialect("org")); err == nil {
		t.Error("expected error for unknown dialect")
	}
}
