package zettel

import "strings"

const (
	mdAttrMarker = "<!--- attributes --->"
	mdSeparator  = "<!--- end-zettel --->"
)

func isMdHeading(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "## ")
}

// parseMarkdown splits a document into title, sections, and the attribute
// block behind the last attribute marker. Every structural part is optional;
// an empty document yields a zettel with only the reserved defaults.
func parseMarkdown(text string) (*Zettel, error) {
	z := &Zettel{Attrs: NewAttributes()}
	text = strings.TrimSpace(text)
	if text == "" {
		z.ensureDefaults()
		return z, nil
	}

	content := text
	attrBlock := ""
	if idx := strings.LastIndex(text, mdAttrMarker); idx >= 0 {
		attrBlock = text[idx+len(mdAttrMarker):]
		content = strings.TrimRight(text[:idx], "\n")
	}

	attrs, err := ParseAttributes(attrBlock)
	if err != nil {
		return nil, err
	}
	z.Attrs = attrs

	var lines []string
	if strings.TrimSpace(content) != "" {
		lines = strings.Split(content, "\n")
	}

	if len(lines) > 0 {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(lines[0]), "# "); ok {
			z.Title = strings.TrimSpace(rest)
			lines = lines[1:]
		}
	}

	var pts []int
	for i, l := range lines {
		if isMdHeading(l) {
			pts = append(pts, i)
		}
	}

	first := len(lines)
	if len(pts) > 0 {
		first = pts[0]
	}
	if lead := strings.TrimRight(strings.Join(lines[:first], "\n"), "\n"); strings.TrimSpace(lead) != "" {
		z.Sections = append(z.Sections, Section{Body: lead})
	}

	for n, p := range pts {
		next := len(lines)
		if n+1 < len(pts) {
			next = pts[n+1]
		}
		heading := strings.TrimSpace(strings.TrimPrefix(strings.TrimLeft(lines[p], " \t"), "## "))
		body := strings.TrimRight(strings.Join(lines[p+1:next], "\n"), "\n")
		z.Sections = append(z.Sections, Section{Heading: heading, Body: body})
	}

	z.ensureDefaults()
	return z, nil
}

// renderMarkdown is the inverse of parseMarkdown. Unset parts are omitted
// entirely; the attribute block appears only when the bag is non-empty.
func renderMarkdown(z *Zettel) string {
	var out []string
	if z.Title != "" {
		out = append(out, "# "+z.Title)
	}
	for _, s := range z.Sections {
		if s.Heading != "" {
			out = append(out, "## "+s.Heading)
		}
		if s.Body != "" {
			out = append(out, s.Body)
		}
	}
	if z.Attrs.Len() > 0 {
		out = append(out, mdAttrMarker, z.Attrs.Render())
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}
