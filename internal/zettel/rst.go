package zettel

import (
	"strings"
	"unicode/utf8"
)

const (
	rstAttrMarker = ".. attributes"
	rstSeparator  = ".. end-zettel"
)

// isRstUnderline reports whether the line is a '='-bar heading marker.
func isRstUnderline(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	for _, r := range line {
		if r != '=' {
			return false
		}
	}
	return true
}

// parseRST handles the RST grammar: an optional over/underlined title,
// '='-underlined section headings, and the attribute block behind the last
// ".. attributes" marker.
func parseRST(text string) (*Zettel, error) {
	z := &Zettel{Attrs: NewAttributes()}
	text = strings.TrimSpace(text)
	if text == "" {
		z.ensureDefaults()
		return z, nil
	}

	content := text
	attrBlock := ""
	if idx := strings.LastIndex(text, rstAttrMarker); idx >= 0 {
		attrBlock = strings.TrimSpace(text[idx+len(rstAttrMarker):])
		// Older vaults carry a literal-block "::" line under the marker.
		attrBlock = strings.TrimSpace(strings.TrimPrefix(attrBlock, "::"))
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

	if len(lines) >= 3 && isRstUnderline(lines[0]) && isRstUnderline(lines[2]) {
		z.Title = strings.TrimSpace(lines[1])
		lines = lines[3:]
	}

	// A heading is the line directly above each underline bar.
	var pts []int
	for i, l := range lines {
		if !isRstUnderline(l) {
			continue
		}
		if i == 0 {
			return nil, parseErrorf(i+1, "section underline without a heading")
		}
		pts = append(pts, i-1)
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
		heading := strings.TrimSpace(lines[p])
		body := strings.TrimRight(strings.Join(lines[p+2:next], "\n"), "\n")
		z.Sections = append(z.Sections, Section{Heading: heading, Body: body})
	}

	z.ensureDefaults()
	return z, nil
}

func renderRST(z *Zettel) string {
	var out []string
	if z.Title != "" {
		bar := strings.Repeat("=", utf8.RuneCountInString(z.Title)+2)
		out = append(out, bar, " "+z.Title, bar)
	}
	for _, s := range z.Sections {
		if s.Heading != "" {
			out = append(out, s.Heading, strings.Repeat("=", utf8.RuneCountInString(s.Heading)))
		}
		if s.Body != "" {
			out = append(out, s.Body)
		}
	}
	if z.Attrs.Len() > 0 {
		out = append(out, rstAttrMarker, z.Attrs.Render())
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}
