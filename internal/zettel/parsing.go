package zettel

import (
	"fmt"
	"strings"
)

// Parse converts a full document in the given dialect into a Zettel.
// Documents with no title, no sections, and/or no attributes all parse
// successfully; only structurally invalid text returns a ParseError.
func Parse(text string, d Dialect) (*Zettel, error) {
	switch d {
	case Markdown:
		return parseMarkdown(text)
	case RST:
		return parseRST(text)
	default:
		return nil, fmt.Errorf("zettel: unknown dialect %q", d)
	}
}

// Render serializes the zettel in the given dialect. Rendering the same
// unmodified zettel twice yields identical text.
func (z *Zettel) Render(d Dialect) (string, error) {
	switch d {
	case Markdown:
		return renderMarkdown(z), nil
	case RST:
		return renderRST(z), nil
	default:
		return "", fmt.Errorf("zettel: unknown dialect %q", d)
	}
}

// Separator returns the end-zettel line separating documents in a batch.
func Separator(d Dialect) string {
	if d == RST {
		return rstSeparator
	}
	return mdSeparator
}

// ParseMany splits text on the dialect's end-zettel separator and parses
// each piece. An error in any piece aborts the whole batch.
func ParseMany(text string, d Dialect) ([]*Zettel, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("zettel: unknown dialect %q", d)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var out []*Zettel
	for i, piece := range strings.Split(text, Separator(d)) {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		z, err := Parse(piece, d)
		if err != nil {
			return nil, fmt.Errorf("zettel %d: %w", i+1, err)
		}
		out = append(out, z)
	}
	return out, nil
}

// RenderMany renders the zettels in caller order, separated by the
// dialect's end-zettel line. Its output parses back via ParseMany.
func RenderMany(zs []*Zettel, d Dialect) (string, error) {
	if !d.Valid() {
		return "", fmt.Errorf("zettel: unknown dialect %q", d)
	}
	parts := make([]string, 0, len(zs))
	for _, z := range zs {
		text, err := z.Render(d)
		if err != nil {
			return "", err
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, Separator(d)+"\n\n"), nil
}
