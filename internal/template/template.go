// Package template loads zettel templates (ztemplate.yaml) that seed new
// zettels with headings and default attributes.
package template

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultName is the template file looked up beside a new zettel.
const DefaultName = "ztemplate.yaml"

// Attr is one seeded attribute. Attrs keep the template file's order
// because attribute order is significant in rendered zettels.
type Attr struct {
	Key   string
	Value string
}

// Template seeds a freshly created zettel.
type Template struct {
	Headings []string
	Attrs    []Attr
}

// Empty reports whether the template seeds nothing.
func (t Template) Empty() bool {
	return len(t.Headings) == 0 && len(t.Attrs) == 0
}

// Parse decodes template YAML. The attrs mapping is walked node-by-node to
// keep file order; yaml.v3 maps would shuffle it.
func Parse(data []byte) (Template, error) {
	var raw struct {
		Headings []string  `yaml:"headings"`
		Attrs    yaml.Node `yaml:"attrs"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Template{}, fmt.Errorf("template: parse: %w", err)
	}

	t := Template{Headings: raw.Headings}
	if raw.Attrs.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(raw.Attrs.Content); i += 2 {
			t.Attrs = append(t.Attrs, Attr{
				Key:   raw.Attrs.Content[i].Value,
				Value: raw.Attrs.Content[i+1].Value,
			})
		}
	}
	return t, nil
}

// Load reads and parses a template file. A missing file is not an error;
// it yields an empty template.
func Load(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Template{}, nil
		}
		return Template{}, fmt.Errorf("template: read %s: %w", path, err)
	}
	return Parse(data)
}
