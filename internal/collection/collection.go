// Package collection implements batch operations over vault zettels:
// loading, filtering, creating, batch editing, and file lifecycle.
package collection

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/arnvald/zettel/internal/apperr"
	"github.com/arnvald/zettel/internal/editor"
	"github.com/arnvald/zettel/internal/storage"
	"github.com/arnvald/zettel/internal/template"
	"github.com/arnvald/zettel/internal/zettel"
)

// PathKey is the reserved attribute injected into batch-edit text so edited
// documents can be matched back to their files. It never appears on disk.
const PathKey = "_path"

// Load parses every vault document under dir. A document that fails to
// parse does not abort the batch: good zettels are still returned and the
// per-file failures come back joined as the error.
func Load(store storage.Provider, dir string, d zettel.Dialect) ([]*zettel.Zettel, error) {
	infos, err := store.List(dir)
	if err != nil {
		return nil, err
	}

	var (
		out  []*zettel.Zettel
		errs []error
	)
	for _, info := range infos {
		data, err := store.Read(info.Path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", info.Path, err))
			continue
		}
		z, err := zettel.Parse(string(data), d)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", info.Path, err))
			continue
		}
		z.Path = info.Path
		out = append(out, z)
	}
	return out, errors.Join(errs...)
}

// Save renders each zettel and writes it back to its origin path. Every
// zettel must have been loaded from or assigned a path first.
func Save(store storage.Provider, zs []*zettel.Zettel, d zettel.Dialect) error {
	for _, z := range zs {
		if z.Path == "" {
			return fmt.Errorf("collection: save %q: %w", z.Title, apperr.ErrNoPath)
		}
	}
	for _, z := range zs {
		text, err := z.Render(d)
		if err != nil {
			return err
		}
		if err := store.Write(z.Path, []byte(text)); err != nil {
			return err
		}
	}
	return nil
}

// Filter returns the zettels for which keep is true, preserving order.
func Filter(zs []*zettel.Zettel, keep func(*zettel.Zettel) bool) []*zettel.Zettel {
	out := make([]*zettel.Zettel, 0, len(zs))
	for _, z := range zs {
		if keep(z) {
			out = append(out, z)
		}
	}
	return out
}

// CreateOptions tune Create.
type CreateOptions struct {
	// Title for the new zettel. Ignored when Text is given.
	Title string
	// Text, when non-empty, is parsed as the full initial document instead
	// of building one from the title and template.
	Text string
	// Headings seeds empty sections. Overrides the template's headings.
	Headings []string
	// Attrs seeds attributes in order. Overrides the template's attrs.
	Attrs []template.Attr
	// TemplatePath overrides the default ztemplate.yaml lookup beside path.
	// Set it to "-" to skip templates entirely.
	TemplatePath string
	// Editor, when non-nil, opens the new zettel for an interactive edit
	// round before the first save.
	Editor editor.Editor
}

// Create makes a new zettel at path, seeded from a template when one exists
// beside it, and saves it. An existing file at path is a conflict.
func Create(store storage.Provider, path string, d zettel.Dialect, opts CreateOptions) (*zettel.Zettel, error) {
	if _, err := store.Read(path); err == nil {
		return nil, fmt.Errorf("collection: create %s: %w", path, apperr.ErrAlreadyExists)
	}

	z, err := seedZettel(store, path, d, opts)
	if err != nil {
		return nil, err
	}
	z.Path = path

	if opts.Editor != nil {
		edited, err := Edit(store, opts.Editor, []*zettel.Zettel{z}, d, EditOptions{})
		if err != nil {
			return nil, err
		}
		if len(edited) == 0 {
			return z, nil
		}
		return edited[0], nil
	}

	if err := Save(store, []*zettel.Zettel{z}, d); err != nil {
		return nil, err
	}
	return z, nil
}

func seedZettel(store storage.Provider, path string, d zettel.Dialect, opts CreateOptions) (*zettel.Zettel, error) {
	if opts.Text != "" {
		z, err := zettel.Parse(opts.Text, d)
		if err != nil {
			return nil, fmt.Errorf("collection: create %s: %w", path, err)
		}
		return z, nil
	}

	tpl, err := loadTemplate(store, path, opts.TemplatePath)
	if err != nil {
		return nil, err
	}

	z := zettel.New(opts.Title)
	headings := opts.Headings
	if len(headings) == 0 {
		headings = tpl.Headings
	}
	for _, h := range headings {
		z.AddSection(h, "")
	}
	attrs := opts.Attrs
	if len(attrs) == 0 {
		attrs = tpl.Attrs
	}
	for _, a := range attrs {
		z.Attrs.Set(a.Key, a.Value)
	}
	return z, nil
}

// loadTemplate reads the template through the vault provider so templates
// live inside the vault next to the zettels they seed.
func loadTemplate(store storage.Provider, path, override string) (template.Template, error) {
	tplPath := override
	switch tplPath {
	case "-":
		return template.Template{}, nil
	case "":
		tplPath = filepath.Join(filepath.Dir(path), template.DefaultName)
	}
	data, err := store.Read(tplPath)
	if err != nil {
		if override == "" {
			return template.Template{}, nil
		}
		return template.Template{}, err
	}
	return template.Parse(data)
}

// EditOptions tune a batch Edit.
type EditOptions struct {
	// Headings limits the edit to the named sections. Sections outside the
	// list survive the round-trip untouched.
	Headings []string
	// Delete removes the files of zettels erased from the edited text.
	Delete bool
	// ErrLog, when non-empty, receives the raw edited text if it fails to
	// parse, so a long editing session is not lost.
	ErrLog string
}

// Edit renders the zettels into one buffer, runs the editor over it, parses
// the result back, reconciles each document with its original by the _path
// marker, and saves. Zettels added in the buffer are created; zettels
// removed from it are deleted when opts.Delete is set.
func Edit(store storage.Provider, ed editor.Editor, zs []*zettel.Zettel, d zettel.Dialect, opts EditOptions) ([]*zettel.Zettel, error) {
	byPath := make(map[string]*zettel.Zettel, len(zs))
	for _, z := range zs {
		if z.Path == "" {
			return nil, fmt.Errorf("collection: edit %q: %w", z.Title, apperr.ErrNoPath)
		}
		byPath[z.Path] = z
	}

	text, err := renderForEdit(zs, d, opts.Headings)
	if err != nil {
		return nil, err
	}
	edited, err := ed.Edit(text, d.Extension())
	if err != nil {
		return nil, err
	}

	updates, err := zettel.ParseMany(edited, d)
	if err != nil {
		if opts.ErrLog != "" {
			if werr := store.Write(opts.ErrLog, []byte(edited)); werr != nil {
				return nil, errors.Join(err, werr)
			}
			return nil, fmt.Errorf("collection: edited text saved to %s: %w", opts.ErrLog, err)
		}
		return nil, err
	}

	var modified []*zettel.Zettel
	seen := make(map[string]struct{}, len(updates))
	for _, u := range updates {
		path, err := takePath(u)
		if err != nil {
			return nil, err
		}
		seen[path] = struct{}{}
		orig, ok := byPath[path]
		if !ok {
			// New zettel typed into the buffer.
			u.Path = path
			modified = append(modified, u)
			continue
		}
		orig.Update(u, opts.Headings)
		modified = append(modified, orig)
	}

	if err := Save(store, modified, d); err != nil {
		return nil, err
	}

	if opts.Delete {
		for _, z := range zs {
			if _, ok := seen[z.Path]; !ok {
				if err := store.Delete(z.Path); err != nil {
					return nil, err
				}
			}
		}
	}
	return modified, nil
}

// renderForEdit renders the batch with the _path marker injected and, when
// headings are given, only the selected sections.
func renderForEdit(zs []*zettel.Zettel, d zettel.Dialect, headings []string) (string, error) {
	views := make([]*zettel.Zettel, 0, len(zs))
	for _, z := range zs {
		v := &zettel.Zettel{Title: z.Title, Attrs: z.Attrs.Clone()}
		v.Attrs.SetValue(PathKey, zettel.TextValue(z.Path))
		if len(headings) == 0 {
			v.Sections = append([]zettel.Section(nil), z.Sections...)
		} else {
			for _, s := range z.Sections {
				if containsHeading(headings, s.Heading) {
					v.Sections = append(v.Sections, s)
				}
			}
		}
		views = append(views, v)
	}
	return zettel.RenderMany(views, d)
}

func containsHeading(headings []string, h string) bool {
	for _, want := range headings {
		if want == h {
			return true
		}
	}
	return false
}

// takePath pops the _path marker off an edited zettel.
func takePath(z *zettel.Zettel) (string, error) {
	v, ok := z.Attrs.Get(PathKey)
	if !ok || strings.TrimSpace(v.String()) == "" {
		return "", fmt.Errorf("collection: edited zettel %q lost its %s attribute", z.Title, PathKey)
	}
	z.Attrs.Delete(PathKey)
	return strings.TrimSpace(v.String()), nil
}

// Delete removes each zettel's file and clears its path.
func Delete(store storage.Provider, zs []*zettel.Zettel) error {
	for _, z := range zs {
		if z.Path == "" {
			return fmt.Errorf("collection: delete %q: %w", z.Title, apperr.ErrNoPath)
		}
	}
	for _, z := range zs {
		if err := store.Delete(z.Path); err != nil {
			return err
		}
		z.Path = ""
	}
	return nil
}

// Copy saves the zettels and duplicates their files into destDir, keeping
// base names. It returns the zettels reloaded from their new paths.
func Copy(store storage.Provider, zs []*zettel.Zettel, destDir string, d zettel.Dialect) ([]*zettel.Zettel, error) {
	if err := Save(store, zs, d); err != nil {
		return nil, err
	}
	out := make([]*zettel.Zettel, 0, len(zs))
	for _, z := range zs {
		dst := filepath.Join(destDir, filepath.Base(z.Path))
		if err := store.Copy(z.Path, dst); err != nil {
			return nil, err
		}
		data, err := store.Read(dst)
		if err != nil {
			return nil, err
		}
		nz, err := zettel.Parse(string(data), d)
		if err != nil {
			return nil, err
		}
		nz.Path = dst
		out = append(out, nz)
	}
	return out, nil
}

// Move copies the zettels into destDir and deletes the originals.
func Move(store storage.Provider, zs []*zettel.Zettel, destDir string, d zettel.Dialect) ([]*zettel.Zettel, error) {
	moved, err := Copy(store, zs, destDir, d)
	if err != nil {
		return nil, err
	}
	if err := Delete(store, zs); err != nil {
		return nil, err
	}
	return moved, nil
}
