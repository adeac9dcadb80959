// Package editor runs the user's external text editor over a temp file.
package editor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ErrNoEditor is returned when no editor command could be resolved.
var ErrNoEditor = errors.New("editor: no editor configured and neither $EDITOR nor $VISUAL is set")

// Editor abstracts the edit round-trip so batch editing can be tested
// without a terminal.
type Editor interface {
	// Edit opens text for editing and returns the edited result. ext is the
	// temp-file extension (e.g. ".md") so the editor picks up highlighting.
	Edit(text, ext string) (string, error)
}

// Func adapts a plain function to the Editor interface.
type Func func(text string) (string, error)

// Edit implements Editor.
func (f Func) Edit(text, _ string) (string, error) { return f(text) }

// External invokes a real editor process attached to the terminal.
type External struct {
	// Command overrides environment resolution when non-empty.
	Command string
}

// resolve picks the editor binary: explicit command, then $EDITOR, then $VISUAL.
func (e *External) resolve() (string, error) {
	candidates := []string{e.Command, os.Getenv("EDITOR"), os.Getenv("VISUAL")}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, err := exec.LookPath(c); err == nil {
			return c, nil
		}
	}
	return "", ErrNoEditor
}

// Edit writes text to a temp file, runs the editor on it, and returns the
// file's content afterwards. The temp file is always removed.
func (e *External) Edit(text, ext string) (string, error) {
	bin, err := e.resolve()
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "zettel-edit-*"+ext)
	if err != nil {
		return "", fmt.Errorf("editor: create temp: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return "", fmt.Errorf("editor: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("editor: close temp: %w", err)
	}

	cmd := exec.Command(bin, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("editor: run %s: %w", bin, err)
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("editor: read back: %w", err)
	}
	return string(edited), nil
}
