package editor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFuncAdapter(t *testing.T) {
	ed := Func(func(text string) (string, error) {
		return text + " edited", nil
	})
	got, err := ed.Edit("hello", ".md")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got != "hello edited" {
		t.Errorf("got %q", got)
	}
}

func TestExternal_NoEditorResolved(t *testing.T) {
	t.Setenv("EDITOR", "")
	t.Setenv("VISUAL", "")
	ed := &External{}
	_, err := ed.Edit("text", ".md")
	if !errors.Is(err, ErrNoEditor) {
		t.Errorf("err = %v, want ErrNoEditor", err)
	}
}

func TestExternal_RunsScript(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "fakeedit.sh")
	body := "#!/bin/sh\nprintf 'replaced' > \"$1\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	ed := &External{Command: script}
	got, err := ed.Edit("original", ".md")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got != "replaced" {
		t.Errorf("got %q", got)
	}
}

func TestExternal_CommandWins(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "keep.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	t.Setenv("EDITOR", "/nonexistent/editor")

	ed := &External{Command: script}
	got, err := ed.Edit("untouched", ".rst")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if got != "untouched" {
		t.Errorf("got %q", got)
	}
}

func TestExternal_TempFileExtension(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "nameecho.sh")
	body := "#!/bin/sh\nprintf '%s' \"$1\" > \"$1\"\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	ed := &External{Command: script}
	got, err := ed.Edit("", ".rst")
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !strings.HasSuffix(got, ".rst") {
		t.Errorf("temp file %q does not carry the dialect extension", got)
	}
}
