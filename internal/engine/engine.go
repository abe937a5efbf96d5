// Package engine defines the pluggable template rendering capability.
package engine

import (
	"errors"
	"html/template"
	"io"
	"path/filepath"
)

// Engine renders a named template. Any implementation can be plugged into
// the server.
type Engine interface {
	Render(w io.Writer, name string, data any) error
}

// HTMLEngine is the default Engine, backed by html/template files loaded
// from a directory glob.
type HTMLEngine struct {
	t *template.Template
}

// NewHTML parses every *.html file under dir.
func NewHTML(dir string) (*HTMLEngine, error) {
	t, err := template.ParseGlob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	return &HTMLEngine{t: t}, nil
}

func (e *HTMLEngine) Render(w io.Writer, name string, data any) error {
	return e.t.ExecuteTemplate(w, name, data)
}

// ErrNoEngine is returned by the no-op Engine on any render attempt.
var ErrNoEngine = errors.New("no template engine configured")

type nopEngine struct{}

// Nop returns an Engine that refuses to render. It keeps call sites free of
// nil checks when no engine is configured.
func Nop() Engine { return nopEngine{} }

func (nopEngine) Render(io.Writer, string, any) error { return ErrNoEngine }
