package prompt

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"text/template"
)

// Template is a prompt that renders with missingkey=error. Templates read
// from disk can be reloaded while other goroutines render.
type Template struct {
	name  string
	path  string
	funcs template.FuncMap
	cur   atomic.Pointer[compiled]
}

type compiled struct {
	tmpl   *template.Template
	digest string
}

// baseFuncs are available to every prompt; caller funcs override them.
var baseFuncs = template.FuncMap{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join":  strings.Join,
}

// NewTemplate reads and parses the prompt file at path.
func NewTemplate(path string, funcs template.FuncMap) (*Template, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("prompt: empty template path")
	}
	t := &Template{name: filepath.Base(path), path: path, funcs: funcs}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Parse builds a template from text held in memory.
func Parse(name, text string, funcs template.FuncMap) (*Template, error) {
	t := &Template{name: name, funcs: funcs}
	c, err := t.compile([]byte(text))
	if err != nil {
		return nil, err
	}
	t.cur.Store(c)
	return t, nil
}

// Name is the file base name, or the name given to Parse.
func (t *Template) Name() string { return t.name }

// Digest is the hex sha256 of the source currently in use.
func (t *Template) Digest() string {
	if c := t.cur.Load(); c != nil {
		return c.digest
	}
	return ""
}

// Render executes the template against data.
func (t *Template) Render(data any) (string, error) {
	c := t.cur.Load()
	if c == nil {
		return "", fmt.Errorf("prompt %s: not parsed", t.name)
	}
	var sb strings.Builder
	if err := c.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("prompt %s: render: %w", t.name, err)
	}
	return sb.String(), nil
}

// Reload rereads the file. A failed reload keeps the previous version. It is
// a no-op for in-memory templates.
func (t *Template) Reload() error {
	if t.path == "" {
		return nil
	}
	src, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("prompt %s: read: %w", t.name, err)
	}
	c, err := t.compile(src)
	if err != nil {
		return err
	}
	t.cur.Store(c)
	return nil
}

func (t *Template) compile(src []byte) (*compiled, error) {
	tmpl, err := template.New(t.name).
		Option("missingkey=error").
		Funcs(baseFuncs).
		Funcs(t.funcs).
		Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("prompt %s: parse: %w", t.name, err)
	}
	sum := sha256.Sum256(src)
	return &compiled{tmpl: tmpl, digest: hex.EncodeToString(sum[:])}, nil
}
