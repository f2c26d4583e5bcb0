package stages

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed prompts/*.md.tmpl
var promptsFS embed.FS

// PromptRenderer renders the writer and reviewer prompts from the embedded
// templates.
type PromptRenderer struct {
	templates map[string]*template.Template
}

// NewPromptRenderer parses every embedded template.
func NewPromptRenderer() (*PromptRenderer, error) {
	r := &PromptRenderer{templates: make(map[string]*template.Template)}
	err := fs.WalkDir(promptsFS, "prompts", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md.tmpl") {
			return nil
		}
		content, err := promptsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(path, "prompts/"), ".md.tmpl")
		tmpl, err := template.New(name).Funcs(template.FuncMap{
			"add": func(a, b int) int { return a + b },
		}).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parsing template %s: %w", name, err)
		}
		r.templates[name] = tmpl
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	return r, nil
}

// mustPromptRenderer panics if the embedded templates are broken, which
// can only happen at build time.
func mustPromptRenderer() *PromptRenderer {
	r, err := NewPromptRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// WriterParams feed the writer template.
type WriterParams struct {
	Topic string
	Notes []string
}

// RenderWriter renders the drafting prompt.
func (r *PromptRenderer) RenderWriter(p WriterParams) (string, error) {
	return r.render("writer", p)
}

// ReviewerParams feed the reviewer template.
type ReviewerParams struct {
	Topic     string
	Draft     string
	WordCount int
}

// RenderReviewer renders the evaluation prompt.
func (r *PromptRenderer) RenderReviewer(p ReviewerParams) (string, error) {
	return r.render("reviewer", p)
}

func (r *PromptRenderer) render(name string, data interface{}) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template %s: %w", name, err)
	}
	return buf.String(), nil
}
