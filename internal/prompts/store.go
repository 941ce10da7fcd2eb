package prompts

import (
	"text/template"

	"github.com/jackzampolin/protocollens/internal/protocol"
)

type compiledTemplate struct {
	Template
	parsed *template.Template
}

// Store holds the loaded templates. It is never mutated after Load returns,
// so it is safe to share across concurrent pipeline runs.
type Store struct {
	templates map[string]*compiledTemplate
	order     []string
}

// Get returns the template for a stage.
func (s *Store) Get(stage string) (Template, error) {
	ct, ok := s.templates[stage]
	if !ok {
		return Template{}, &protocol.TemplateNotFoundError{Stage: stage}
	}
	return ct.Template, nil
}

// List returns all templates in registration order.
func (s *Store) List() []Template {
	out := make([]Template, 0, len(s.order))
	for _, stage := range s.order {
		out = append(out, s.templates[stage].Template)
	}
	return out
}

// Render substitutes args into the stage template.
func (s *Store) Render(stage string, args map[string]string) (Rendered, error) {
	ct, ok := s.templates[stage]
	if !ok {
		return Rendered{}, &protocol.TemplateNotFoundError{Stage: stage}
	}

	text, err := execute(ct.parsed, args)
	if err != nil {
		return Rendered{}, &protocol.TemplateRenderError{Stage: stage, Cause: err}
	}

	return Rendered{
		Stage:   stage,
		Version: ct.Version,
		Hash:    ct.Hash,
		Text:    text,
		Schema:  ct.Schema,
	}, nil
}
