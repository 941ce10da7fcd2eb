package prompts

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// OverrideExt is the file extension of override templates.
const OverrideExt = ".tmpl"

// Resolver collects embedded prompts during initialization and resolves
// overrides when the store is loaded.
// Resolution order: override file > Embedded default
type Resolver struct {
	embedded map[string]EmbeddedPrompt
	order    []string
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewResolver creates a new prompt resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		embedded: make(map[string]EmbeddedPrompt),
		logger:   logger,
	}
}

// Register registers an embedded prompt.
// This should be called during initialization by each stage package.
func (r *Resolver) Register(prompt EmbeddedPrompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Compute hash if not provided
	if prompt.Hash == "" {
		prompt.Hash = HashText(prompt.Text)
	}

	// Extract variables if not provided
	if prompt.Variables == nil {
		prompt.Variables = ExtractVariables(prompt.Text)
	}

	if _, exists := r.embedded[prompt.Key]; !exists {
		r.order = append(r.order, prompt.Key)
	}
	r.embedded[prompt.Key] = prompt
	r.logger.Debug("registered embedded prompt", "key", prompt.Key, "version", prompt.Version, "vars", prompt.Variables)
}

// AllEmbedded returns all registered embedded prompts in registration order.
func (r *Resolver) AllEmbedded() []EmbeddedPrompt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]EmbeddedPrompt, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, r.embedded[key])
	}
	return result
}

// Load resolves every registered prompt against overrideDir and returns an
// immutable Store. An empty overrideDir, or one that does not exist, means
// embedded defaults only.
func (r *Resolver) Load(overrideDir string) (*Store, error) {
	embedded := r.AllEmbedded()
	if len(embedded) == 0 {
		return nil, fmt.Errorf("no prompts registered")
	}

	store := &Store{
		templates: make(map[string]*compiledTemplate, len(embedded)),
		order:     make([]string, 0, len(embedded)),
	}

	for _, p := range embedded {
		tmpl := Template{
			Stage:       p.Key,
			Version:     p.Version,
			Description: p.Description,
			Text:        p.Text,
			Variables:   p.Variables,
			Hash:        p.Hash,
			Source:      "embedded",
			Schema:      p.Schema,
		}

		text, path, err := readOverride(overrideDir, p.Key)
		if err != nil {
			return nil, err
		}
		if path != "" {
			tmpl.Text = text
			tmpl.Variables = ExtractVariables(text)
			tmpl.Hash = HashText(text)
			tmpl.IsOverride = true
			tmpl.Source = path
			r.logger.Info("using prompt override", "key", p.Key, "path", path, "hash", tmpl.Hash[:12])
		}

		parsed, err := parseTemplate(p.Key, tmpl.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s (%s): %w", p.Key, tmpl.Source, err)
		}

		store.templates[p.Key] = &compiledTemplate{Template: tmpl, parsed: parsed}
		store.order = append(store.order, p.Key)
	}

	r.logger.Info("loaded prompt templates", "count", len(store.order))
	return store, nil
}

func readOverride(dir, key string) (string, string, error) {
	if dir == "" {
		return "", "", nil
	}
	path := filepath.Join(dir, key+OverrideExt)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", "", nil
		}
		return "", "", fmt.Errorf("failed to read prompt override %s: %w", path, err)
	}
	return string(b), path, nil
}
