package stores

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// TemplateDevice is one entry in an effect-chain template: a catalog URI
// plus parameter values applied after loading.
type TemplateDevice struct {
	URI                string             `json:"uri"`
	ParameterOverrides map[string]float64 `json:"parameter_overrides,omitempty"`
}

// Template is a named ordered device chain.
type Template struct {
	Name    string           `json:"name"`
	Devices []TemplateDevice `json:"devices"`
}

// TemplateStore persists effect-chain templates to a single JSON document,
// written through after every mutation and reloaded at startup.
type TemplateStore struct {
	path string
	log  zerolog.Logger

	mu        sync.Mutex
	templates map[string]Template
}

// NewTemplateStore loads (or initializes) the template file under dir.
func NewTemplateStore(dir string, log zerolog.Logger) (*TemplateStore, error) {
	s := &TemplateStore{
		path:      filepath.Join(dir, "effect_chains.json"),
		log:       log.With().Str("component", "templates").Logger(),
		templates: map[string]Template{},
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TemplateStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading template file %s: %w", s.path, err)
	}
	var doc struct {
		Templates map[string]Template `json:"templates"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing template file %s: %w", s.path, err)
	}
	if doc.Templates != nil {
		s.templates = doc.Templates
	}
	s.log.Info().Int("templates", len(s.templates)).Msg("effect-chain templates loaded")
	return nil
}

// persistLocked writes the whole document atomically.
func (s *TemplateStore) persistLocked() error {
	doc := struct {
		Templates map[string]Template `json:"templates"`
	}{Templates: s.templates}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding templates: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating template directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing template temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing template file: %w", err)
	}
	return nil
}

// Save stores a template and writes the file through.
func (s *TemplateStore) Save(t Template) error {
	t.Devices = append([]TemplateDevice{}, t.Devices...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.Name] = t
	return s.persistLocked()
}

// Get returns a copy of the named template.
func (s *TemplateStore) Get(name string) (Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[name]
	if !ok {
		return Template{}, notFound("effect-chain template", name)
	}
	t.Devices = append([]TemplateDevice{}, t.Devices...)
	return t, nil
}

// Delete removes a template and writes the file through.
func (s *TemplateStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[name]; !ok {
		return notFound("effect-chain template", name)
	}
	delete(s.templates, name)
	return s.persistLocked()
}

// Names lists stored template names, sorted.
func (s *TemplateStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.templates))
	for name := range s.templates {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
