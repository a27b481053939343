package playground

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// Templates holds the starter programs of one language, keyed by kind
// (hello, function, input).
type Templates map[string]string

func loadTemplates(data []byte) (map[string]Templates, error) {
	var all map[string]Templates
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return all, nil
}

// TemplateLanguages lists the languages with starter programs
func (s *Service) TemplateLanguages() []string {
	out := make([]string, 0, len(s.templates))
	for lang := range s.templates {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Templates returns the starter programs for a language
func (s *Service) Templates(language string) (Templates, error) {
	t, ok := s.templates[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplatesNotFound, language)
	}

	out := make(Templates, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out, nil
}
