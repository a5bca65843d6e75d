package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trailpaw-ai/companion-platform/internal/model"
)

// personasFile is the on-disk shape of the persona catalog.
type personasFile struct {
	Personas []model.Persona `yaml:"personas"`
}

// LoadPersonas reads the persona catalog from a YAML file. The catalog is
// the admin path for persona configuration; it is seeded into the durable
// store at startup and read-only afterwards.
func LoadPersonas(path string) ([]model.Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read personas file: %w", err)
	}

	var f personasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse personas file: %w", err)
	}

	for i := range f.Personas {
		p := &f.Personas[i]
		if p.ID == "" {
			return nil, fmt.Errorf("persona %d: missing id", i)
		}
		if p.SystemPrompt == "" {
			return nil, fmt.Errorf("persona %q: missing system_prompt", p.ID)
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = 4096
		}
		if p.Temperature == 0 {
			p.Temperature = 0.7
		}
		if p.TopP == 0 {
			p.TopP = 1.0
		}
	}

	return f.Personas, nil
}
