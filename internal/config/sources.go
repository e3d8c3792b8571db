package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mirceapaciu/econ-assistant/internal/core/domain"
)

// LoadSources reads the YAML manifest declaring the corpus: which sources
// exist, which files each one contributes, and which storage targets every
// file feeds. Declared order is processing order.
func LoadSources(path string) ([]domain.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources manifest: %w", err)
	}

	var manifest struct {
		Sources []domain.Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse sources manifest: %w", err)
	}
	if len(manifest.Sources) == 0 {
		return nil, errors.New("sources manifest declares no sources")
	}

	seen := make(map[string]bool)
	for _, source := range manifest.Sources {
		if source.ID == "" {
			return nil, fmt.Errorf("source %q has no id", source.Name)
		}
		if seen[source.ID] {
			return nil, fmt.Errorf("duplicate source id %q", source.ID)
		}
		seen[source.ID] = true

		if len(source.Files) == 0 {
			return nil, fmt.Errorf("source %q declares no files", source.ID)
		}
		for _, file := range source.Files {
			if file.Name == "" {
				return nil, fmt.Errorf("source %q has a file without a name", source.ID)
			}
			switch file.Type {
			case domain.FileTypePDF, domain.FileTypeText, domain.FileTypeCSV, domain.FileTypeXLSX:
			default:
				return nil, fmt.Errorf("file %q has unknown type %q", file.Name, file.Type)
			}
			if len(file.Targets) == 0 {
				return nil, fmt.Errorf("file %q declares no targets", file.Name)
			}
			for _, target := range file.Targets {
				switch target {
				case domain.TargetVector, domain.TargetTabular:
				default:
					return nil, fmt.Errorf("file %q has unknown target %q", file.Name, target)
				}
			}
		}
	}
	return manifest.Sources, nil
}
