package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/contentmill/internal/models"
	"github.com/raphaelgruber/contentmill/internal/quality"
)

// LoadBrandRules reads brand rules from a YAML file.
// Keys missing from the file keep their built-in defaults; an empty path returns the defaults.
func LoadBrandRules(path string) (quality.BrandRules, error) {
	rules := quality.DefaultBrandRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read brand rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse brand rules %s: %w", path, err)
	}
	return rules, nil
}

type templatesFile struct {
	Templates []models.ContentTemplate `yaml:"templates"`
}

// LoadTemplates reads content templates from a YAML file.
// An empty path returns the built-in templates.
func LoadTemplates(path string) ([]models.ContentTemplate, error) {
	if path == "" {
		return models.DefaultTemplates(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}

	var f templatesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse templates %s: %w", path, err)
	}
	for i, t := range f.Templates {
		if t.ID == "" || t.Name == "" {
			return nil, fmt.Errorf("template %d in %s: id and name are required", i, path)
		}
	}
	return f.Templates, nil
}
