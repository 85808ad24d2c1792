// Package seed loads starter templates from a YAML file into the template store.
package seed

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/maxischmaxi/code-preview-server/internal/models"
	"github.com/maxischmaxi/code-preview-server/internal/repositories"
)

type templateFile struct {
	Templates []templateEntry `yaml:"templates"`
}

type templateEntry struct {
	Title    string `yaml:"title"`
	Language string `yaml:"language"`
	Code     string `yaml:"code"`
	Solution string `yaml:"solution"`
}

// LoadTemplates parses a seed file of the form
//
//	templates:
//	  - title: Two Sum
//	    language: python
//	    code: |
//	      ...
func LoadTemplates(path string) ([]models.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	out := make([]models.Template, 0, len(file.Templates))
	for i, e := range file.Templates {
		if e.Title == "" || e.Language == "" {
			return nil, fmt.Errorf("seed file %s: template %d needs a title and a language", path, i)
		}
		out = append(out, models.Template{
			Title:    e.Title,
			Language: e.Language,
			Code:     e.Code,
			Solution: e.Solution,
		})
	}
	return out, nil
}

// SeedTemplates creates every template whose title is not in the store yet
// and returns how many were created.
func SeedTemplates(ctx context.Context, repo repositories.TemplateRepository, templates []models.Template, log *zap.Logger) (int, error) {
	existing, err := repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list templates: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[t.Title] = struct{}{}
	}

	created := 0
	for i := range templates {
		if _, ok := seen[templates[i].Title]; ok {
			continue
		}
		if _, err := repo.Create(ctx, &templates[i]); err != nil {
			return created, fmt.Errorf("create template %q: %w", templates[i].Title, err)
		}
		seen[templates[i].Title] = struct{}{}
		created++
	}
	log.Info("templates seeded", zap.Int("created", created), zap.Int("existing", len(existing)))
	return created, nil
}
