package search

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/KoSuyeon/SKAI-project/internal/datatypes"
	"github.com/KoSuyeon/SKAI-project/internal/normerrors"
)

// placeholder marks where the trimmed input goes in a template.
const placeholder = "%s"

// Templates maps a category to its query enrichment template. Categories
// without a template are embedded as the bare trimmed input.
type Templates map[datatypes.Category]string

// DefaultTemplates returns the built-in enrichment: only phenomenon codes are
// wrapped in a sentence, the other categories are embedded verbatim.
func DefaultTemplates() Templates {
	return Templates{
		datatypes.PhenomenonCode: "설비에 '%s' 현상이 발생했습니다.",
	}
}

// Apply renders the query text for input in category.
func (t Templates) Apply(category datatypes.Category, input string) string {
	tmpl, ok := t[category]
	if !ok || tmpl == "" {
		return input
	}

	return strings.Replace(tmpl, placeholder, input, 1)
}

// templateFile is the YAML layout:
//
//	templates:
//	  phenomenon_code: "phenomenon '%s' occurred on the equipment"
//	  location: ""
type templateFile struct {
	Templates map[string]string `yaml:"templates"`
}

// LoadTemplates reads templates from a YAML file. Keys may be category
// identifiers or Korean sheet labels. Listed categories replace the defaults;
// an empty value disables enrichment for that category.
func LoadTemplates(path string) (Templates, error) {
	out := DefaultTemplates()
	if path == "" {
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, normerrors.NewConfigError("QUERY_TEMPLATES_FILE", "query template file not found: "+path).WithCause(err)
		}

		return nil, fmt.Errorf("read query templates: %w", err)
	}

	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, normerrors.NewConfigError("QUERY_TEMPLATES_FILE", fmt.Sprintf("parse query templates: %v", err)).WithCause(err)
	}

	for key, tmpl := range f.Templates {
		c, err := datatypes.ParseCategory(key)
		if err != nil {
			return nil, normerrors.NewConfigError("QUERY_TEMPLATES_FILE", fmt.Sprintf("query templates: %v", err))
		}

		if tmpl != "" && strings.Count(tmpl, placeholder) != 1 {
			return nil, normerrors.NewConfigError("QUERY_TEMPLATES_FILE",
				fmt.Sprintf("query template for %s must contain exactly one %s", c, placeholder))
		}

		out[c] = tmpl
	}

	return out, nil
}
