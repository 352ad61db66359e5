package rules

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed overrides.yaml
var embeddedOverrides []byte

// Override pins a category for descriptions containing Phrase.
type Override struct {
	Phrase   string `yaml:"phrase"`
	Category string `yaml:"category"`
}

type overrideFile struct {
	Overrides []Override `yaml:"overrides"`
}

// ParseOverrides reads an override table from YAML. Order is preserved.
func ParseOverrides(data []byte) ([]Override, error) {
	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ParseOverrides: decoding yaml: %w", err)
	}
	out := make([]Override, 0, len(f.Overrides))
	for i, o := range f.Overrides {
		phrase := strings.ToLower(strings.Join(strings.Fields(o.Phrase), " "))
		category := strings.TrimSpace(o.Category)
		if phrase == "" || category == "" {
			return nil, fmt.Errorf("ParseOverrides: entry %d: phrase and category are required", i)
		}
		out = append(out, Override{Phrase: phrase, Category: category})
	}
	return out, nil
}

// DefaultOverrides returns the built-in table.
func DefaultOverrides() []Override {
	o, err := ParseOverrides(embeddedOverrides)
	if err != nil {
		panic(fmt.Sprintf("embedded overrides.yaml is invalid: %v", err))
	}
	return o
}

// LoadOverrides reads the table from path, or the built-in table when path
// is empty.
func LoadOverrides(path string) ([]Override, error) {
	if path == "" {
		return DefaultOverrides(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadOverrides: reading %q: %w", path, err)
	}
	return ParseOverrides(data)
}
