package scoring

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type domainFile struct {
	Default *float64           `yaml:"default"`
	Weights map[string]float64 `yaml:"weights"`
}

// LoadDomainTable reads a YAML trust table of the form
//
//	default: 0.5
//	weights:
//	  openai.com: 1.0
//
// A missing file yields the all-default table and no error.
func LoadDomainTable(path string) (DomainTable, error) {
	table := NewDefaultDomainTable()
	if path == "" {
		return table, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return table, nil
	}
	if err != nil {
		return table, fmt.Errorf("read domain weights %s: %w", path, err)
	}

	return ParseDomainTable(raw)
}

// ParseDomainTable decodes a YAML trust table; domains are lower-cased.
func ParseDomainTable(raw []byte) (DomainTable, error) {
	table := NewDefaultDomainTable()

	var file domainFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return table, fmt.Errorf("parse domain weights: %w", err)
	}
	if file.Default != nil {
		table.Default = *file.Default
	}
	for domain, weight := range file.Weights {
		table.Weights[strings.ToLower(domain)] = weight
	}
	return table, nil
}
