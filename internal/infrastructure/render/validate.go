package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"NewsCurator/internal/domain"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindInt
)

var requiredFields = []struct {
	name string
	kind fieldKind
}{
	{"id", kindString},
	{"url", kindString},
	{"title", kindString},
	{"source", kindString},
	{"published_utc", kindString},
	{"status", kindString},
	{"accuracy", kindNumber},
	{"corroborations", kindInt},
	{"meaning", kindString},
	{"impact", kindString},
	{"affected", kindString},
}

// Validate checks every document under root and returns one problem per line.
// A missing root is not an error.
func Validate(root string) ([]string, error) {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	var problems []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".md" || path == filepath.Join(root, indexFile) {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		problems = append(problems, ValidateDocument(path, raw)...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return problems, nil
}

// ValidateDocument checks a single story document.
func ValidateDocument(path string, raw []byte) []string {
	text := string(raw)
	if !strings.HasPrefix(text, "---\n") {
		return []string{path + ": missing YAML front matter"}
	}
	parts := strings.SplitN(text, "---\n", 3)
	if len(parts) < 3 {
		return []string{path + ": malformed YAML front matter"}
	}

	var data map[string]any
	if err := yaml.Unmarshal([]byte(parts[1]), &data); err != nil || data == nil {
		return []string{path + ": front matter must be a mapping"}
	}

	var problems []string
	for _, field := range requiredFields {
		value, ok := data[field.name]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: missing field %s", path, field.name))
			continue
		}
		if !hasKind(value, field.kind) {
			problems = append(problems, fmt.Sprintf("%s: field %s has type %T", path, field.name, value))
		}
	}
	if status, ok := data["status"].(string); ok && !domain.Status(status).Valid() {
		problems = append(problems, fmt.Sprintf("%s: status %s is invalid", path, status))
	}
	return problems
}

func hasKind(value any, kind fieldKind) bool {
	switch kind {
	case kindString:
		_, ok := value.(string)
		return ok
	case kindInt:
		_, ok := value.(int)
		return ok
	case kindNumber:
		switch value.(type) {
		case int, float64:
			return true
		}
	}
	return false
}
