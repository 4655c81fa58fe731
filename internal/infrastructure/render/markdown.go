// Package render mirrors the story store into a Markdown document tree.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
	"NewsCurator/internal/store"
)

const indexFile = "index.md"

// Buckets are the folders managed under the output root, in index order.
var Buckets = []domain.Status{
	domain.StatusFresh,
	domain.StatusElevated,
	domain.StatusArchival,
	domain.StatusPermanentlyArchived,
}

var bucketTitles = map[domain.Status]string{
	domain.StatusFresh:               "Fresh Highlights",
	domain.StatusElevated:            "Elevated Spotlight",
	domain.StatusArchival:            "Archive",
	domain.StatusPermanentlyArchived: "Permanent Archive",
}

type frontMatter struct {
	ID             string  `yaml:"id"`
	URL            string  `yaml:"url"`
	Title          string  `yaml:"title"`
	Source         string  `yaml:"source"`
	PublishedUTC   string  `yaml:"published_utc"`
	Status         string  `yaml:"status"`
	Accuracy       float64 `yaml:"accuracy"`
	Corroborations int     `yaml:"corroborations"`
	Meaning        string  `yaml:"meaning"`
	Impact         string  `yaml:"impact"`
	Affected       string  `yaml:"affected"`
	HandleFresh    string  `yaml:"handle_fresh"`
	HandleElevated string  `yaml:"handle_elevated"`
	HandleArchival string  `yaml:"handle_archival"`
	ValueScore     float64 `yaml:"value_score"`
}

// Markdown writes <root>/<status>/<id>.md per story plus <root>/index.md.
type Markdown struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.Renderer = (*Markdown)(nil)

// NewMarkdown creates a renderer rooted at dir.
func NewMarkdown(dir string, logger *slog.Logger) *Markdown {
	if logger == nil {
		logger = slog.Default()
	}
	return &Markdown{root: dir, logger: logger, now: time.Now}
}

// Render rewrites every managed bucket and removes files of stories no longer in it.
func (m *Markdown) Render(ctx context.Context, stories []domain.Story) error {
	groups := store.GroupByStatus(stories)

	for _, status := range Buckets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.syncBucket(status, groups[status]); err != nil {
			return err
		}
	}

	if err := store.WriteFileAtomic(filepath.Join(m.root, indexFile), renderIndex(groups, m.now())); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	m.logger.Info("rendered document tree", "root", m.root, "stories", len(stories))
	return nil
}

func (m *Markdown) syncBucket(status domain.Status, bucket []domain.Story) error {
	folder := filepath.Join(m.root, string(status))
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", folder, err)
	}

	keep := make(map[string]struct{}, len(bucket))
	for _, story := range bucket {
		doc, err := renderStory(story)
		if err != nil {
			return err
		}
		name := story.ID + ".md"
		if err := store.WriteFileAtomic(filepath.Join(folder, name), doc); err != nil {
			return fmt.Errorf("write story %s: %w", story.ID, err)
		}
		keep[name] = struct{}{}
	}

	existing, err := filepath.Glob(filepath.Join(folder, "*.md"))
	if err != nil {
		return fmt.Errorf("list %s: %w", folder, err)
	}
	for _, path := range existing {
		if _, ok := keep[filepath.Base(path)]; ok {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale %s: %w", path, err)
		}
		m.logger.Debug("removed stale document", "path", path)
	}
	return nil
}

func renderStory(story domain.Story) ([]byte, error) {
	header, err := yaml.Marshal(frontMatter{
		ID:             story.ID,
		URL:            story.URL,
		Title:          story.Title,
		Source:         story.Source,
		PublishedUTC:   story.PublishedUTC,
		Status:         string(story.Status),
		Accuracy:       story.Accuracy,
		Corroborations: story.Corroborations,
		Meaning:        story.Meaning,
		Impact:         story.Impact,
		Affected:       story.Affected,
		HandleFresh:    story.HandleFresh,
		HandleElevated: story.HandleElevated,
		HandleArchival: story.HandleArchival,
		ValueScore:     story.ValueScore,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal front matter %s: %w", story.ID, err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n")
	fmt.Fprintf(&buf, "## %s\n\n- Source: %s\n- Accuracy: %g\n\n%s\n", story.Title, story.Source, story.Accuracy, story.Meaning)
	return buf.Bytes(), nil
}

func renderIndex(groups store.Groups, now time.Time) []byte {
	lines := []string{"# AI News Digest", "", fmt.Sprintf("_Updated %s_", now.UTC().Format(time.RFC3339)), ""}
	for _, status := range Buckets {
		bucket := groups[status]
		if status == domain.StatusPermanentlyArchived && len(bucket) == 0 {
			continue
		}
		lines = append(lines, "## "+bucketTitles[status], "")
		for _, story := range bucket {
			lines = append(lines, fmt.Sprintf("- [%s](./%s/%s.md) (%s, accuracy %g)",
				story.Title, status, story.ID, story.Source, story.Accuracy))
		}
		lines = append(lines, "")
	}
	return []byte(strings.TrimSpace(strings.Join(lines, "\n")) + "\n")
}
