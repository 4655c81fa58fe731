// Package store keeps the durable keyed collection of stories as newline-delimited JSON.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"time"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/scoring"
)

// ErrMalformedRecord is returned by Load when a persisted line cannot be decoded.
var ErrMalformedRecord = errors.New("malformed store record")

const maxLineBytes = 1 << 20

// Store is the in-memory view of the item file for the duration of one tick.
// It is not safe for concurrent use.
type Store struct {
	path   string
	items  map[string]domain.Story
	order  []string
	logger *slog.Logger
}

// New binds a store to its backing file without reading it.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, items: map[string]domain.Story{}, logger: logger}
}

// Path is the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory contents with the backing file. A missing file is an
// empty store; blank lines are skipped; any undecodable line fails the load.
func (s *Store) Load() error {
	s.items = map[string]domain.Story{}
	s.order = nil

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("state file does not exist; starting fresh", "path", s.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open state %s: %w", s.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var story domain.Story
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&story); err != nil {
			return fmt.Errorf("%w: %s line %d: %v", ErrMalformedRecord, s.path, lineNo, err)
		}
		if story.ID == "" {
			return fmt.Errorf("%w: %s line %d: missing id", ErrMalformedRecord, s.path, lineNo)
		}
		s.Upsert(story)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read state %s: %w", s.path, err)
	}

	s.logger.Info("loaded items from state", "count", len(s.items), "path", s.path)
	return nil
}

// Save atomically replaces the backing file with the current contents.
func (s *Store) Save() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, id := range s.order {
		if err := enc.Encode(s.items[id]); err != nil {
			return fmt.Errorf("encode story %s: %w", id, err)
		}
	}

	if err := WriteFileAtomic(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	s.logger.Info("persisted items", "count", len(s.items), "path", s.path)
	return nil
}

// Upsert inserts or replaces a story by id.
func (s *Store) Upsert(story domain.Story) {
	if _, ok := s.items[story.ID]; !ok {
		s.order = append(s.order, story.ID)
	}
	s.items[story.ID] = story
}

// Get returns the story with the given id.
func (s *Store) Get(id string) (domain.Story, bool) {
	story, ok := s.items[id]
	return story, ok
}

// Remove deletes a story; removing an absent id is a no-op.
func (s *Store) Remove(id string) {
	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Values returns a snapshot of all stories.
func (s *Store) Values() []domain.Story {
	out := make([]domain.Story, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

// Len is the number of stories held.
func (s *Store) Len() int {
	return len(s.items)
}

// Groups partitions stories by status.
type Groups map[domain.Status][]domain.Story

// GroupByStatus buckets stories by status, each bucket sorted by published_utc
// descending. The three active tiers are always present; other statuses get a
// bucket only when stories carry them. Unparseable timestamps sort last.
func GroupByStatus(stories []domain.Story) Groups {
	groups := Groups{}
	for _, tier := range domain.Tiers {
		groups[tier] = []domain.Story{}
	}
	for _, story := range stories {
		groups[story.Status] = append(groups[story.Status], story)
	}
	for _, bucket := range groups {
		keys := make([]publishedKey, len(bucket))
		for i, story := range bucket {
			keys[i] = newPublishedKey(story.PublishedUTC)
		}
		sort.Stable(byPublished{stories: bucket, keys: keys})
	}
	return groups
}

type publishedKey struct {
	at time.Time
	ok bool
}

func newPublishedKey(value string) publishedKey {
	at, err := scoring.ParseStored(value)
	return publishedKey{at: at, ok: err == nil}
}

// byPublished sorts stories newest first, keeping keys aligned with stories.
type byPublished struct {
	stories []domain.Story
	keys    []publishedKey
}

func (b byPublished) Len() int { return len(b.stories) }

func (b byPublished) Swap(i, j int) {
	b.stories[i], b.stories[j] = b.stories[j], b.stories[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

func (b byPublished) Less(i, j int) bool {
	ki, kj := b.keys[i], b.keys[j]
	if ki.ok != kj.ok {
		return ki.ok
	}
	return ki.at.After(kj.at)
}
