// Package journal persists lifecycle transitions in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"NewsCurator/internal/domain"
	"NewsCurator/internal/ports"
)

var schema = []string{`CREATE TABLE IF NOT EXISTS transitions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	story_id    TEXT NOT NULL,
	kind        TEXT NOT NULL,
	from_status TEXT NOT NULL,
	to_status   TEXT NOT NULL,
	value_score REAL NOT NULL,
	at          TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS transitions_story ON transitions (story_id)`,
}

var columns = []string{"run_id", "story_id", "kind", "from_status", "to_status", "value_score", "at"}

// SQLiteJournal appends transitions to a local database file.
type SQLiteJournal struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.Journal = (*SQLiteJournal)(nil)

// Open creates the database file and schema when missing.
func Open(ctx context.Context, path string) (*SQLiteJournal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLiteJournal{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close releases the database handle.
func (j *SQLiteJournal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record inserts the batch in a single statement.
func (j *SQLiteJournal) Record(ctx context.Context, transitions []domain.Transition) error {
	if len(transitions) == 0 {
		return nil
	}

	insert := j.builder.Insert("transitions").Columns(columns...)
	for _, t := range transitions {
		insert = insert.Values(
			t.RunID,
			t.StoryID,
			string(t.Kind),
			string(t.From),
			string(t.To),
			t.ValueScore,
			t.At.UTC().Format(time.RFC3339Nano),
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert transitions: %w", err)
	}
	return nil
}

// History returns the transitions of one story, oldest first.
func (j *SQLiteJournal) History(ctx context.Context, storyID string) ([]domain.Transition, error) {
	query, args, err := j.builder.
		Select(columns...).
		From("transitions").
		Where(sq.Eq{"story_id": storyID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []domain.Transition
	for rows.Next() {
		var (
			t              domain.Transition
			kind, from, to string
			at             string
		)
		if err := rows.Scan(&t.RunID, &t.StoryID, &kind, &from, &to, &t.ValueScore, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.Kind = domain.TransitionKind(kind)
		t.From = domain.Status(from)
		t.To = domain.Status(to)
		if t.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse transition time %q: %w", at, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// Nop discards transitions.
type Nop struct{}

var _ ports.Journal = Nop{}

// Record does nothing.
func (Nop) Record(context.Context, []domain.Transition) error { return nil }
