// Package catalog keeps a SQLite record of every instance file written by the
// generator, so a benchmark set can be traced back to its seed and stream.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // SQLite driver

	"mmdp_instances/src/mmdp"
)

// Entry is one catalogued file.
type Entry struct {
	ID          int64     `json:"id"`
	Variant     string    `json:"variant"`
	N           int       `json:"n"`
	Trial       int       `json:"trial"`
	Seed        uint64    `json:"seed"`
	Stream      string    `json:"stream"`
	Format      string    `json:"format"`
	Path        string    `json:"path"`
	WeightsPath string    `json:"weights_path,omitempty"`
	Lines       int       `json:"lines"`
	Bytes       int64     `json:"bytes"`
	SHA256      string    `json:"sha256"`
	Appended    bool      `json:"appended"`
	CreatedAt   time.Time `json:"created_at"`
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Variant string
	N       int
}

// Catalog implements mmdp.Recorder on top of SQLite.
type Catalog struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (and creates if needed) the catalog database at path. The
// special path ":memory:" gives a private in-memory catalog.
func Open(ctx context.Context, path string) (*Catalog, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record stores rec. It is called by the generator in trial order.
func (c *Catalog) Record(ctx context.Context, rec mmdp.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var weightsPath sql.NullString
	if rec.WeightsPath != "" {
		weightsPath = sql.NullString{String: rec.WeightsPath, Valid: true}
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO instances (variant, n, trial, seed, stream, format, path, weights_path,
			lines, bytes, sha256, appended, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Variant.String(), rec.N, rec.Trial, int64(rec.Seed), string(rec.Stream), string(rec.Format),
		rec.Path, weightsPath, rec.Lines, rec.Bytes, rec.SHA256, rec.Mode == mmdp.Append,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", rec.Path, err)
	}
	log.Debug().Str("layer", "CATALOG").Str("path", rec.Path).Int("trial", rec.Trial).Msg("Recorded")
	return nil
}

// List returns the matching entries ordered by variant, size and trial, most
// recent first within a trial.
func (c *Catalog) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Variant != "" {
		where = append(where, "variant = ?")
		args = append(args, f.Variant)
	}
	if f.N > 0 {
		where = append(where, "n = ?")
		args = append(args, f.N)
	}
	query := `SELECT id, variant, n, trial, seed, stream, format, path, weights_path,
		lines, bytes, sha256, appended, created_at FROM instances`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY variant, n, trial, id DESC"

	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			seed        int64
			weightsPath sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&e.ID, &e.Variant, &e.N, &e.Trial, &seed, &e.Stream, &e.Format, &e.Path,
			&weightsPath, &e.Lines, &e.Bytes, &e.SHA256, &e.Appended, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		e.Seed = uint64(seed)
		e.WeightsPath = weightsPath.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
