// Package store archives processed document records in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("store: record not found")

// Run is one pipeline instance. Records saved by the same pipeline share
// its run id.
type Run struct {
	ID        string `json:"id"`
	StartedAt string `json:"started_at"`
	Documents int    `json:"documents"`
}

// Entity is a row in the entities table.
type Entity struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	Type string `json:"type"`
}

// Relation is a row in the relations table.
type Relation struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	Relation   string `json:"relation"`
	SourceType string `json:"source_type"`
	TargetType string `json:"target_type"`
	Context    string `json:"context"`
}

// Record is an archived document result. Payload holds the record exactly
// as it was written to its JSON file.
type Record struct {
	RunID         string     `json:"run_id"`
	Document      string     `json:"document"`
	Path          string     `json:"path"`
	Error         string     `json:"error,omitempty"`
	Category      string     `json:"category,omitempty"`
	Subprocess    string     `json:"subprocess,omitempty"`
	ProcessNumber *int       `json:"process_number,omitempty"`
	Confidence    float64    `json:"confidence"`
	TextLength    int        `json:"text_length"`
	Entities      []Entity   `json:"entities"`
	Relations     []Relation `json:"relations"`
	Payload       []byte     `json:"-"`
	CreatedAt     string     `json:"created_at"`
}

// Store wraps the SQLite archive.
type Store struct {
	db *sql.DB
}

// NewRunID returns a new lexically sortable run id.
func NewRunID() string {
	return ulid.Make().String()
}

// New opens (or creates) a SQLite database at the given path and applies
// the schema and pending migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SaveRecord archives rec under runID. Saving the same document twice in a
// run replaces the earlier record. Returns the document row id.
func (s *Store) SaveRecord(ctx context.Context, runID, path string, rec Record) (int64, error) {
	var docID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO runs (id) VALUES (?)", runID); err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM documents WHERE run_id = ? AND document = ?", runID, rec.Document); err != nil {
			return fmt.Errorf("replacing document: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents (run_id, document, path, error, category, subprocess,
				process_number, confidence, text_length, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, rec.Document, path, nullString(rec.Error), nullString(rec.Category),
			nullString(rec.Subprocess), rec.ProcessNumber, rec.Confidence, rec.TextLength, string(rec.Payload))
		if err != nil {
			return fmt.Errorf("inserting document: %w", err)
		}
		if docID, err = res.LastInsertId(); err != nil {
			return err
		}

		for _, e := range rec.Entities {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO entities (document_id, entity_id, text, type) VALUES (?, ?, ?, ?)",
				docID, e.ID, e.Text, e.Type); err != nil {
				return fmt.Errorf("inserting entity %d: %w", e.ID, err)
			}
		}
		for _, r := range rec.Relations {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO relations (document_id, source, target, relation, source_type, target_type, context)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, docID, r.Source, r.Target, r.Relation, r.SourceType, r.TargetType, r.Context); err != nil {
				return fmt.Errorf("inserting relation: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return docID, nil
}

// GetRecord loads the record of one document in a run.
func (s *Store) GetRecord(ctx context.Context, runID, document string) (*Record, error) {
	rec := &Record{RunID: runID, Document: document}
	var (
		docID             int64
		errText, cat, sub sql.NullString
		number            sql.NullInt64
		payload           string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, path, error, category, subprocess, process_number, confidence,
			text_length, payload, created_at
		FROM documents WHERE run_id = ? AND document = ?
	`, runID, document).Scan(&docID, &rec.Path, &errText, &cat, &sub, &number,
		&rec.Confidence, &rec.TextLength, &payload, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s in run %s", ErrNotFound, document, runID)
	}
	if err != nil {
		return nil, err
	}
	rec.Error, rec.Category, rec.Subprocess = errText.String, cat.String, sub.String
	if number.Valid {
		n := int(number.Int64)
		rec.ProcessNumber = &n
	}
	rec.Payload = []byte(payload)

	if rec.Entities, err = s.entities(ctx, docID); err != nil {
		return nil, err
	}
	if rec.Relations, err = s.relations(ctx, docID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) entities(ctx context.Context, docID int64) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT entity_id, text, type FROM entities WHERE document_id = ? ORDER BY entity_id", docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entity{}
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Text, &e.Type); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) relations(ctx context.Context, docID int64) ([]Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source, target, relation, source_type, target_type, context
		FROM relations WHERE document_id = ? ORDER BY id
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Relation{}
	for rows.Next() {
		var r Relation
		var st, tt, c sql.NullString
		if err := rows.Scan(&r.Source, &r.Target, &r.Relation, &st, &tt, &c); err != nil {
			return nil, err
		}
		r.SourceType, r.TargetType, r.Context = st.String, tt.String, c.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRuns returns all runs, newest first, with their document counts.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, COUNT(d.id)
		FROM runs r LEFT JOIN documents d ON d.run_id = r.id
		GROUP BY r.id
		ORDER BY r.id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.Documents); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RelationCounts tallies relation tags across all archived documents.
func (s *Store) RelationCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT relation, COUNT(*) FROM relations GROUP BY relation")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tag string
		var n int
		if err := rows.Scan(&tag, &n); err != nil {
			return nil, err
		}
		counts[tag] = n
	}
	return counts, rows.Err()
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
