// Package models is the external Model3D collaborator spec.md's §2
// declares out of scope: a key-value lookup by model id, mark-used,
// and list-unused, backed by SQLite. Grounded on the teacher's
// internal/storage/sqlite.go Open()/migrate() recipe (pure-Go
// modernc.org/sqlite driver, ~ expansion, MkdirAll, CREATE TABLE IF NOT
// EXISTS), adapted from score/match-history persistence to the single
// `models` table spec.md §6 names.
package models

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver
)

// Model3D is a previously uploaded 3D avatar asset, consumed
// at-most-once per server-process lifetime (spec.md §3).
type Model3D struct {
	ID         string
	FileName   string
	FilePath   string
	FileSize   int64
	MimeType   string
	UploadedAt time.Time
	IsUsed     bool
}

// ErrModelNotFound is returned by Lookup when id has no record.
var ErrModelNotFound = fmt.Errorf("model not found")

// ErrAlreadyUsed is returned by MarkUsed when id was already marked, or
// by the atomic UPDATE affecting zero rows.
var ErrAlreadyUsed = fmt.Errorf("model already used")

// Store is the SQLite-backed Model3D collaborator.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at dbPath, creating parent
// directories and running migrations as needed.
func Open(dbPath string) (*Store, error) {
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("models: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("models: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("models: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("models: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("models: migration failed: %w", err)
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS models (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			file_path TEXT NOT NULL,
			file_size INTEGER NOT NULL,
			mime_type TEXT NOT NULL,
			uploaded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			is_used INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_models_is_used ON models(is_used);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Register inserts a newly-uploaded model's metadata. Called by the
// (out-of-scope, contract-only) upload handler once the binary has been
// written to uploads/models/<id>.<ext>.
func (s *Store) Register(m Model3D) error {
	_, err := s.db.Exec(
		`INSERT INTO models (id, file_name, file_path, file_size, mime_type, uploaded_at, is_used)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		m.ID, m.FileName, m.FilePath, m.FileSize, m.MimeType, m.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("models: cannot register %s: %w", m.ID, err)
	}
	return nil
}

// Lookup returns the model record for id, or ErrModelNotFound.
func (s *Store) Lookup(id string) (Model3D, error) {
	var m Model3D
	var isUsed int
	err := s.db.QueryRow(
		`SELECT id, file_name, file_path, file_size, mime_type, uploaded_at, is_used
		 FROM models WHERE id = ?`,
		id,
	).Scan(&m.ID, &m.FileName, &m.FilePath, &m.FileSize, &m.MimeType, &m.UploadedAt, &isUsed)
	if err == sql.ErrNoRows {
		return Model3D{}, ErrModelNotFound
	}
	if err != nil {
		return Model3D{}, fmt.Errorf("models: cannot look up %s: %w", id, err)
	}
	m.IsUsed = isUsed != 0
	return m, nil
}

// MarkUsed atomically claims id. The UPDATE's WHERE clause is the
// serialization point spec.md §4.4 requires: if zero rows are affected
// — because id does not exist, or was already used by a concurrent
// claim — MarkUsed returns ErrAlreadyUsed (or ErrModelNotFound, checked
// first) and the caller must abort the Ready flow without mutating the
// Match.
func (s *Store) MarkUsed(id string) error {
	result, err := s.db.Exec(`UPDATE models SET is_used = 1 WHERE id = ? AND is_used = 0`, id)
	if err != nil {
		return fmt.Errorf("models: cannot mark %s used: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("models: cannot confirm mark-used for %s: %w", id, err)
	}
	if rows == 0 {
		if _, lookupErr := s.Lookup(id); lookupErr == ErrModelNotFound {
			return ErrModelNotFound
		}
		return ErrAlreadyUsed
	}
	return nil
}

// ListUnused returns every model not yet claimed, for GET /api/models.
func (s *Store) ListUnused() ([]Model3D, error) {
	rows, err := s.db.Query(
		`SELECT id, file_name, file_path, file_size, mime_type, uploaded_at, is_used
		 FROM models WHERE is_used = 0 ORDER BY uploaded_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("models: cannot list unused: %w", err)
	}
	defer rows.Close()

	var out []Model3D
	for rows.Next() {
		var m Model3D
		var isUsed int
		if err := rows.Scan(&m.ID, &m.FileName, &m.FilePath, &m.FileSize, &m.MimeType, &m.UploadedAt, &isUsed); err != nil {
			return nil, fmt.Errorf("models: cannot scan row: %w", err)
		}
		m.IsUsed = isUsed != 0
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("models: row iteration error: %w", err)
	}
	return out, nil
}
