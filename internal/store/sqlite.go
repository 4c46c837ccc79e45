package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/cv-assistant/internal/cv"
)

// SQLite stores each CV as a JSON document in a single table.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens or creates the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite store: mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: init schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS cvs (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		owner_id      TEXT NOT NULL,
		title         TEXT NOT NULL,
		last_modified TEXT NOT NULL,
		document      TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS cvs_owner ON cvs (owner_id)`)
	return err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// List returns the owner's CVs in creation order.
func (s *SQLite) List(ctx context.Context, ownerID string) ([]cv.CV, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document FROM cvs WHERE owner_id = ? ORDER BY seq`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cvs: %w", err)
	}
	defer rows.Close()

	out := make([]cv.CV, 0)
	for rows.Next() {
		var document string
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("list cvs: scan: %w", err)
		}

		var doc cv.CV
		if err := json.Unmarshal([]byte(document), &doc); err != nil {
			return nil, fmt.Errorf("list cvs: decode document: %w", err)
		}
		out = append(out, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cvs: %w", err)
	}

	return out, nil
}

func (s *SQLite) Create(ctx context.Context, ownerID string, doc cv.CV) (cv.CV, error) {
	doc = doc.Clone()
	doc.ID = cv.NewID()

	document, err := json.Marshal(doc)
	if err != nil {
		return cv.CV{}, fmt.Errorf("create cv: encode document: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cvs (id, owner_id, title, last_modified, document) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, ownerID, doc.Title, formatTime(doc.LastModified), string(document),
	)
	if err != nil {
		return cv.CV{}, fmt.Errorf("create cv: insert: %w", err)
	}

	return doc, nil
}

func (s *SQLite) Update(ctx context.Context, id string, doc cv.CV) error {
	doc.ID = id

	document, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("update %s: encode document: %w", id, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE cvs SET title = ?, last_modified = ?, document = ? WHERE id = ?`,
		doc.Title, formatTime(doc.LastModified), string(document), id,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}

	return expectOneRow(res, "update", id)
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cvs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	return expectOneRow(res, "delete", id)
}

func expectOneRow(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
