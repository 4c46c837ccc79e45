package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/cv-assistant/internal/cv"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Postgres keeps CVs as jsonb documents, one row per CV.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects to databaseURL and applies the embedded schema.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("postgres store: database url is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse database url: %w", err)
	}
	config.MaxConns = 4
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := p.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// List returns the owner's CVs in creation order.
func (p *Postgres) List(ctx context.Context, ownerID string) ([]cv.CV, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT document FROM cvs WHERE owner_id = $1 ORDER BY seq`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list cvs: %w", err)
	}
	defer rows.Close()

	out := make([]cv.CV, 0)
	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("list cvs: scan: %w", err)
		}

		var doc cv.CV
		if err := json.Unmarshal(document, &doc); err != nil {
			return nil, fmt.Errorf("list cvs: decode document: %w", err)
		}
		out = append(out, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cvs: %w", err)
	}

	return out, nil
}

func (p *Postgres) Create(ctx context.Context, ownerID string, doc cv.CV) (cv.CV, error) {
	doc = doc.Clone()
	doc.ID = cv.NewID()

	document, err := json.Marshal(doc)
	if err != nil {
		return cv.CV{}, fmt.Errorf("create cv: encode document: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO cvs (id, owner_id, title, last_modified, document) VALUES ($1, $2, $3, $4, $5)`,
		doc.ID, ownerID, doc.Title, doc.LastModified.UTC(), document,
	)
	if err != nil {
		return cv.CV{}, fmt.Errorf("create cv: insert: %w", err)
	}

	return doc, nil
}

func (p *Postgres) Update(ctx context.Context, id string, doc cv.CV) error {
	doc.ID = id

	document, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("update %s: encode document: %w", id, err)
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE cvs SET title = $1, last_modified = $2, document = $3 WHERE id = $4`,
		doc.Title, doc.LastModified.UTC(), document, id,
	)
	if err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}

	return expectOneTag(tag, "update", id)
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM cvs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	return expectOneTag(tag, "delete", id)
}

func expectOneTag(tag pgconn.CommandTag, op, id string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}
