package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// GetGuide loads a guide document. A missing guide reads as (nil, nil).
func (s *Store) GetGuide(ctx context.Context, id string) (*guide.Guide, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM guides WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select guide %s: %w", id, err)
	}

	var g guide.Guide
	if err := json.Unmarshal([]byte(doc), &g); err != nil {
		return nil, fmt.Errorf("decode guide %s: %w", id, err)
	}
	return &g, nil
}

// PutGuide writes the whole guide document, replacing any previous version.
// Last write wins; there is no version check.
func (s *Store) PutGuide(ctx context.Context, g *guide.Guide) error {
	doc, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode guide %s: %w", g.ID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO guides (id, name, date_created, doc) VALUES (?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET name = excluded.name, doc = excluded.doc`,
		g.ID, g.Name, g.DateCreated.UTC().Format(time.RFC3339Nano), string(doc),
	)
	if err != nil {
		return fmt.Errorf("upsert guide %s: %w", g.ID, err)
	}
	return nil
}

// DeleteGuide removes the guide record. Deleting a missing guide is a
// no-op. Blob cleanup is a separate call so callers control ordering.
func (s *Store) DeleteGuide(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM guides WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete guide %s: %w", id, err)
	}
	return nil
}

// ListGuides returns all guides, newest first.
func (s *Store) ListGuides(ctx context.Context) ([]*guide.Guide, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc FROM guides ORDER BY date_created DESC`)
	if err != nil {
		return nil, fmt.Errorf("list guides: %w", err)
	}
	defer rows.Close()

	var guides []*guide.Guide
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan guide row: %w", err)
		}
		var g guide.Guide
		if err := json.Unmarshal([]byte(doc), &g); err != nil {
			return nil, fmt.Errorf("decode guide row: %w", err)
		}
		guides = append(guides, &g)
	}
	return guides, rows.Err()
}
