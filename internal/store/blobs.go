package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// PutBlob stores a binary payload under its key. The guide namespace is
// recovered from the key so the guide's blobs can be range-deleted later.
func (s *Store) PutBlob(ctx context.Context, key guide.BlobRef, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (key, guide_id, data) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET data = excluded.data`,
		string(key), key.GuideID(), data,
	)
	if err != nil {
		return fmt.Errorf("put blob %s: %w", key, err)
	}
	return nil
}

// GetBlob loads a payload. A missing key reads as (nil, nil).
func (s *Store) GetBlob(ctx context.Context, key guide.BlobRef) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE key = ?`, string(key)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", key, err)
	}
	return data, nil
}

// DeleteBlob removes one payload. Missing keys are a no-op.
func (s *Store) DeleteBlob(ctx context.Context, key guide.BlobRef) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, string(key)); err != nil {
		return fmt.Errorf("delete blob %s: %w", key, err)
	}
	return nil
}

// DeleteBlobsForGuide removes every payload in the guide's namespace.
func (s *Store) DeleteBlobsForGuide(ctx context.Context, guideID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE guide_id = ?`, guideID); err != nil {
		return fmt.Errorf("delete blobs for guide %s: %w", guideID, err)
	}
	return nil
}
