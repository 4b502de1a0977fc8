// Package guides implements guide mutations as whole-record
// read-modify-writes over the store.
package guides

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/sahilr2050/step-by-step-guide-generator/internal/guide"
)

// ErrNotFound is returned for mutations on a guide that does not exist.
var ErrNotFound = errors.New("guide not found")

// Store is the persistence the service needs. Missing guides read as
// (nil, nil).
type Store interface {
	GetGuide(ctx context.Context, id string) (*guide.Guide, error)
	PutGuide(ctx context.Context, g *guide.Guide) error
	DeleteGuide(ctx context.Context, id string) error
	ListGuides(ctx context.Context) ([]*guide.Guide, error)
	DeleteBlobsForGuide(ctx context.Context, guideID string) error
}

// Service mutates guides. Every write is last-write-wins on the whole
// record.
type Service struct {
	store  Store
	logger *log.Logger
}

// New creates a guide mutation service.
func New(store Store, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, logger: logger}
}

// Get loads one guide. A missing guide is ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*guide.Guide, error) {
	g, err := s.store.GetGuide(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// List returns all guides, newest first.
func (s *Service) List(ctx context.Context) ([]*guide.Guide, error) {
	return s.store.ListGuides(ctx)
}

// Create stores a fresh guide and returns it.
func (s *Service) Create(ctx context.Context, id, name string, tags []string) (*guide.Guide, error) {
	g := guide.New(id, name, tags)
	if err := s.store.PutGuide(ctx, g); err != nil {
		return nil, fmt.Errorf("create guide: %w", err)
	}
	return g, nil
}

// Rename sets the guide's display name.
func (s *Service) Rename(ctx context.Context, id, name string) error {
	return s.update(ctx, id, func(g *guide.Guide) error {
		g.Name = name
		return nil
	})
}

// SetTags replaces the guide's tag list.
func (s *Service) SetTags(ctx context.Context, id string, tags []string) error {
	return s.update(ctx, id, func(g *guide.Guide) error {
		g.Tags = tags
		return nil
	})
}

// SetDescription replaces the custom description of one step. An empty
// description falls back to the generated one at render time.
func (s *Service) SetDescription(ctx context.Context, id string, index int, description string) error {
	return s.update(ctx, id, func(g *guide.Guide) error {
		if index < 0 || index >= len(g.Steps) {
			return nil
		}
		g.Steps[index].CustomDescription = description
		return nil
	})
}

// DeleteStep removes one step from the guide. An out-of-range index is a
// no-op. Blobs keep their keys; later steps are not renumbered, so their
// screenshot refs stay valid.
func (s *Service) DeleteStep(ctx context.Context, id string, index int) error {
	return s.update(ctx, id, func(g *guide.Guide) error {
		if index < 0 || index >= len(g.Steps) {
			return nil
		}
		g.Steps = append(g.Steps[:index], g.Steps[index+1:]...)
		return nil
	})
}

// MoveStep moves the step at from to position to, shifting the steps in
// between. Out-of-range indices are a no-op.
func (s *Service) MoveStep(ctx context.Context, id string, from, to int) error {
	return s.update(ctx, id, func(g *guide.Guide) error {
		n := len(g.Steps)
		if from < 0 || from >= n || to < 0 || to >= n || from == to {
			return nil
		}
		step := g.Steps[from]
		g.Steps = append(g.Steps[:from], g.Steps[from+1:]...)
		g.Steps = append(g.Steps[:to], append([]guide.Step{step}, g.Steps[to:]...)...)
		return nil
	})
}

// Delete removes the guide record and every blob in its namespace.
// Deleting a missing guide is a no-op.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteGuide(ctx, id); err != nil {
		return fmt.Errorf("delete guide %s: %w", id, err)
	}
	if err := s.store.DeleteBlobsForGuide(ctx, id); err != nil {
		return fmt.Errorf("delete blobs for guide %s: %w", id, err)
	}
	s.logger.Info("guide deleted", "guide", id)
	return nil
}

func (s *Service) update(ctx context.Context, id string, mutate func(*guide.Guide) error) error {
	g, err := s.store.GetGuide(ctx, id)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrNotFound
	}
	if err := mutate(g); err != nil {
		return err
	}
	return s.store.PutGuide(ctx, g)
}
