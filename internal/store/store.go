// Package store persists CVs per owner.
package store

import (
	"context"
	"errors"

	"github.com/spigell/cv-assistant/internal/cv"
)

// ErrNotFound is returned when no CV has the requested id.
var ErrNotFound = errors.New("cv not found")

// Store is the persistence collaborator of the editor. Implementations
// assign the CV id on Create; the id never changes afterwards.
type Store interface {
	List(ctx context.Context, ownerID string) ([]cv.CV, error)
	Create(ctx context.Context, ownerID string, doc cv.CV) (cv.CV, error)
	Update(ctx context.Context, id string, doc cv.CV) error
	Delete(ctx context.Context, id string) error
}
