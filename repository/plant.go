package repository

import (
	"context"

	"github.com/fastygo/plantcare/domain"
)

// PlantStore persists the full plant collection as one snapshot.
type PlantStore interface {
	Load(ctx context.Context) ([]domain.Plant, error)
	Save(ctx context.Context, plants []domain.Plant) error
}
