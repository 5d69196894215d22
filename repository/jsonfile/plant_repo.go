package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fastygo/plantcare/domain"
	"github.com/fastygo/plantcare/repository"
)

type plantRepository struct {
	path string
}

// NewPlantRepository returns a PlantStore backed by a single JSON document at path.
func NewPlantRepository(path string) repository.PlantStore {
	return &plantRepository{path: path}
}

// Load reads the collection. A missing file is a first run and yields no plants.
func (r *plantRepository) Load(ctx context.Context) ([]domain.Plant, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Plant{}, nil
		}
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}

	var plants []domain.Plant
	if err := json.Unmarshal(data, &plants); err != nil {
		return nil, fmt.Errorf("failed to parse plant data: %w", err)
	}

	for i := range plants {
		if plants[i].ImageFilenames == nil {
			plants[i].ImageFilenames = []string{}
		}
	}
	if plants == nil {
		plants = []domain.Plant{}
	}
	return plants, nil
}

// Save overwrites the file with the whole collection.
func (r *plantRepository) Save(ctx context.Context, plants []domain.Plant) error {
	if plants == nil {
		plants = []domain.Plant{}
	}
	data, err := json.MarshalIndent(plants, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize plant data: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create data file for writing: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write plant data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write plant data: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}
