package imagestore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const chunkSize = 32 * 1024

// Store keeps uploaded plant images under root/<plantID>/<filename>.
type Store struct {
	root string
}

// Open ensures the uploads root exists.
func Open(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) Root() string {
	return s.root
}

// PlantDir is the directory holding one plant's images.
func (s *Store) PlantDir(plantID string) string {
	return filepath.Join(s.root, plantID)
}

// EnsurePlantDir creates the plant directory if needed.
func (s *Store) EnsurePlantDir(plantID string) error {
	dir := s.PlantDir(plantID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create image directory %s: %w", dir, err)
	}
	return nil
}

// Write streams src into a new file in chunks. On any failure the partial file is removed.
func (s *Store) Write(plantID, filename string, src io.Reader) (int64, error) {
	path := filepath.Join(s.PlantDir(plantID), filename)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create file for saving: %w", err)
	}

	writer := bufio.NewWriterSize(file, chunkSize)
	written, err := io.CopyBuffer(writer, src, make([]byte, chunkSize))
	if err == nil {
		err = writer.Flush()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to write upload %s: %w", filename, err)
	}
	return written, nil
}

// Remove deletes one stored image.
func (s *Store) Remove(plantID, filename string) error {
	err := os.Remove(filepath.Join(s.PlantDir(plantID), filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RemovePlant deletes the plant directory tree. It reports whether anything existed.
func (s *Store) RemovePlant(plantID string) (bool, error) {
	dir := s.PlantDir(plantID)
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return true, fmt.Errorf("failed to remove image directory %s: %w", dir, err)
	}
	return true, nil
}
