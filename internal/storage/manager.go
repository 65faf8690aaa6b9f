// Package storage keeps uploaded capture files and generated exports on disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/serial-plotter/backend/internal/models"
)

// ErrFileNotFound is returned for unknown file IDs.
var ErrFileNotFound = errors.New("file not found")

// Store defines the interface for file storage.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	SaveBytes(name string, data []byte) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	GetFilePath(id string) (string, error)
}

// LocalStore implements Store using one directory of the local filesystem.
// Files are stored under their generated ID; names live in memory.
type LocalStore struct {
	mu    sync.RWMutex
	dir   string
	kind  string
	files map[string]*models.FileInfo
}

// NewLocalStore creates a LocalStore. kind tags every FileInfo it creates
// ("upload", "export").
func NewLocalStore(dir, kind string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStore{
		dir:   dir,
		kind:  kind,
		files: make(map[string]*models.FileInfo),
	}, nil
}

// Save copies r into a new file.
func (s *LocalStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	size, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       size,
		UploadedAt: time.Now(),
		Kind:       s.kind,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return info, nil
}

// SaveBytes stores an in-memory payload.
func (s *LocalStore) SaveBytes(name string, data []byte) (*models.FileInfo, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dir, id)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
		Kind:       s.kind,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return info, nil
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	return info, nil
}

// List returns the most recent files first.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes a file from storage.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	path := filepath.Join(s.dir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}

	delete(s.files, id)
	return nil
}

// GetFilePath returns the absolute path to a file.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[id]; !ok {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}

	return filepath.Join(s.dir, id), nil
}
