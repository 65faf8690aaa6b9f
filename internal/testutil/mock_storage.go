// Package testutil holds test doubles shared across packages.
package testutil

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/serial-plotter/backend/internal/models"
	"github.com/serial-plotter/backend/internal/storage"
)

// MockStorage implements storage.Store in memory. Set SaveErr to make
// every save fail.
type MockStorage struct {
	mu       sync.RWMutex
	files    map[string]*models.FileInfo
	fileData map[string][]byte
	Kind     string
	SaveErr  error
}

var _ storage.Store = (*MockStorage)(nil)

var testIDCounter atomic.Int64

// NewMockStorage creates an empty mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.FileInfo),
		fileData: make(map[string][]byte),
		Kind:     "export",
	}
}

func (m *MockStorage) Save(name string, r io.Reader) (*models.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return m.SaveBytes(name, data)
}

func (m *MockStorage) SaveBytes(name string, data []byte) (*models.FileInfo, error) {
	if m.SaveErr != nil {
		return nil, m.SaveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := fmt.Sprintf("test-file-%d", testIDCounter.Add(1))
	file := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       int64(len(data)),
		UploadedAt: time.Now(),
		Kind:       m.Kind,
	}

	m.files[id] = file
	m.fileData[id] = data
	return file, nil
}

func (m *MockStorage) Get(id string) (*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrFileNotFound, id)
	}
	return file, nil
}

func (m *MockStorage) List(limit int) ([]*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]*models.FileInfo, 0, len(m.files))
	for _, file := range m.files {
		files = append(files, file)
	}
	// newest first, ids break ties between saves in the same instant
	slices.SortFunc(files, func(a, b *models.FileInfo) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[id]; !exists {
		return fmt.Errorf("%w: %s", storage.ErrFileNotFound, id)
	}

	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

func (m *MockStorage) GetFilePath(id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.files[id]; !ok {
		return "", fmt.Errorf("%w: %s", storage.ErrFileNotFound, id)
	}
	return "/mock/path/" + id, nil
}

// Data returns the stored bytes of a file.
func (m *MockStorage) Data(id string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.fileData[id]
	return data, ok
}

// FileCount returns the number of stored files.
func (m *MockStorage) FileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}
