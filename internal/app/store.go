package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"nomnomhub/internal/pkg"
)

// Store persists one value of type T
type Store[T any] interface {
	// Load returns the zero value when nothing has been saved yet
	Load() (T, error)
	Save(value T) error
}

// PrefsStore persists user preferences
type PrefsStore = Store[Prefs]

// ProjectStore persists the project registry
type ProjectStore = Store[[]Project]

// UserCacheStore persists the user cache
type UserCacheStore = Store[UserCache]

// JSONStore keeps a value in a JSON file. Comments and trailing commas in hand
// edited files are accepted on load.
type JSONStore[T any] struct {
	Path string
}

// NewJSONStore creates a store for the file at path
func NewJSONStore[T any](path string) *JSONStore[T] {
	return &JSONStore[T]{Path: path}
}

func (s *JSONStore[T]) Load() (T, error) {
	var value T
	err := pkg.ReadJSONFile(s.Path, &value)
	if errors.Is(err, pkg.ErrNotFound) {
		var zero T
		return zero, nil
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

func (s *JSONStore[T]) Save(value T) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(s.Path), err)
	}
	return pkg.WriteJSONFile(s.Path, value)
}

// MemoryStore keeps a value in memory
type MemoryStore[T any] struct {
	mu    sync.Mutex
	value T
	saves int
}

// NewMemoryStore creates a store holding value
func NewMemoryStore[T any](value T) *MemoryStore[T] {
	return &MemoryStore[T]{value: value}
}

func (s *MemoryStore[T]) Load() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

func (s *MemoryStore[T]) Save(value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.saves++
	return nil
}

// Saves reports how often Save was called
func (s *MemoryStore[T]) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
