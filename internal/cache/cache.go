// Package cache persists what has been learned about the packages of each
// editor version: the raw lock entries seen in templates and the editor's own
// package catalog. Files only ever grow; nothing is pruned automatically.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"nomnomhub/internal/editor"
	"nomnomhub/internal/pkg"
)

// TemplatesDir is the cache subdirectory holding per editor version files
const TemplatesDir = "templates"

// EditorVersionPackageList is everything cached for one editor version
type EditorVersionPackageList struct {
	Packages         map[string]pkg.LockedDependency `json:"packages"`
	ManifestPackages map[string]editor.CatalogEntry  `json:"manifestPackages"`
}

// NewPackageList returns an empty list with both maps allocated
func NewPackageList() *EditorVersionPackageList {
	return &EditorVersionPackageList{
		Packages:         make(map[string]pkg.LockedDependency),
		ManifestPackages: make(map[string]editor.CatalogEntry),
	}
}

// IsEmbedded reports whether either cached source marks name as embedded
func (l *EditorVersionPackageList) IsEmbedded(name string) bool {
	if entry, ok := l.Packages[name]; ok && entry.Source == pkg.SourceEmbedded {
		return true
	}
	if entry, ok := l.ManifestPackages[name]; ok && entry.Source == string(pkg.SourceEmbedded) {
		return true
	}
	return false
}

// Merge copies the given lock and catalog entries into l, replacing entries
// with the same name
func (l *EditorVersionPackageList) Merge(packages map[string]pkg.LockedDependency, catalog map[string]editor.CatalogEntry) {
	for name, entry := range packages {
		l.Packages[name] = entry
	}
	for name, entry := range catalog {
		l.ManifestPackages[name] = entry
	}
}

// Store reads and writes package lists by editor version
type Store interface {
	// Read returns an empty list when nothing has been cached yet
	Read(editorVersion string) (*EditorVersionPackageList, error)
	// Write replaces the cached list for editorVersion
	Write(editorVersion string, list *EditorVersionPackageList) error
}

// Key turns an editor version into a file system safe name
func Key(editorVersion string) string {
	return strings.ReplaceAll(editorVersion, ".", "_")
}

// FileStore keeps one pretty printed JSON file per editor version below
// <root>/templates
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at the application cache directory
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

// Root returns the application cache directory
func (s *FileStore) Root() string {
	return s.root
}

// Dir returns the directory holding the per version files
func (s *FileStore) Dir() string {
	return filepath.Join(s.root, TemplatesDir)
}

// Path returns the cache file for editorVersion
func (s *FileStore) Path(editorVersion string) string {
	return filepath.Join(s.Dir(), Key(editorVersion)+".json")
}

func (s *FileStore) Read(editorVersion string) (*EditorVersionPackageList, error) {
	list := NewPackageList()
	err := pkg.ReadJSONFile(s.Path(editorVersion), list)
	if errors.Is(err, pkg.ErrNotFound) {
		return NewPackageList(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read package cache for %s: %w", editorVersion, err)
	}

	if list.Packages == nil {
		list.Packages = make(map[string]pkg.LockedDependency)
	}
	if list.ManifestPackages == nil {
		list.ManifestPackages = make(map[string]editor.CatalogEntry)
	}
	return list, nil
}

func (s *FileStore) Write(editorVersion string, list *EditorVersionPackageList) error {
	if err := os.MkdirAll(s.Dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := pkg.WriteJSONFile(s.Path(editorVersion), list); err != nil {
		return fmt.Errorf("failed to write package cache for %s: %w", editorVersion, err)
	}
	return nil
}

// Clear removes every cached package list and template descriptor
func (s *FileStore) Clear() error {
	if err := os.RemoveAll(s.Dir()); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// MemoryStore is a Store backed by a map, used where nothing should touch disk
type MemoryStore struct {
	mu    sync.Mutex
	lists map[string]*EditorVersionPackageList
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string]*EditorVersionPackageList)}
}

func (s *MemoryStore) Read(editorVersion string) (*EditorVersionPackageList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := NewPackageList()
	if list, ok := s.lists[Key(editorVersion)]; ok {
		out.Merge(list.Packages, list.ManifestPackages)
	}
	return out, nil
}

func (s *MemoryStore) Write(editorVersion string, list *EditorVersionPackageList) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := NewPackageList()
	stored.Merge(list.Packages, list.ManifestPackages)
	s.lists[Key(editorVersion)] = stored
	return nil
}
