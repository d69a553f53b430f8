// Package manifest reads and rewrites a project's Packages/manifest.json.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nomnomhub/internal/pkg"
)

// FileName is the project dependency manifest inside a Packages directory
const FileName = "manifest.json"

// LocalPrefix marks a dependency resolved from the file system
const LocalPrefix = "file:"

var (
	ErrInvalidManifest     = errors.New("invalid manifest")
	ErrInvalidLocalPackage = errors.New("invalid local package")
)

// Manifest is a project's manifest.json. Only dependencies are modelled; all
// other top level keys (scopedRegistries, testables, ...) pass through Extra.
type Manifest struct {
	Dependencies map[string]string `json:"dependencies"`

	Extra map[string]json.RawMessage `json:"-"`
}

type manifestFields Manifest

// UnmarshalJSON keeps unknown keys in Extra
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var fields manifestFields
	extra, err := pkg.SplitExtra(data, &fields, "dependencies")
	if err != nil {
		return err
	}
	*m = Manifest(fields)
	m.Extra = extra
	return nil
}

// MarshalJSON writes dependencies plus everything kept in Extra
func (m Manifest) MarshalJSON() ([]byte, error) {
	return pkg.MergeExtra(manifestFields(m), m.Extra)
}

// New returns an empty manifest
func New() *Manifest {
	return &Manifest{Dependencies: make(map[string]string)}
}

// Parse parses manifest.json text
func Parse(text string) (*Manifest, error) {
	m := New()
	if err := pkg.DecodeJSON([]byte(text), m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if m.Dependencies == nil {
		m.Dependencies = make(map[string]string)
	}
	return m, nil
}

// Load reads a manifest. A missing file yields an empty manifest.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(string(data))
}

// Save writes the manifest as indented JSON
func (m *Manifest) Save(path string) error {
	return pkg.WriteJSONFile(path, m)
}

// IsLocal reports whether a dependency value points at the file system
func IsLocal(value string) bool {
	return strings.HasPrefix(value, LocalPrefix)
}

// LocalDependency returns the manifest value for a package living in
// packageDir, relative to the project's Packages directory and always with
// forward slashes
func LocalDependency(projectRoot, packageDir string) (string, error) {
	packagesDir, err := filepath.Abs(filepath.Join(projectRoot, "Packages"))
	if err != nil {
		return "", err
	}
	packageDir, err = filepath.Abs(packageDir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(packagesDir, packageDir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidLocalPackage, packageDir, err)
	}
	return LocalPrefix + strings.ReplaceAll(filepath.ToSlash(rel), "\\", "/"), nil
}

// WriteOptions controls a manifest rewrite
type WriteOptions struct {
	// ProjectRoot is the output project; local paths are relative to its
	// Packages directory
	ProjectRoot string
	// IsEmbedded reports packages the editor embeds; they are never written
	IsEmbedded func(name string) bool
}

// Write rewrites <packagesDir>/manifest.json so its dependencies are exactly
// packages. A stale packages-lock.json is removed first and every manifest key
// other than dependencies is preserved.
func Write(packagesDir string, packages []pkg.MinimalPackage, opts WriteOptions) (*Manifest, error) {
	if err := os.MkdirAll(packagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create packages directory: %w", err)
	}

	lockPath := filepath.Join(packagesDir, pkg.LockFileName)
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to remove stale lock file: %w", err)
	}

	manifestPath := filepath.Join(packagesDir, FileName)
	m, err := Load(manifestPath)
	if err != nil {
		return nil, err
	}

	dependencies := make(map[string]string, len(packages))
	for _, p := range packages {
		if p.Type == pkg.PackageTypeLocal && !pkg.IsTemplatePackage(p.Name) {
			name, value, err := localEntry(p, opts.ProjectRoot)
			if err != nil {
				return nil, err
			}
			dependencies[name] = value
			continue
		}

		if opts.IsEmbedded != nil && opts.IsEmbedded(p.Name) {
			continue
		}
		dependencies[p.Name] = p.Version
	}

	m.Dependencies = dependencies
	if err := m.Save(manifestPath); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	return m, nil
}

// localEntry reads the package.json a local package points at and returns
// its real name with a file: reference
func localEntry(p pkg.MinimalPackage, projectRoot string) (string, string, error) {
	descriptor, err := pkg.LoadDescriptor(p.Name)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", ErrInvalidLocalPackage, p.Name, err)
	}
	if descriptor.Name == "" {
		return "", "", fmt.Errorf("%w: %s has no name", ErrInvalidLocalPackage, p.Name)
	}

	value, err := LocalDependency(projectRoot, filepath.Dir(p.Name))
	if err != nil {
		return "", "", err
	}
	return descriptor.Name, value, nil
}
