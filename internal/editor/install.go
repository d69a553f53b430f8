// Package editor knows how editor installs are laid out on disk, how to read
// their package catalog, and how to drive the editor executable.
package editor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"nomnomhub/internal/pkg"
	"nomnomhub/internal/version"
)

// Module is an optional component installed alongside an editor version,
// read from <versionDir>/modules.json
type Module struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Visible     bool   `json:"visible"`
	Selected    bool   `json:"selected"`
}

// Install is one installed editor version
type Install struct {
	ExePath string   `json:"exePath"`
	Version string   `json:"version"`
	Modules []Module `json:"modules"`
}

// ExecutableName returns the editor binary name for the current platform
func ExecutableName() string {
	if runtime.GOOS == "windows" {
		return "Unity.exe"
	}
	return "Unity"
}

// Root returns the version directory, two levels above the executable
func (i Install) Root() string {
	return filepath.Dir(filepath.Dir(i.ExePath))
}

// PackageManagerDir returns <versionDir>/Editor/Data/Resources/PackageManager
func (i Install) PackageManagerDir() string {
	return filepath.Join(filepath.Dir(i.ExePath), "Data", "Resources", "PackageManager")
}

// TemplatesDir returns the directory of templates shipped with the editor
func (i Install) TemplatesDir() string {
	return filepath.Join(i.PackageManagerDir(), "ProjectTemplates")
}

// CatalogPath returns the editor's built-in package manifest
func (i Install) CatalogPath() string {
	return catalogPath(i.PackageManagerDir())
}

// LoadModules reads modules.json from an editor version directory
func LoadModules(versionDir string) ([]Module, error) {
	data, err := os.ReadFile(filepath.Join(versionDir, "modules.json"))
	if err != nil {
		return nil, err
	}

	var modules []Module
	if err := json.Unmarshal(data, &modules); err != nil {
		return nil, fmt.Errorf("%w: modules.json: %w", pkg.ErrInvalidFormat, err)
	}
	return modules, nil
}

// Discover scans editorsPath for installed editor versions, one directory per
// version, and returns them newest first. Directories without a readable
// modules.json are not editor installs and are skipped.
func Discover(editorsPath string) ([]Install, error) {
	if editorsPath == "" {
		return nil, pkg.NewError(pkg.ErrNotFound, "editors path not set")
	}

	entries, err := os.ReadDir(editorsPath)
	if os.IsNotExist(err) {
		return nil, pkg.NewError(pkg.ErrNotFound, "editors path does not exist").With("path", editorsPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read editors path: %w", err)
	}

	byVersion := make(map[string]Install)
	versions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		versionDir := filepath.Join(editorsPath, entry.Name())
		modules, err := LoadModules(versionDir)
		if err != nil {
			continue
		}

		byVersion[entry.Name()] = Install{
			ExePath: filepath.Join(versionDir, "Editor", ExecutableName()),
			Version: entry.Name(),
			Modules: modules,
		}
		versions = append(versions, entry.Name())
	}

	version.SortDescending(versions)

	installs := make([]Install, 0, len(versions))
	for _, v := range versions {
		installs = append(installs, byVersion[v])
	}
	return installs, nil
}

// Find returns the install with the exact editor version
func Find(installs []Install, editorVersion string) (Install, error) {
	for _, install := range installs {
		if install.Version == editorVersion {
			return install, nil
		}
	}
	return Install{}, pkg.NewError(pkg.ErrNotFound, "editor version not installed").With("version", editorVersion)
}
