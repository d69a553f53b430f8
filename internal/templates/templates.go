// Package templates lists, inspects and deletes template archives, both the
// ones shipped with an editor install and the ones the user created.
package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nomnomhub/internal/editor"
	"nomnomhub/internal/manifest"
	"nomnomhub/internal/pkg"
	"nomnomhub/internal/resolver"
)

// ArchiveExt is the extension of template archives
const ArchiveExt = ".tgz"

// Template identifies a template archive on disk. It is re-derived from the
// file system on every listing.
type Template struct {
	Name          string `json:"name"`
	Version       string `json:"version"`
	Path          string `json:"path"`
	EditorVersion string `json:"editorVersion"`
	Custom        bool   `json:"custom"`
}

// ID returns "<name>-<version>"
func (t Template) ID() string {
	return manifest.TemplateID(t.Name, t.Version)
}

// ParseFileName splits "<name>-<version>.tgz" on its last dash
func ParseFileName(path string) (string, string, error) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ArchiveExt) {
		return "", "", pkg.NewError(pkg.ErrInvalidFormat, "not a template archive").With("file", base)
	}
	stem := strings.TrimSuffix(base, ArchiveExt)

	lastDash := strings.LastIndex(stem, "-")
	if lastDash <= 0 || lastDash == len(stem)-1 {
		return "", "", pkg.NewError(pkg.ErrInvalidFormat, "template file name must be <name>-<version>.tgz").With("file", base)
	}
	return stem[:lastDash], stem[lastDash+1:], nil
}

// ListDir returns every well named archive directly inside dir, sorted by
// name. A missing directory yields no templates.
func ListDir(dir, editorVersion string) ([]Template, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read templates directory: %w", err)
	}

	var templates []Template
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ArchiveExt {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		name, version, err := ParseFileName(path)
		if err != nil {
			continue
		}
		templates = append(templates, Template{
			Name:          name,
			Version:       version,
			Path:          path,
			EditorVersion: editorVersion,
		})
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Name < templates[j].Name
	})
	return templates, nil
}

// Catalog gives access to the templates of every editor version
type Catalog struct {
	// AppDataPath is the toolchain's application data directory
	AppDataPath string
	// CacheDir is the application cache directory
	CacheDir string
	Resolver *resolver.Resolver
}

// NewCatalog creates a template catalog
func NewCatalog(appDataPath, cacheDir string, r *resolver.Resolver) *Catalog {
	return &Catalog{AppDataPath: appDataPath, CacheDir: cacheDir, Resolver: r}
}

// UserDir returns <appdata>/Templates
func (c *Catalog) UserDir() string {
	return filepath.Join(c.AppDataPath, "Templates")
}

// RegistryPath returns the toolchain template manifest
func (c *Catalog) RegistryPath() string {
	return filepath.Join(c.UserDir(), manifest.RegistryFileName)
}

// CustomPath returns the registry of user authored templates
func (c *Catalog) CustomPath() string {
	return filepath.Join(c.UserDir(), manifest.CustomFileName)
}

// List returns the templates shipped with install followed by the user
// templates registered for its version
func (c *Catalog) List(install editor.Install) ([]Template, error) {
	templates, err := ListDir(install.TemplatesDir(), install.Version)
	if err != nil {
		return nil, err
	}

	user, err := c.ListUser(install.Version)
	if err != nil {
		return nil, err
	}
	return append(templates, user...), nil
}

// ListUser returns the user templates registered for editorVersion
func (c *Catalog) ListUser(editorVersion string) ([]Template, error) {
	if c.AppDataPath == "" {
		return nil, nil
	}

	registry, err := manifest.LoadTemplateRegistry(c.RegistryPath())
	if err != nil {
		return nil, err
	}
	custom, err := manifest.LoadCustomTemplates(c.CustomPath())
	if err != nil {
		return nil, err
	}

	all, err := ListDir(c.UserDir(), editorVersion)
	if err != nil {
		return nil, err
	}

	var templates []Template
	for _, t := range all {
		if !registry.Contains(editorVersion, t.Name) {
			continue
		}
		t.Custom = custom.Contains(t.ID())
		templates = append(templates, t)
	}
	return templates, nil
}

// Find returns the template with name for the install, newest file first
// when several versions exist
func (c *Catalog) Find(install editor.Install, name string) (Template, error) {
	templates, err := c.List(install)
	if err != nil {
		return Template{}, err
	}
	for i := len(templates) - 1; i >= 0; i-- {
		if templates[i].Name == name || templates[i].ID() == name {
			return templates[i], nil
		}
	}
	return Template{}, pkg.NewError(pkg.ErrNotFound, "template not found").
		With("name", name).
		With("editor", install.Version)
}

// Delete removes a user template archive and its registrations
func (c *Catalog) Delete(t Template) error {
	if err := os.Remove(t.Path); err != nil {
		if os.IsNotExist(err) {
			return pkg.NewError(pkg.ErrNotFound, "template archive not found").With("path", t.Path)
		}
		return fmt.Errorf("failed to delete template: %w", err)
	}

	registry, err := manifest.LoadTemplateRegistry(c.RegistryPath())
	if err != nil {
		return err
	}
	if registry.Unregister(t.EditorVersion, t.Name) {
		if err := registry.Save(c.RegistryPath()); err != nil {
			return fmt.Errorf("failed to update template registry: %w", err)
		}
	}

	custom, err := manifest.LoadCustomTemplates(c.CustomPath())
	if err != nil {
		return err
	}
	if custom.Contains(t.ID()) {
		custom.Remove(t.ID())
		if err := custom.Save(c.CustomPath()); err != nil {
			return fmt.Errorf("failed to update custom templates: %w", err)
		}
	}

	return c.ClearInspection(t)
}

// ClearInspection drops what an earlier Inspect cached for the archive
func (c *Catalog) ClearInspection(t Template) error {
	if err := os.RemoveAll(c.inspectCacheDir(t)); err != nil {
		return fmt.Errorf("failed to clear template cache: %w", err)
	}
	return nil
}

// inspectCacheDir holds the descriptor and lock text read from an archive
func (c *Catalog) inspectCacheDir(t Template) string {
	return filepath.Join(c.CacheDir, "templates", filepath.Base(t.Path))
}
