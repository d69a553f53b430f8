package editor

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"nomnomhub/internal/pkg"
)

// CatalogEntry describes one package the editor ships knowledge of
type CatalogEntry struct {
	IsDiscoverable         *bool  `json:"isDiscoverable,omitempty"`
	MustBeBundled          *bool  `json:"mustBeBundled,omitempty"`
	Version                string `json:"version,omitempty"`
	MinimumVersion         string `json:"minimumVersion,omitempty"`
	Deprecated             string `json:"deprecated,omitempty"`
	RemoveOnProjectUpgrade *bool  `json:"removeOnProjectUpgrade,omitempty"`
	IsDefault              *bool  `json:"isDefault,omitempty"`
	Source                 string `json:"source,omitempty"`
}

// IsDeprecatedEntry reports whether the entry carries a deprecation notice
func (e CatalogEntry) IsDeprecatedEntry() bool {
	return e.Deprecated != ""
}

// Discoverable reports whether the entry is explicitly marked discoverable
func (e CatalogEntry) Discoverable() bool {
	return e.IsDiscoverable != nil && *e.IsDiscoverable
}

// Default reports whether the entry is explicitly marked as a default package
func (e CatalogEntry) Default() bool {
	return e.IsDefault != nil && *e.IsDefault
}

// IsDefaultCandidate reports whether a new project without a lock file should
// depend on this package: not deprecated, discoverable, default and versioned
func (e CatalogEntry) IsDefaultCandidate() bool {
	return !e.IsDeprecatedEntry() && e.Discoverable() && e.Default() && e.Version != ""
}

// Catalog is the editor's built-in package manager manifest
type Catalog struct {
	SchemaVersion       int                     `json:"schemaVersion,omitempty"`
	Packages            map[string]CatalogEntry `json:"packages"`
	MetadataPackageName string                  `json:"metadataPackageName,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type catalogFields Catalog

// UnmarshalJSON keeps unknown keys in Extra
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var fields catalogFields
	extra, err := pkg.SplitExtra(data, &fields, "schemaVersion", "packages", "metadataPackageName")
	if err != nil {
		return err
	}
	*c = Catalog(fields)
	c.Extra = extra
	return nil
}

// MarshalJSON writes modelled keys plus everything kept in Extra
func (c Catalog) MarshalJSON() ([]byte, error) {
	return pkg.MergeExtra(catalogFields(c), c.Extra)
}

// ParseCatalog parses the text of an editor package manager manifest
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := pkg.DecodeJSON(data, &catalog); err != nil {
		return nil, fmt.Errorf("editor package catalog: %w", err)
	}
	if catalog.Packages == nil {
		catalog.Packages = make(map[string]CatalogEntry)
	}
	return &catalog, nil
}

// ReadCatalog reads the catalog at path. A missing file is ErrNotFound.
func ReadCatalog(path string) (*Catalog, error) {
	var catalog Catalog
	if err := pkg.ReadJSONFile(path, &catalog); err != nil {
		return nil, err
	}
	if catalog.Packages == nil {
		catalog.Packages = make(map[string]CatalogEntry)
	}
	return &catalog, nil
}

// DefaultPackages lists every catalog package as a MinimalPackage sorted by
// name. Entries marked default get the default type, everything else is
// internal.
func (c *Catalog) DefaultPackages() []pkg.MinimalPackage {
	packages := make([]pkg.MinimalPackage, 0, len(c.Packages))
	for name, entry := range c.Packages {
		packageType := pkg.PackageTypeInternal
		if entry.Default() {
			packageType = pkg.PackageTypeDefault
		}
		packages = append(packages, pkg.MinimalPackage{
			Name:           name,
			Version:        entry.Version,
			IsDiscoverable: entry.Discoverable(),
			Type:           packageType,
		})
	}

	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Name < packages[j].Name
	})
	return packages
}

// CatalogSource loads the catalog for an editor version
type CatalogSource interface {
	Catalog(editorVersion string) (*Catalog, error)
}

// InstallCatalogs resolves catalogs from a list of discovered installs
type InstallCatalogs struct {
	Installs []Install
}

// Catalog finds the install for editorVersion and reads its catalog
func (s InstallCatalogs) Catalog(editorVersion string) (*Catalog, error) {
	install, err := Find(s.Installs, editorVersion)
	if err != nil {
		return nil, err
	}
	return ReadCatalog(install.CatalogPath())
}

// StaticCatalogs serves catalogs from memory, keyed by editor version
type StaticCatalogs map[string]*Catalog

func (s StaticCatalogs) Catalog(editorVersion string) (*Catalog, error) {
	catalog, ok := s[editorVersion]
	if !ok {
		return nil, pkg.NewError(pkg.ErrNotFound, "no package catalog for editor "+editorVersion)
	}
	return catalog, nil
}

// catalogPath is the manifest location below an editor's package manager
// directory
func catalogPath(packageManagerDir string) string {
	return filepath.Join(packageManagerDir, "Editor", "manifest.json")
}
