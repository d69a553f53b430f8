package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"nomnomhub/internal/pkg"
)

// File names inside <appdata>/Templates
const (
	RegistryFileName = "manifest.json"
	CustomFileName   = "custom_manifest.json"
)

// RegistryEntry is the set of templates known for one editor version
type RegistryEntry struct {
	Dependencies map[string]string `json:"dependencies"`

	Extra map[string]json.RawMessage `json:"-"`
}

type registryEntryFields RegistryEntry

// UnmarshalJSON keeps unknown keys in Extra
func (e *RegistryEntry) UnmarshalJSON(data []byte) error {
	var fields registryEntryFields
	extra, err := pkg.SplitExtra(data, &fields, "dependencies")
	if err != nil {
		return err
	}
	*e = RegistryEntry(fields)
	e.Extra = extra
	return nil
}

// MarshalJSON writes dependencies plus everything kept in Extra
func (e RegistryEntry) MarshalJSON() ([]byte, error) {
	return pkg.MergeExtra(registryEntryFields(e), e.Extra)
}

// TemplateRegistry is the toolchain's template manifest, keyed by editor
// version and then by template name
type TemplateRegistry map[string]RegistryEntry

// LoadTemplateRegistry reads the registry; a missing file is an empty registry
func LoadTemplateRegistry(path string) (TemplateRegistry, error) {
	registry := make(TemplateRegistry)
	err := pkg.ReadJSONFile(path, &registry)
	if errors.Is(err, pkg.ErrNotFound) {
		return make(TemplateRegistry), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template registry: %w", err)
	}
	return registry, nil
}

// Save writes the registry, creating its directory
func (r TemplateRegistry) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return pkg.WriteJSONFile(path, r)
}

// Register records name at version for editorVersion
func (r TemplateRegistry) Register(editorVersion, name, version string) {
	entry := r[editorVersion]
	if entry.Dependencies == nil {
		entry.Dependencies = make(map[string]string)
	}
	entry.Dependencies[name] = version
	r[editorVersion] = entry
}

// Unregister drops name from editorVersion and reports whether it was present
func (r TemplateRegistry) Unregister(editorVersion, name string) bool {
	entry, ok := r[editorVersion]
	if !ok {
		return false
	}
	if _, ok := entry.Dependencies[name]; !ok {
		return false
	}
	delete(entry.Dependencies, name)
	r[editorVersion] = entry
	return true
}

// Contains reports whether name is registered for editorVersion
func (r TemplateRegistry) Contains(editorVersion, name string) bool {
	_, ok := r[editorVersion].Dependencies[name]
	return ok
}

// CustomTemplates lists the templates authored by the user as
// "<name>-<version>" identifiers
type CustomTemplates struct {
	Templates []string `json:"templates"`

	Extra map[string]json.RawMessage `json:"-"`
}

type customTemplatesFields CustomTemplates

// UnmarshalJSON keeps unknown keys in Extra
func (c *CustomTemplates) UnmarshalJSON(data []byte) error {
	var fields customTemplatesFields
	extra, err := pkg.SplitExtra(data, &fields, "templates")
	if err != nil {
		return err
	}
	*c = CustomTemplates(fields)
	c.Extra = extra
	return nil
}

// MarshalJSON writes templates plus everything kept in Extra
func (c CustomTemplates) MarshalJSON() ([]byte, error) {
	if c.Templates == nil {
		c.Templates = []string{}
	}
	return pkg.MergeExtra(customTemplatesFields(c), c.Extra)
}

// TemplateID joins a template name and version the way archives are named
func TemplateID(name, version string) string {
	return name + "-" + version
}

// LoadCustomTemplates reads the custom registry; a missing file is empty
func LoadCustomTemplates(path string) (*CustomTemplates, error) {
	custom := &CustomTemplates{}
	err := pkg.ReadJSONFile(path, custom)
	if errors.Is(err, pkg.ErrNotFound) {
		return &CustomTemplates{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read custom templates: %w", err)
	}
	return custom, nil
}

// Save writes the custom registry, creating its directory
func (c *CustomTemplates) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return pkg.WriteJSONFile(path, c)
}

// Add appends id unless it is already listed
func (c *CustomTemplates) Add(id string) {
	if c.Contains(id) {
		return
	}
	c.Templates = append(c.Templates, id)
}

// Remove drops every occurrence of id
func (c *CustomTemplates) Remove(id string) {
	kept := c.Templates[:0]
	for _, existing := range c.Templates {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	c.Templates = kept
}

// Contains reports whether id is listed
func (c *CustomTemplates) Contains(id string) bool {
	for _, existing := range c.Templates {
		if existing == id {
			return true
		}
	}
	return false
}
