package pkg

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Template descriptor constants
const (
	TemplateType     = "template"
	TemplateHost     = "hub"
	TemplateNameBase = "com.unity.template"
)

// PackageDescriptor is the package.json found at the root of a package or
// inside a template archive. Keys this type does not model are kept in Extra
// and written back unchanged.
type PackageDescriptor struct {
	Name         string            `json:"name,omitempty"`
	DisplayName  string            `json:"displayName,omitempty"`
	Version      string            `json:"version,omitempty"`
	Type         string            `json:"type,omitempty"`
	Host         string            `json:"host,omitempty"`
	Unity        string            `json:"unity,omitempty"`
	Description  string            `json:"description,omitempty"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	FromProject  bool              `json:"fromProject,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type descriptorFields PackageDescriptor

var descriptorKeys = []string{
	"name", "displayName", "version", "type", "host", "unity",
	"description", "dependencies", "fromProject",
}

// UnmarshalJSON keeps unknown keys in Extra
func (d *PackageDescriptor) UnmarshalJSON(data []byte) error {
	var fields descriptorFields
	extra, err := SplitExtra(data, &fields, descriptorKeys...)
	if err != nil {
		return err
	}
	*d = PackageDescriptor(fields)
	d.Extra = extra
	return nil
}

// MarshalJSON writes modelled keys plus everything kept in Extra
func (d PackageDescriptor) MarshalJSON() ([]byte, error) {
	return MergeExtra(descriptorFields(d), d.Extra)
}

// ParseDescriptor parses package.json text
func ParseDescriptor(text string) (*PackageDescriptor, error) {
	var d PackageDescriptor
	if err := DecodeJSON([]byte(text), &d); err != nil {
		return nil, fmt.Errorf("package.json: %w", err)
	}
	return &d, nil
}

// LoadDescriptor reads a package.json from disk
func LoadDescriptor(path string) (*PackageDescriptor, error) {
	var d PackageDescriptor
	if err := ReadJSONFile(path, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Save writes the descriptor as indented JSON
func (d *PackageDescriptor) Save(path string) error {
	return WriteJSONFile(path, d)
}

// Validate checks the fields a template descriptor cannot do without
func (d *PackageDescriptor) Validate() error {
	if d.Name == "" {
		return NewError(ErrInvalidFormat, "package.json: name is required")
	}
	if d.Version == "" {
		return NewError(ErrInvalidFormat, "package.json: version is required")
	}
	return nil
}

// WithDependencies returns a copy of d carrying deps. The receiver is left
// untouched.
func (d *PackageDescriptor) WithDependencies(deps map[string]string) *PackageDescriptor {
	out := *d
	out.Dependencies = make(map[string]string, len(deps))
	for name, version := range deps {
		out.Dependencies[name] = version
	}
	if d.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(d.Extra))
		for key, value := range d.Extra {
			out.Extra[key] = value
		}
	}
	return &out
}

// PackageType classifies a MinimalPackage
type PackageType string

const (
	PackageTypeInternal PackageType = "internal"
	PackageTypeDefault  PackageType = "default"
	PackageTypeGit      PackageType = "git"
	PackageTypeLocal    PackageType = "local"
)

// MinimalPackage is the resolved, UI facing package. For local packages Name
// is the filesystem path to the package's package.json.
type MinimalPackage struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	IsDiscoverable bool        `json:"isDiscoverable"`
	Type           PackageType `json:"type"`
}

// IsTemplatePackage reports whether name belongs to a toolchain owned template
func IsTemplatePackage(name string) bool {
	return strings.HasPrefix(name, TemplateNameBase)
}

// PackagesFromDependencies turns a name->version map into registry packages
func PackagesFromDependencies(deps map[string]string) []MinimalPackage {
	packages := make([]MinimalPackage, 0, len(deps))
	for name, version := range deps {
		packages = append(packages, MinimalPackage{
			Name:    name,
			Version: version,
			Type:    PackageTypeDefault,
		})
	}
	return packages
}

// Exists reports whether path exists on disk
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
