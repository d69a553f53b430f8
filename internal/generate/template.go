package generate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"nomnomhub/internal/editor"
	"nomnomhub/internal/manifest"
	"nomnomhub/internal/pkg"
	"nomnomhub/internal/resolver"
	"nomnomhub/internal/security"
	"nomnomhub/internal/templates"
	"nomnomhub/internal/version"
)

// TemplateMetadata is what the user says about a new template
type TemplateMetadata struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// TemplateRequest builds a template from an existing template archive, or
// from a blank scaffold when Base is nil
type TemplateRequest struct {
	TemplateMetadata
	Install editor.Install
	Base    *templates.Template
	// Packages overrides the resolved dependency set when non-nil
	Packages []pkg.MinimalPackage
	// Files selects entries below the base's package directory as doublestar
	// patterns ("ProjectData~/Assets/**"). Empty takes everything but Library.
	Files []string
}

// FromProjectRequest builds a template from a project on disk
type FromProjectRequest struct {
	TemplateMetadata
	Install     editor.Install
	ProjectPath string
	// Files selects project files as doublestar patterns relative to the
	// project root. Empty takes Assets, Packages and ProjectSettings.
	Files []string
}

// TemplateResult describes a packed template
type TemplateResult struct {
	Template   templates.Template     `json:"template"`
	Descriptor *pkg.PackageDescriptor `json:"descriptor"`
	Archive    *pkg.ArchiveInfo       `json:"archive"`
	Copy       *CopyReport            `json:"copy"`
}

// DefaultProjectFiles are taken from a project when the caller picks nothing
var DefaultProjectFiles = []string{"Assets/**", "Packages/**", "ProjectSettings/**"}

// Files a template build writes itself
var templateGeneratedFiles = []string{
	"package.json",
	projectDataPrefix + "/Packages/" + pkg.LockFileName,
}

// Template packs a new template from req.Base or a blank scaffold
func (g *Generator) Template(ctx context.Context, req TemplateRequest) (*TemplateResult, error) {
	meta, archivePath, err := g.prepareTemplate(req.TemplateMetadata, req.Install)
	if err != nil {
		return nil, err
	}
	logger := g.Logger.With("template", meta.Name, "version", meta.Version)

	scratch, err := g.scratchDir(TemplateScratchDir)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)
	output, err := g.scratchDir(TemplateOutputDir)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(output)

	outPackage := filepath.Join(output, "package")
	if err := createScaffold(outPackage); err != nil {
		return nil, err
	}

	base := &pkg.PackageDescriptor{}
	lockText := ""
	report := &CopyReport{}

	if req.Base != nil {
		logger.Info("building template", "base", req.Base.ID())
		archive, err := pkg.OpenArchive(req.Base.Path)
		if err != nil {
			return nil, err
		}
		if err := archive.ExtractTo(scratch); err != nil {
			return nil, err
		}

		basePackage := filepath.Join(scratch, "package")
		if base, err = readScratchDescriptor(basePackage); err != nil {
			return nil, err
		}
		if lockText, err = readOptional(filepath.Join(basePackage, projectDataPrefix, "Packages", pkg.LockFileName)); err != nil {
			return nil, err
		}

		patterns := req.Files
		if len(patterns) == 0 {
			patterns = []string{"**"}
		}
		excludes := append(append([]string{}, DefaultProjectExcludes...), templateGeneratedFiles...)
		selected, err := selectFiles(basePackage, trimPackagePrefix(patterns), excludes)
		if err != nil {
			return nil, err
		}
		if report, err = copySelected(basePackage, outPackage, selected, withPrefix(""), logger); err != nil {
			return nil, err
		}
	} else {
		logger.Info("building template from blank scaffold")
	}

	resolution, err := g.Resolver.Resolve(ctx, resolver.Input{
		EditorVersion: req.Install.Version,
		Declared:      base.Dependencies,
		LockText:      lockText,
	})
	if err != nil {
		return nil, err
	}

	packages := req.Packages
	if packages == nil {
		packages = resolution.Packages(false)
	}

	return g.packTemplate(templateBuild{
		meta:        meta,
		install:     req.Install,
		base:        base,
		packages:    packages,
		resolution:  resolution,
		output:      output,
		archivePath: archivePath,
		report:      report,
		logger:      logger,
	})
}

// TemplateFromProject packs a template from a live project. The project's
// manifest supplies the dependencies and the descriptor is marked fromProject.
func (g *Generator) TemplateFromProject(ctx context.Context, req FromProjectRequest) (*TemplateResult, error) {
	meta, archivePath, err := g.prepareTemplate(req.TemplateMetadata, req.Install)
	if err != nil {
		return nil, err
	}
	logger := g.Logger.With("template", meta.Name, "version", meta.Version, "project", req.ProjectPath)

	if !pkg.Exists(filepath.Join(req.ProjectPath, "Assets")) {
		return nil, pkg.NewError(pkg.ErrNotFound, "not a project directory").With("path", req.ProjectPath)
	}

	packagesDir := filepath.Join(req.ProjectPath, "Packages")
	projectManifest, err := manifest.Load(filepath.Join(packagesDir, manifest.FileName))
	if err != nil {
		return nil, err
	}
	lockText, err := readOptional(filepath.Join(packagesDir, pkg.LockFileName))
	if err != nil {
		return nil, err
	}

	output, err := g.scratchDir(TemplateOutputDir)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(output)
	outPackage := filepath.Join(output, "package")
	if err := createScaffold(outPackage); err != nil {
		return nil, err
	}

	patterns := req.Files
	if len(patterns) == 0 {
		patterns = DefaultProjectFiles
	}
	excludes := []string{"Library", "Library/**", "Packages/" + pkg.LockFileName}
	selected, err := selectFiles(req.ProjectPath, patterns, excludes)
	if err != nil {
		return nil, err
	}
	logger.Info("building template from project", "files", len(selected))
	report, err := copySelected(req.ProjectPath, outPackage, selected, withPrefix(projectDataPrefix), logger)
	if err != nil {
		return nil, err
	}

	resolution, err := g.Resolver.Resolve(ctx, resolver.Input{
		EditorVersion: req.Install.Version,
		Declared:      projectManifest.Dependencies,
		LockText:      lockText,
	})
	if err != nil {
		return nil, err
	}

	// Local and git references in the project manifest are kept verbatim
	deps := resolution.ForManifest()
	for name, value := range projectManifest.Dependencies {
		if manifest.IsLocal(value) || strings.Contains(value, ".git") {
			deps[name] = value
		}
	}

	return g.packTemplate(templateBuild{
		meta:        meta,
		install:     req.Install,
		base:        &pkg.PackageDescriptor{FromProject: true},
		packages:    pkg.PackagesFromDependencies(deps),
		resolution:  resolution,
		output:      output,
		archivePath: archivePath,
		report:      report,
		logger:      logger,
		fromProject: true,
	})
}

type templateBuild struct {
	meta        TemplateMetadata
	install     editor.Install
	base        *pkg.PackageDescriptor
	packages    []pkg.MinimalPackage
	resolution  *resolver.Result
	output      string
	archivePath string
	report      *CopyReport
	logger      *log.Logger
	fromProject bool
}

// packTemplate writes the descriptor and manifest into the output scaffold,
// packs it and registers the archive
func (g *Generator) packTemplate(b templateBuild) (*TemplateResult, error) {
	outPackage := filepath.Join(b.output, "package")
	projectData := filepath.Join(outPackage, projectDataPrefix)

	m, err := manifest.Write(filepath.Join(projectData, "Packages"), b.packages, manifest.WriteOptions{
		ProjectRoot: projectData,
		IsEmbedded:  b.resolution.Cached.IsEmbedded,
	})
	if err != nil {
		return nil, err
	}

	descriptor := b.base.WithDependencies(m.Dependencies)
	descriptor.Name = b.meta.Name
	descriptor.DisplayName = b.meta.DisplayName
	descriptor.Version = b.meta.Version
	descriptor.Description = b.meta.Description
	descriptor.Type = pkg.TemplateType
	descriptor.Host = pkg.TemplateHost
	descriptor.Unity = version.MajorMinor(b.install.Version)
	descriptor.FromProject = b.fromProject || b.base.FromProject

	if err := descriptor.Save(filepath.Join(outPackage, "package.json")); err != nil {
		return nil, fmt.Errorf("failed to write package.json: %w", err)
	}

	info, err := pkg.Pack(b.output, b.archivePath)
	if err != nil {
		return nil, err
	}
	b.logger.Info("template packed", "path", info.Path, "size", info.SizeBytes)

	tmpl := templates.Template{
		Name:          descriptor.Name,
		Version:       descriptor.Version,
		Path:          info.Path,
		EditorVersion: b.install.Version,
		Custom:        true,
	}
	if err := g.register(tmpl); err != nil {
		return nil, err
	}

	return &TemplateResult{
		Template:   tmpl,
		Descriptor: descriptor,
		Archive:    info,
		Copy:       b.report,
	}, nil
}

// registryMu serializes read-modify-write of the template registry files,
// which every generator in the process shares
var registryMu sync.Mutex

// register records the template in the toolchain manifest and the custom
// template list, and drops any stale inspection of an archive with the same
// name
func (g *Generator) register(t templates.Template) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry, err := manifest.LoadTemplateRegistry(g.Templates.RegistryPath())
	if err != nil {
		return err
	}
	registry.Register(t.EditorVersion, t.Name, t.Version)
	if err := registry.Save(g.Templates.RegistryPath()); err != nil {
		return fmt.Errorf("failed to update template registry: %w", err)
	}

	custom, err := manifest.LoadCustomTemplates(g.Templates.CustomPath())
	if err != nil {
		return err
	}
	custom.Add(t.ID())
	if err := custom.Save(g.Templates.CustomPath()); err != nil {
		return fmt.Errorf("failed to update custom templates: %w", err)
	}

	return g.Templates.ClearInspection(t)
}

// prepareTemplate sanitizes and validates metadata and returns the archive
// path the template will be written to
func (g *Generator) prepareTemplate(meta TemplateMetadata, install editor.Install) (TemplateMetadata, string, error) {
	if g.Templates == nil || g.Templates.AppDataPath == "" {
		return meta, "", pkg.NewError(pkg.ErrNotFound, "application data path is not configured")
	}
	if install.Version == "" {
		return meta, "", pkg.NewError(pkg.ErrInvalidFormat, "editor version is required")
	}

	meta.Name = strings.TrimSpace(meta.Name)
	meta.DisplayName = g.Sanitizer.Sanitize(meta.DisplayName)
	meta.Description = g.Sanitizer.Sanitize(meta.Description)
	meta.Version = strings.TrimSpace(meta.Version)

	if err := security.ValidatePackageName(meta.Name); err != nil {
		return meta, "", pkg.NewError(pkg.ErrInvalidFormat, "invalid template name: "+err.Error()).With("name", meta.Name)
	}
	if meta.Version == "" || strings.ContainsAny(meta.Version, `/\`) {
		return meta, "", pkg.NewError(pkg.ErrInvalidFormat, "invalid template version").With("version", meta.Version)
	}
	if meta.DisplayName == "" {
		meta.DisplayName = meta.Name
	}

	archivePath := filepath.Join(g.Templates.UserDir(), manifest.TemplateID(meta.Name, meta.Version)+templates.ArchiveExt)
	if pkg.Exists(archivePath) {
		return meta, "", pkg.NewError(pkg.ErrConflict, "template already exists").With("path", archivePath)
	}
	return meta, archivePath, nil
}

// createScaffold lays out package/ProjectData~/{Assets,Packages}
func createScaffold(packageDir string) error {
	for _, dir := range []string{"Assets", "Packages"} {
		if err := os.MkdirAll(filepath.Join(packageDir, projectDataPrefix, dir), 0o755); err != nil {
			return fmt.Errorf("failed to create template scaffold: %w", err)
		}
	}
	return nil
}

// scratchDir creates a fresh directory named <prefix>-<random> below the
// cache dir
func (g *Generator) scratchDir(prefix string) (string, error) {
	if err := os.MkdirAll(g.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	dir, err := os.MkdirTemp(g.CacheDir, prefix+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, nil
}

func trimPackagePrefix(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		out = append(out, strings.TrimPrefix(filepath.ToSlash(pattern), "package/"))
	}
	return out
}
