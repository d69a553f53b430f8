// Package generate materializes new projects from template archives or from
// the editor itself, and packs projects and templates into new templates.
package generate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"nomnomhub/internal/cache"
	"nomnomhub/internal/editor"
	"nomnomhub/internal/manifest"
	"nomnomhub/internal/pkg"
	"nomnomhub/internal/resolver"
	"nomnomhub/internal/security"
	"nomnomhub/internal/templates"
)

// Scratch directory prefixes below the cache dir. Every generation gets its
// own directory so concurrent requests never share one.
const (
	ProjectScratchDir  = "new_project_package"
	TemplateScratchDir = "new_template_package"
	TemplateOutputDir  = "new_template_output"
)

// Project settings defaults written into ProjectSettings.asset
const (
	DefaultCompanyName = "DefaultCompany"
)

const defaultGitignore = `/[Ll]ibrary/
/[Tt]emp/
/[Oo]bj/
/[Bb]uild/
/[Bb]uilds/
/[Ll]ogs/
/[Uu]ser[Ss]ettings/
/[Mm]emoryCaptures/
/[Rr]ecordings/

*.csproj
*.unityproj
*.sln
*.suo
*.tmp
*.user
*.userprefs
*.pidb
*.booproj
*.svd
*.pdb
*.mdb
*.opendb
*.VC.db
*.pidb.meta
*.pdb.meta
*.mdb.meta

.vs/
.idea/
.vscode/
.DS_Store
`

// projectDataPrefix is where a template keeps its project tree
const projectDataPrefix = "ProjectData~"

// DefaultProjectExcludes keeps the editor's generated data out of new projects
var DefaultProjectExcludes = []string{
	projectDataPrefix + "/Library",
	projectDataPrefix + "/Library/**",
}

// Generator creates projects and templates
type Generator struct {
	// CacheDir holds the scratch directories
	CacheDir  string
	Resolver  *resolver.Resolver
	Runner    editor.Runner
	Templates *templates.Catalog
	Sanitizer *security.TextSanitizer
	Logger    *log.Logger
}

// New creates a generator. A nil logger discards output.
func New(cacheDir string, r *resolver.Resolver, runner editor.Runner, catalog *templates.Catalog, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Generator{
		CacheDir:  cacheDir,
		Resolver:  r,
		Runner:    runner,
		Templates: catalog,
		Sanitizer: security.NewTextSanitizer(),
		Logger:    logger,
	}
}

// ProjectRequest describes one project to generate
type ProjectRequest struct {
	// Name is the project directory name, created inside Path
	Name    string
	Path    string
	Install editor.Install
	// Template is the archive to start from; nil asks the editor for an
	// empty project
	Template *templates.Template
	// Packages overrides the resolved dependency set when non-nil
	Packages []pkg.MinimalPackage
	// Files selects archive entries to copy, as doublestar patterns relative
	// to the archive root ("package/ProjectData~/Assets/**"). Empty copies
	// the whole project tree except Library.
	Files []string
}

// ProjectResult describes a generated project
type ProjectResult struct {
	Path        string             `json:"path"`
	Manifest    *manifest.Manifest `json:"manifest"`
	Copy        *CopyReport        `json:"copy,omitempty"`
	LockWritten bool               `json:"lockWritten"`
	Excluded    []string           `json:"excluded,omitempty"`
}

// Project generates a new project. Nothing is registered; the caller adds
// the result to the project list.
func (g *Generator) Project(ctx context.Context, req ProjectRequest) (*ProjectResult, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, pkg.NewError(pkg.ErrInvalidFormat, "project name is required")
	}
	if req.Install.Version == "" {
		return nil, pkg.NewError(pkg.ErrInvalidFormat, "editor version is required")
	}

	outputPath := filepath.Join(req.Path, req.Name)
	if pkg.Exists(outputPath) {
		return nil, pkg.NewError(pkg.ErrConflict, "project already exists").With("path", outputPath)
	}

	logger := g.Logger.With("project", req.Name, "editor", req.Install.Version)

	var (
		result *ProjectResult
		err    error
	)
	if req.Template != nil {
		logger.Info("generating project from template", "template", req.Template.ID())
		result, err = g.templatedProject(ctx, req, outputPath, logger)
	} else {
		logger.Info("generating empty project")
		result, err = g.emptyProject(ctx, req, outputPath, logger)
	}
	if err != nil {
		return nil, err
	}

	if err := rewriteProjectSettings(outputPath, req.Name); err != nil {
		logger.Warn("failed to update project settings", "error", err)
	}

	logger.Info("project generated", "path", outputPath)
	return result, nil
}

// templatedProject extracts the template into the scratch directory, writes
// the resolved manifest there and copies the selected project tree out
func (g *Generator) templatedProject(ctx context.Context, req ProjectRequest, outputPath string, logger *log.Logger) (*ProjectResult, error) {
	archive, err := pkg.OpenArchive(req.Template.Path)
	if err != nil {
		return nil, err
	}
	scratch, err := g.scratchDir(ProjectScratchDir)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	logger.Debug("extracting template", "scratch", scratch)
	if err := archive.ExtractTo(scratch); err != nil {
		return nil, err
	}

	packageRoot := filepath.Join(scratch, "package")
	packagesDir := filepath.Join(packageRoot, projectDataPrefix, "Packages")

	descriptor, err := readScratchDescriptor(packageRoot)
	if err != nil {
		return nil, err
	}
	lockText, err := readOptional(filepath.Join(packagesDir, pkg.LockFileName))
	if err != nil {
		return nil, err
	}

	resolution, err := g.Resolver.Resolve(ctx, resolver.Input{
		EditorVersion: req.Install.Version,
		Declared:      descriptor.Dependencies,
		LockText:      lockText,
	})
	if err != nil {
		return nil, err
	}

	packages := req.Packages
	if packages == nil {
		packages = resolution.Packages(false)
	}

	m, err := manifest.Write(packagesDir, packages, manifest.WriteOptions{
		ProjectRoot: outputPath,
		IsEmbedded:  resolution.Cached.IsEmbedded,
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}

	patterns := projectPatterns(req.Files)
	selected, err := selectFiles(packageRoot, patterns, DefaultProjectExcludes)
	if err != nil {
		return nil, err
	}
	report, err := copySelected(packageRoot, outputPath, selected, stripPrefix(projectDataPrefix), logger)
	if err != nil {
		return nil, err
	}
	if !report.OK() {
		logger.Warn("some files were not copied", "failed", len(report.Failures))
	}

	if err := os.RemoveAll(scratch); err != nil {
		return nil, fmt.Errorf("failed to remove scratch directory: %w", err)
	}

	// The manifest written into the scratch tree is part of the project even
	// when the selection left it out
	manifestPath := filepath.Join(outputPath, "Packages", manifest.FileName)
	if !pkg.Exists(manifestPath) {
		if err := os.MkdirAll(filepath.Dir(manifestPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create Packages: %w", err)
		}
		if err := m.Save(manifestPath); err != nil {
			return nil, fmt.Errorf("failed to write manifest: %w", err)
		}
	}

	lockWritten, err := g.finishProject(outputPath, req.Install.Version, m, resolution.Cached, descriptor.FromProject)
	if err != nil {
		return nil, err
	}

	return &ProjectResult{
		Path:        outputPath,
		Manifest:    m,
		Copy:        report,
		LockWritten: lockWritten,
		Excluded:    resolution.Excluded,
	}, nil
}

// emptyProject has the editor create the project, then rewrites its manifest
func (g *Generator) emptyProject(ctx context.Context, req ProjectRequest, outputPath string, logger *log.Logger) (*ProjectResult, error) {
	if g.Runner == nil {
		return nil, pkg.NewError(pkg.ErrExternalProcess, "no editor runner configured")
	}

	logger.Debug("running editor", "exe", req.Install.ExePath)
	if err := editor.CreateProject(ctx, g.Runner, req.Install, outputPath); err != nil {
		return nil, err
	}

	packagesDir := filepath.Join(outputPath, "Packages")
	existing, err := manifest.Load(filepath.Join(packagesDir, manifest.FileName))
	if err != nil {
		return nil, err
	}

	resolution, err := g.Resolver.Resolve(ctx, resolver.Input{
		EditorVersion: req.Install.Version,
		Declared:      existing.Dependencies,
	})
	if err != nil {
		return nil, err
	}

	packages := req.Packages
	if packages == nil {
		packages = resolution.Packages(false)
	}

	m, err := manifest.Write(packagesDir, packages, manifest.WriteOptions{
		ProjectRoot: outputPath,
		IsEmbedded:  resolution.Cached.IsEmbedded,
	})
	if err != nil {
		return nil, err
	}

	lockWritten, err := g.finishProject(outputPath, req.Install.Version, m, resolution.Cached, false)
	if err != nil {
		return nil, err
	}

	return &ProjectResult{
		Path:        outputPath,
		Manifest:    m,
		LockWritten: lockWritten,
		Excluded:    resolution.Excluded,
	}, nil
}

// finishProject stamps the editor version, adds a .gitignore and, unless the
// template was made from a project, writes a lock file from the cache
func (g *Generator) finishProject(outputPath, editorVersion string, m *manifest.Manifest, cached *cache.EditorVersionPackageList, fromProject bool) (bool, error) {
	if err := os.MkdirAll(filepath.Join(outputPath, "Assets"), 0o755); err != nil {
		return false, fmt.Errorf("failed to create Assets: %w", err)
	}
	if err := WriteProjectVersion(outputPath, editorVersion); err != nil {
		return false, err
	}

	gitignore := filepath.Join(outputPath, ".gitignore")
	if !pkg.Exists(gitignore) {
		if err := os.WriteFile(gitignore, []byte(defaultGitignore), 0o644); err != nil {
			return false, fmt.Errorf("failed to write .gitignore: %w", err)
		}
	}

	if fromProject {
		return false, nil
	}

	lock := SynthesizeLock(m, cached)
	if len(lock.Dependencies) == 0 {
		return false, nil
	}
	lockPath := filepath.Join(outputPath, "Packages", pkg.LockFileName)
	if err := lock.SaveLockfile(lockPath); err != nil {
		return false, fmt.Errorf("failed to write lock file: %w", err)
	}
	return true, nil
}

// WriteProjectVersion writes ProjectSettings/ProjectVersion.txt
func WriteProjectVersion(projectPath, editorVersion string) error {
	settingsDir := filepath.Join(projectPath, "ProjectSettings")
	if err := os.MkdirAll(settingsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create ProjectSettings: %w", err)
	}
	content := "m_EditorVersion: " + editorVersion
	if err := os.WriteFile(filepath.Join(settingsDir, "ProjectVersion.txt"), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write ProjectVersion.txt: %w", err)
	}
	return nil
}

// ReadProjectVersion returns the editor version recorded in
// ProjectSettings/ProjectVersion.txt
func ReadProjectVersion(projectPath string) (string, error) {
	path := filepath.Join(projectPath, "ProjectSettings", "ProjectVersion.txt")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", pkg.NewError(pkg.ErrNotFound, "project has no ProjectVersion.txt").With("path", projectPath)
	}
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(string(data), "\n") {
		if value, ok := strings.CutPrefix(strings.TrimSpace(line), "m_EditorVersion:"); ok {
			return strings.TrimSpace(value), nil
		}
	}
	return "", pkg.NewError(pkg.ErrInvalidFormat, "ProjectVersion.txt has no m_EditorVersion").With("path", path)
}

// SynthesizeLock builds a lock file from the cached entries of the manifest's
// dependencies. Dependencies the cache has never seen are left out.
func SynthesizeLock(m *manifest.Manifest, cached *cache.EditorVersionPackageList) *pkg.LockFile {
	lock := &pkg.LockFile{Dependencies: make(map[string]pkg.LockedDependency)}
	if cached == nil {
		return lock
	}
	for name, value := range m.Dependencies {
		entry, ok := cached.Packages[name]
		if !ok || manifest.IsLocal(value) {
			continue
		}
		entry.Depth = 0
		if entry.Version == "" {
			entry.Version = value
		}
		lock.AddPackage(name, entry)
	}
	return lock
}

// rewriteProjectSettings resets companyName and productName in
// ProjectSettings.asset. A missing file is fine.
func rewriteProjectSettings(projectPath, productName string) error {
	assetPath := filepath.Join(projectPath, "ProjectSettings", "ProjectSettings.asset")
	data, err := os.ReadFile(assetPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var out strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		out.WriteString(rewriteSettingsLine(scanner.Text(), productName))
		out.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return os.WriteFile(assetPath, []byte(out.String()), 0o644)
}

func rewriteSettingsLine(line, productName string) string {
	trimmed := strings.TrimLeft(line, " ")
	indent := line[:len(line)-len(trimmed)]
	switch {
	case strings.HasPrefix(trimmed, "companyName:"):
		return indent + "companyName: " + DefaultCompanyName
	case strings.HasPrefix(trimmed, "productName:"):
		return indent + "productName: " + productName
	}
	return line
}

// projectPatterns turns caller selections into patterns relative to the
// archive's package directory
func projectPatterns(files []string) []string {
	if len(files) == 0 {
		return []string{projectDataPrefix + "/**"}
	}
	patterns := make([]string, 0, len(files))
	for _, file := range files {
		file = strings.TrimPrefix(filepath.ToSlash(file), "./")
		patterns = append(patterns, strings.TrimPrefix(file, "package/"))
	}
	return patterns
}

func readScratchDescriptor(packageRoot string) (*pkg.PackageDescriptor, error) {
	descriptor, err := pkg.LoadDescriptor(filepath.Join(packageRoot, "package.json"))
	if errors.Is(err, pkg.ErrNotFound) {
		return &pkg.PackageDescriptor{}, nil
	}
	return descriptor, err
}

// readOptional returns a file's text, or "" when it does not exist
func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	return string(data), nil
}
