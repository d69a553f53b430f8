// Package app holds the state shared by the CLI and the local API: settings,
// the project registry, the user cache and the discovered editors. Each
// resource has its own lock; no lock is held while files are read or the
// editor runs.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"nomnomhub/internal/cache"
	"nomnomhub/internal/config"
	"nomnomhub/internal/editor"
	"nomnomhub/internal/generate"
	"nomnomhub/internal/git"
	"nomnomhub/internal/pkg"
	"nomnomhub/internal/resolver"
	"nomnomhub/internal/templates"
)

// Stores groups the persistence backends of a Context
type Stores struct {
	Prefs     PrefsStore
	Projects  ProjectStore
	UserCache UserCacheStore
}

// FileStores keeps prefs.json, projects.json and user_cache.json in dir
func FileStores(dir string) Stores {
	return Stores{
		Prefs:     NewJSONStore[Prefs](filepath.Join(dir, "prefs.json")),
		Projects:  NewJSONStore[[]Project](filepath.Join(dir, "projects.json")),
		UserCache: NewJSONStore[UserCache](filepath.Join(dir, "user_cache.json")),
	}
}

// MemoryStores keeps everything in memory
func MemoryStores() Stores {
	return Stores{
		Prefs:     NewMemoryStore(Prefs{}),
		Projects:  NewMemoryStore[[]Project](nil),
		UserCache: NewMemoryStore(UserCache{}),
	}
}

// Options configures New. Zero fields get file backed defaults.
type Options struct {
	Stores Stores
	Runner editor.Runner
	// Packages is the editor version package cache
	Packages cache.Store
	Logger   *log.Logger
}

// Context is the application state
type Context struct {
	Config   config.Config
	Logger   *log.Logger
	Runner   editor.Runner
	Packages cache.Store

	prefsMu    sync.RWMutex
	prefs      Prefs
	prefsStore PrefsStore

	projectsMu   sync.RWMutex
	projectsSave sync.Mutex
	projects     []Project
	projectStore ProjectStore

	editorsMu sync.RWMutex
	editors   []editor.Install

	userCacheMu    sync.RWMutex
	userCacheSave  sync.Mutex
	userCache      UserCache
	userCacheStore UserCacheStore
}

// Open creates a Context backed by files in the config directory
func Open(cfg config.Config, logger *log.Logger) (*Context, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	return New(cfg, Options{Stores: FileStores(dir), Logger: logger})
}

// New creates a Context and loads its stores
func New(cfg config.Config, opts Options) (*Context, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Stores.Prefs == nil || opts.Stores.Projects == nil || opts.Stores.UserCache == nil {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, err
		}
		defaults := FileStores(dir)
		if opts.Stores.Prefs == nil {
			opts.Stores.Prefs = defaults.Prefs
		}
		if opts.Stores.Projects == nil {
			opts.Stores.Projects = defaults.Projects
		}
		if opts.Stores.UserCache == nil {
			opts.Stores.UserCache = defaults.UserCache
		}
	}
	if opts.Runner == nil {
		timeout, err := cfg.Timeout()
		if err != nil {
			return nil, err
		}
		opts.Runner = editor.NewProcessRunner(timeout)
	}
	if opts.Packages == nil {
		opts.Packages = cache.NewFileStore(cfg.CacheDir)
	}

	c := &Context{
		Config:         cfg,
		Logger:         opts.Logger,
		Runner:         opts.Runner,
		Packages:       opts.Packages,
		prefsStore:     opts.Stores.Prefs,
		projectStore:   opts.Stores.Projects,
		userCacheStore: opts.Stores.UserCache,
	}

	var err error
	if c.prefs, err = c.prefsStore.Load(); err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if c.projects, err = c.projectStore.Load(); err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	if c.userCache, err = c.userCacheStore.Load(); err != nil {
		return nil, fmt.Errorf("failed to load user cache: %w", err)
	}
	return c, nil
}

// Editors returns the installed editors, newest first. The editors path is
// scanned once and remembered until RefreshEditors.
func (c *Context) Editors() ([]editor.Install, error) {
	c.editorsMu.RLock()
	editors := c.editors
	c.editorsMu.RUnlock()
	if editors != nil {
		return append([]editor.Install(nil), editors...), nil
	}
	return c.RefreshEditors()
}

// RefreshEditors scans the editors path again
func (c *Context) RefreshEditors() ([]editor.Install, error) {
	editorsPath := c.Settings().EditorsPath
	editors, err := editor.Discover(editorsPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("discovered editors", "path", editorsPath, "count", len(editors))

	c.editorsMu.Lock()
	c.editors = editors
	c.editorsMu.Unlock()
	return append([]editor.Install(nil), editors...), nil
}

// Editor returns the install for editorVersion
func (c *Context) Editor(editorVersion string) (editor.Install, error) {
	editors, err := c.Editors()
	if err != nil {
		return editor.Install{}, err
	}
	return editor.Find(editors, editorVersion)
}

// Catalog reads the built-in package catalog of editorVersion
func (c *Context) Catalog(editorVersion string) (*editor.Catalog, error) {
	install, err := c.Editor(editorVersion)
	if err != nil {
		return nil, err
	}
	return editor.ReadCatalog(install.CatalogPath())
}

// Resolver returns a dependency resolver over the package cache and the
// catalogs of the installed editors
func (c *Context) Resolver() *resolver.Resolver {
	return resolver.New(c.Packages, c)
}

// Templates returns the template catalog
func (c *Context) Templates() *templates.Catalog {
	return templates.NewCatalog(c.Settings().AppDataPath, c.Config.CacheDir, c.Resolver())
}

// Generator returns a project and template generator
func (c *Context) Generator() *generate.Generator {
	return generate.New(c.Config.CacheDir, c.Resolver(), c.Runner, c.Templates(), c.Logger)
}

// DefaultPackages lists the catalog packages of editorVersion
func (c *Context) DefaultPackages(editorVersion string) ([]pkg.MinimalPackage, error) {
	catalog, err := c.Catalog(editorVersion)
	if err != nil {
		return nil, err
	}
	return catalog.DefaultPackages(), nil
}

// FindTemplate looks a template up by name among the templates of
// editorVersion
func (c *Context) FindTemplate(editorVersion, name string) (templates.Template, error) {
	install, err := c.Editor(editorVersion)
	if err != nil {
		return templates.Template{}, err
	}
	return c.Templates().Find(install, name)
}

// GitPackage reads the package at a git url and remembers it
func (c *Context) GitPackage(ctx context.Context, url string) (*pkg.PackageDescriptor, pkg.MinimalPackage, error) {
	fetcher := git.NewFetcher(c.Config.CacheDir, c.Config.GitToken, c.Logger)
	descriptor, p, err := fetcher.Package(ctx, url)
	if err != nil {
		return nil, pkg.MinimalPackage{}, err
	}
	if err := c.AddGitPackage(p); err != nil {
		return nil, pkg.MinimalPackage{}, err
	}
	return descriptor, p, nil
}

// GenerateProject generates a project and registers it. An empty Path uses
// the configured new project path.
func (c *Context) GenerateProject(ctx context.Context, req generate.ProjectRequest) (*generate.ProjectResult, error) {
	if req.Path == "" {
		req.Path = c.Settings().NewProjectPath
	}

	result, err := c.Generator().Project(ctx, req)
	if err != nil {
		return nil, err
	}

	project, err := LoadProject(result.Path)
	if err != nil {
		return nil, fmt.Errorf("project generated but could not be registered: %w", err)
	}
	if err := c.registerProject(project); err != nil {
		return nil, err
	}
	if err := c.SetLastEditorVersion(req.Install.Version); err != nil {
		c.Logger.Warn("failed to remember editor version", "error", err)
	}
	return result, nil
}

// GenerateTemplate packs a new user template
func (c *Context) GenerateTemplate(ctx context.Context, req generate.TemplateRequest) (*generate.TemplateResult, error) {
	result, err := c.Generator().Template(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.SetLastEditorVersion(req.Install.Version); err != nil {
		c.Logger.Warn("failed to remember editor version", "error", err)
	}
	return result, nil
}

// GenerateTemplateFromProject packs an existing project as a user template
func (c *Context) GenerateTemplateFromProject(ctx context.Context, req generate.FromProjectRequest) (*generate.TemplateResult, error) {
	return c.Generator().TemplateFromProject(ctx, req)
}

// OpenProject starts the editor version recorded in the project
func (c *Context) OpenProject(path string) (Project, error) {
	project, err := LoadProject(path)
	if err != nil {
		return Project{}, err
	}
	install, err := c.Editor(project.Version)
	if err != nil {
		return Project{}, err
	}
	if err := editor.OpenProject(c.Runner, install, project.Path); err != nil {
		return Project{}, err
	}
	c.Logger.Info("opened project", "path", project.Path, "editor", project.Version)
	return project, nil
}

// OpenHub starts the configured vendor hub
func (c *Context) OpenHub() error {
	hubPath := c.Settings().HubPath
	if hubPath == "" {
		return pkg.NewError(pkg.ErrNotFound, "hub path not configured")
	}
	return c.Runner.Start(hubPath)
}

// ClearCache removes every cached package list and template descriptor
func (c *Context) ClearCache() error {
	clearer, ok := c.Packages.(interface{ Clear() error })
	if !ok {
		return nil
	}
	if err := clearer.Clear(); err != nil {
		return err
	}
	c.Logger.Info("cache cleared", "path", c.Config.CacheDir)
	return nil
}

// DeleteTemplate removes a user template. Templates shipped with an editor
// are never deleted.
func (c *Context) DeleteTemplate(editorVersion, name string) (templates.Template, error) {
	template, err := c.FindTemplate(editorVersion, name)
	if err != nil {
		return templates.Template{}, err
	}
	catalog := c.Templates()
	if filepath.Dir(template.Path) != catalog.UserDir() {
		return templates.Template{}, pkg.NewError(pkg.ErrConflict, "only user templates can be deleted").With("path", template.Path)
	}
	if err := catalog.Delete(template); err != nil {
		return templates.Template{}, err
	}
	c.Logger.Info("template deleted", "template", template.ID(), "editor", editorVersion)
	return template, nil
}

// InspectTemplate reports the resolved dependencies and pipelines of a
// template
func (c *Context) InspectTemplate(ctx context.Context, editorVersion, name string) (*templates.Info, error) {
	template, err := c.FindTemplate(editorVersion, name)
	if err != nil {
		return nil, err
	}
	return c.Templates().Inspect(ctx, template)
}

// TemplateTree returns the file tree of a template archive
func (c *Context) TemplateTree(editorVersion, name string) (*templates.FileNode, error) {
	template, err := c.FindTemplate(editorVersion, name)
	if err != nil {
		return nil, err
	}
	return c.Templates().FileTree(template)
}

// ListTemplates returns the editor and user templates of editorVersion
func (c *Context) ListTemplates(editorVersion string) ([]templates.Template, error) {
	install, err := c.Editor(editorVersion)
	if err != nil {
		return nil, err
	}
	return c.Templates().List(install)
}

// DefaultEditorVersion picks the editor a command runs against when none is
// named: the one used last if still installed, else the newest
func (c *Context) DefaultEditorVersion() (string, error) {
	editors, err := c.Editors()
	if err != nil {
		return "", err
	}
	if len(editors) == 0 {
		return "", pkg.NewError(pkg.ErrNotFound, "no editors installed").With("path", c.Settings().EditorsPath)
	}

	c.userCacheMu.RLock()
	last := c.userCache.LastEditorVersion
	c.userCacheMu.RUnlock()
	if _, err := editor.Find(editors, last); last != "" && err == nil {
		return last, nil
	}
	return editors[0].Version, nil
}
