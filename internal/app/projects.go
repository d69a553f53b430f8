package app

import (
	"fmt"
	"path/filepath"

	"nomnomhub/internal/generate"
	"nomnomhub/internal/pkg"
)

// Project is one registered project
type Project struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Version string `json:"version"`
}

// LoadProject reads the name and editor version of the project at path. The
// directory must contain Assets.
func LoadProject(path string) (Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Project{}, err
	}
	if !IsProjectRoot(absPath) {
		return Project{}, pkg.NewError(pkg.ErrInvalidFormat, "not a project: missing Assets directory").With("path", absPath)
	}

	editorVersion, err := generate.ReadProjectVersion(absPath)
	if err != nil {
		return Project{}, err
	}
	return Project{
		Name:    filepath.Base(absPath),
		Path:    absPath,
		Version: editorVersion,
	}, nil
}

// IsProjectRoot reports whether path holds an Assets directory
func IsProjectRoot(path string) bool {
	return pkg.Exists(filepath.Join(path, "Assets"))
}

// Projects returns a copy of the project registry, most recent first
func (c *Context) Projects() []Project {
	c.projectsMu.RLock()
	defer c.projectsMu.RUnlock()
	return append(make([]Project, 0, len(c.projects)), c.projects...)
}

// AddProject registers the project at path
func (c *Context) AddProject(path string) (Project, error) {
	project, err := LoadProject(path)
	if err != nil {
		return Project{}, err
	}
	if err := c.registerProject(project); err != nil {
		return Project{}, err
	}
	return project, nil
}

func (c *Context) registerProject(project Project) error {
	err := c.updateProjects(func(projects []Project) ([]Project, error) {
		for _, existing := range projects {
			if existing.Path == project.Path {
				return nil, pkg.NewError(pkg.ErrConflict, "project already registered").With("path", project.Path)
			}
		}
		return append([]Project{project}, projects...), nil
	})
	if err != nil {
		return err
	}
	c.Logger.Info("project registered", "name", project.Name, "path", project.Path)
	return nil
}

// RemoveProject drops path from the registry. The project files stay.
func (c *Context) RemoveProject(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return c.updateProjects(func(projects []Project) ([]Project, error) {
		for i, existing := range projects {
			if existing.Path == absPath {
				return append(projects[:i:i], projects[i+1:]...), nil
			}
		}
		return nil, pkg.NewError(pkg.ErrNotFound, "project not registered").With("path", absPath)
	})
}

// SetProjectVersion records a new editor version for a registered project
func (c *Context) SetProjectVersion(path, editorVersion string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return c.updateProjects(func(projects []Project) ([]Project, error) {
		for i := range projects {
			if projects[i].Path == absPath {
				projects[i].Version = editorVersion
				return projects, nil
			}
		}
		return nil, pkg.NewError(pkg.ErrNotFound, "project not registered").With("path", absPath)
	})
}

// PruneProjects drops registered projects whose directory no longer exists
// and returns them
func (c *Context) PruneProjects() ([]Project, error) {
	var removed []Project
	err := c.updateProjects(func(projects []Project) ([]Project, error) {
		kept := make([]Project, 0, len(projects))
		for _, project := range projects {
			if pkg.Exists(project.Path) {
				kept = append(kept, project)
			} else {
				removed = append(removed, project)
			}
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}
	for _, project := range removed {
		c.Logger.Info("pruned missing project", "path", project.Path)
	}
	return removed, nil
}

// updateProjects applies fn to a copy of the registry, then saves and
// publishes the result. Writers are serialized; readers only wait for the
// final swap.
func (c *Context) updateProjects(fn func([]Project) ([]Project, error)) error {
	c.projectsSave.Lock()
	defer c.projectsSave.Unlock()

	next, err := fn(c.Projects())
	if err != nil {
		return err
	}
	if err := c.projectStore.Save(next); err != nil {
		return fmt.Errorf("failed to save projects: %w", err)
	}

	c.projectsMu.Lock()
	c.projects = next
	c.projectsMu.Unlock()
	return nil
}
