package app

import (
	"errors"
	"fmt"

	"nomnomhub/internal/pkg"
)

// UserCache remembers choices between runs
type UserCache struct {
	LastEditorVersion string               `json:"lastEditorVersion,omitempty"`
	GitPackages       []pkg.MinimalPackage `json:"gitPackages"`
	LocalPackages     []pkg.MinimalPackage `json:"localPackages"`
}

func (u UserCache) clone() UserCache {
	return UserCache{
		LastEditorVersion: u.LastEditorVersion,
		GitPackages:       append([]pkg.MinimalPackage(nil), u.GitPackages...),
		LocalPackages:     append([]pkg.MinimalPackage(nil), u.LocalPackages...),
	}
}

// UserCache returns the user cache. Local packages whose package.json is gone
// are dropped and the pruned cache is saved.
func (c *Context) UserCache() (UserCache, error) {
	var pruned bool
	next, err := c.updateUserCache(func(u *UserCache) error {
		kept := u.LocalPackages[:0]
		for _, p := range u.LocalPackages {
			if pkg.Exists(p.Name) {
				kept = append(kept, p)
			} else {
				c.Logger.Debug("dropping missing local package", "path", p.Name)
				pruned = true
			}
		}
		u.LocalPackages = kept
		if !pruned {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return UserCache{}, err
	}
	return next, nil
}

// SetLastEditorVersion remembers the editor version used last
func (c *Context) SetLastEditorVersion(editorVersion string) error {
	_, err := c.updateUserCache(func(u *UserCache) error {
		if u.LastEditorVersion == editorVersion {
			return errUnchanged
		}
		u.LastEditorVersion = editorVersion
		return nil
	})
	return err
}

// AddGitPackage remembers a git package. Adding the same name and version
// twice keeps one entry.
func (c *Context) AddGitPackage(p pkg.MinimalPackage) error {
	p.Type = pkg.PackageTypeGit
	_, err := c.updateUserCache(func(u *UserCache) error {
		for _, existing := range u.GitPackages {
			if existing.Name == p.Name && existing.Version == p.Version {
				return errUnchanged
			}
		}
		u.GitPackages = append(u.GitPackages, p)
		return nil
	})
	return err
}

// RemoveGitPackage forgets the git package with this name and version
func (c *Context) RemoveGitPackage(name, version string) error {
	_, err := c.updateUserCache(func(u *UserCache) error {
		for i, existing := range u.GitPackages {
			if existing.Name == name && existing.Version == version {
				u.GitPackages = append(u.GitPackages[:i], u.GitPackages[i+1:]...)
				return nil
			}
		}
		return pkg.NewError(pkg.ErrNotFound, "git package not remembered").With("name", name).With("version", version)
	})
	return err
}

// AddLocalPackage remembers a local package by the path of its package.json
func (c *Context) AddLocalPackage(p pkg.MinimalPackage) error {
	if !pkg.Exists(p.Name) {
		return pkg.NewError(pkg.ErrNotFound, "local package does not exist").With("path", p.Name)
	}
	p.Type = pkg.PackageTypeLocal
	_, err := c.updateUserCache(func(u *UserCache) error {
		for _, existing := range u.LocalPackages {
			if existing.Name == p.Name {
				return errUnchanged
			}
		}
		u.LocalPackages = append(u.LocalPackages, p)
		return nil
	})
	return err
}

// RemoveLocalPackage forgets the local package at path
func (c *Context) RemoveLocalPackage(path string) error {
	_, err := c.updateUserCache(func(u *UserCache) error {
		for i, existing := range u.LocalPackages {
			if existing.Name == path {
				u.LocalPackages = append(u.LocalPackages[:i], u.LocalPackages[i+1:]...)
				return nil
			}
		}
		return pkg.NewError(pkg.ErrNotFound, "local package not remembered").With("path", path)
	})
	return err
}

// errUnchanged tells updateUserCache there is nothing to save
var errUnchanged = errors.New("unchanged")

// updateUserCache applies fn to a copy of the cache, saves it unless fn
// returns errUnchanged and returns the resulting cache
func (c *Context) updateUserCache(fn func(*UserCache) error) (UserCache, error) {
	c.userCacheSave.Lock()
	defer c.userCacheSave.Unlock()

	c.userCacheMu.RLock()
	next := c.userCache.clone()
	c.userCacheMu.RUnlock()

	if err := fn(&next); err == errUnchanged {
		return next.clone(), nil
	} else if err != nil {
		return UserCache{}, err
	}

	if err := c.userCacheStore.Save(next); err != nil {
		return UserCache{}, fmt.Errorf("failed to save user cache: %w", err)
	}

	c.userCacheMu.Lock()
	c.userCache = next
	c.userCacheMu.Unlock()
	return next.clone(), nil
}
