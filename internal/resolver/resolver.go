// Package resolver decides which dependencies a generated manifest declares
// by reconciling a template's declared dependencies with its lock file or,
// without one, the editor's package catalog.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"nomnomhub/internal/cache"
	"nomnomhub/internal/editor"
	"nomnomhub/internal/pkg"
)

// MaxPriority is the highest priority a candidate may reach and still be kept
const MaxPriority = 1

// Input is one resolution request
type Input struct {
	EditorVersion string
	// Declared are the dependencies from the template's package.json
	Declared map[string]string
	// LockText is the raw packages-lock.json text; empty means no lock file
	LockText string
}

// Candidate is a dependency under consideration
type Candidate struct {
	Version  string
	Priority int
}

// Result is the outcome of a resolution
type Result struct {
	// Dependencies is the final name to version set
	Dependencies map[string]string
	// Candidates holds every candidate with its accumulated priority
	Candidates map[string]Candidate
	// Excluded lists names dropped because their priority exceeded MaxPriority
	Excluded []string
	// Embedded lists names ForManifest drops because the editor embeds them
	Embedded []string
	// UsedCatalog is true when the editor catalog stood in for a lock file
	UsedCatalog bool
	// Cached is the package list as written back to the cache
	Cached *cache.EditorVersionPackageList
}

// ForManifest returns the final set without packages the editor embeds
func (r *Result) ForManifest() map[string]string {
	out := make(map[string]string, len(r.Dependencies))
	for name, version := range r.Dependencies {
		if r.Cached != nil && r.Cached.IsEmbedded(name) {
			continue
		}
		out[name] = version
	}
	return out
}

// Packages returns the final set as registry packages sorted by name.
// Embedded packages are left out when forManifest is set.
func (r *Result) Packages(forManifest bool) []pkg.MinimalPackage {
	deps := r.Dependencies
	if forManifest {
		deps = r.ForManifest()
	}
	packages := pkg.PackagesFromDependencies(deps)
	sort.Slice(packages, func(i, j int) bool {
		return packages[i].Name < packages[j].Name
	})
	return packages
}

// Resolver runs resolutions against a cache and a catalog source
type Resolver struct {
	Cache    cache.Store
	Catalogs editor.CatalogSource
}

// New creates a resolver
func New(store cache.Store, catalogs editor.CatalogSource) *Resolver {
	return &Resolver{Cache: store, Catalogs: catalogs}
}

// Resolve computes the dependency set for a template and records everything
// seen in the lock file or catalog into the editor version's package cache.
func (r *Resolver) Resolve(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := make(map[string]Candidate, len(in.Declared))
	for name, version := range in.Declared {
		candidates[name] = Candidate{Version: version, Priority: 0}
	}

	var (
		rawLock     map[string]pkg.LockedDependency
		rawCatalog  map[string]editor.CatalogEntry
		usedCatalog bool
	)

	if in.LockText != "" {
		entries, err := pkg.ParseLockEntries(in.LockText)
		if err != nil {
			return nil, err
		}

		rawLock = make(map[string]pkg.LockedDependency, len(entries))
		for _, entry := range entries {
			rawLock[entry.Name] = entry.LockedDependency

			if !entry.IsDirect() || entry.Version == "" || entry.IsPreview() {
				continue
			}
			corroborate(candidates, entry.Name, entry.Version)
		}
	} else {
		catalog, err := r.catalog(in.EditorVersion)
		if err != nil {
			return nil, err
		}
		if catalog != nil {
			usedCatalog = true
			rawCatalog = catalog.Packages

			for name, entry := range catalog.Packages {
				if !entry.IsDefaultCandidate() {
					continue
				}
				corroborate(candidates, name, entry.Version)
			}
		}
	}

	cached, err := r.Cache.Read(in.EditorVersion)
	if err != nil {
		return nil, err
	}
	cached.Merge(rawLock, rawCatalog)
	if err := r.Cache.Write(in.EditorVersion, cached); err != nil {
		return nil, err
	}

	result := &Result{
		Dependencies: make(map[string]string, len(candidates)),
		Candidates:   candidates,
		UsedCatalog:  usedCatalog,
		Cached:       cached,
	}
	for name, candidate := range candidates {
		if candidate.Priority > MaxPriority {
			result.Excluded = append(result.Excluded, name)
			continue
		}
		result.Dependencies[name] = candidate.Version
		if cached.IsEmbedded(name) {
			result.Embedded = append(result.Embedded, name)
		}
	}
	sort.Strings(result.Excluded)
	sort.Strings(result.Embedded)

	return result, nil
}

// catalog loads the editor catalog. A missing catalog is not an error; the
// resolution then proceeds with the declared set only.
func (r *Resolver) catalog(editorVersion string) (*editor.Catalog, error) {
	if r.Catalogs == nil {
		return nil, nil
	}
	catalog, err := r.Catalogs.Catalog(editorVersion)
	if errors.Is(err, pkg.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read package catalog for %s: %w", editorVersion, err)
	}
	return catalog, nil
}

// corroborate inserts name at priority 1 or bumps an existing candidate's
// priority, taking version either way
func corroborate(candidates map[string]Candidate, name, version string) {
	if existing, ok := candidates[name]; ok {
		candidates[name] = Candidate{Version: version, Priority: existing.Priority + 1}
		return
	}
	candidates[name] = Candidate{Version: version, Priority: 1}
}
