package templates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nomnomhub/internal/pkg"
	"nomnomhub/internal/resolver"
)

// Pipeline is a render pipeline a template targets
type Pipeline string

const (
	PipelineBuiltIn Pipeline = "BuiltIn"
	PipelineURP     Pipeline = "URP"
	PipelineHDRP    Pipeline = "HDRP"
	PipelineCustom  Pipeline = "Custom"
)

// Render pipeline package names
const (
	URPPackage  = "com.unity.render-pipelines.universal"
	HDRPPackage = "com.unity.render-pipelines.high-definition"
	CorePackage = "com.unity.render-pipelines.core"
)

// DetectPipelines looks for render pipeline packages among deps. A template
// without any of them uses the built-in pipeline.
func DetectPipelines(deps map[string]string) []Pipeline {
	_, urp := deps[URPPackage]
	_, hdrp := deps[HDRPPackage]
	_, core := deps[CorePackage]

	var pipelines []Pipeline
	if urp {
		pipelines = append(pipelines, PipelineURP)
	}
	if hdrp {
		pipelines = append(pipelines, PipelineHDRP)
	}
	if core {
		pipelines = append(pipelines, PipelineCustom)
	}
	if !urp && !hdrp && !core {
		pipelines = append(pipelines, PipelineBuiltIn)
	}
	return pipelines
}

// Info is what inspecting a template reports
type Info struct {
	// Package is the template descriptor with its dependencies resolved
	Package       *pkg.PackageDescriptor `json:"tgzPackage"`
	Template      Template               `json:"surfaceTemplate"`
	Pipelines     []Pipeline             `json:"pipelines"`
	DiskSizeBytes int64                  `json:"diskSizeBytes"`
	// Excluded lists declared or locked packages the resolver dropped
	Excluded []string `json:"excluded,omitempty"`
}

// Contents is the raw dependency data of a template archive
type Contents struct {
	Descriptor string
	Lock       string
}

// ReadContents reads package.json and the lock file from the archive,
// reusing the copies cached by an earlier read of the same archive
func (c *Catalog) ReadContents(t Template) (*Contents, error) {
	cacheDir := c.inspectCacheDir(t)
	descriptorPath := filepath.Join(cacheDir, "package.json")
	lockPath := filepath.Join(cacheDir, pkg.LockFileName)

	if descriptor, err := os.ReadFile(descriptorPath); err == nil {
		lock, err := os.ReadFile(lockPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read cached lock file: %w", err)
		}
		return &Contents{Descriptor: string(descriptor), Lock: string(lock)}, nil
	}

	archive, err := pkg.OpenArchive(t.Path)
	if err != nil {
		return nil, err
	}
	found, err := archive.Find(pkg.DescriptorEntry, pkg.LockEntryPath)
	if err != nil {
		return nil, err
	}

	descriptor, ok := found[pkg.DescriptorEntry]
	if !ok {
		return nil, pkg.NewError(pkg.ErrNotFound, "template archive has no package.json").With("path", t.Path)
	}
	contents := &Contents{Descriptor: descriptor, Lock: found[pkg.LockEntryPath]}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create template cache: %w", err)
	}
	if err := os.WriteFile(descriptorPath, []byte(contents.Descriptor), 0o644); err != nil {
		return nil, fmt.Errorf("failed to cache package.json: %w", err)
	}
	if contents.Lock != "" {
		if err := os.WriteFile(lockPath, []byte(contents.Lock), 0o644); err != nil {
			return nil, fmt.Errorf("failed to cache lock file: %w", err)
		}
	}
	return contents, nil
}

// Inspect resolves a template's dependencies and reports what it contains
func (c *Catalog) Inspect(ctx context.Context, t Template) (*Info, error) {
	contents, err := c.ReadContents(t)
	if err != nil {
		return nil, err
	}

	descriptor, err := pkg.ParseDescriptor(contents.Descriptor)
	if err != nil {
		return nil, err
	}

	result, err := c.Resolver.Resolve(ctx, resolver.Input{
		EditorVersion: t.EditorVersion,
		Declared:      descriptor.Dependencies,
		LockText:      contents.Lock,
	})
	if err != nil {
		return nil, err
	}

	resolved := descriptor.WithDependencies(result.Dependencies)

	var size int64
	if stat, err := os.Stat(t.Path); err == nil {
		size = stat.Size()
	}

	return &Info{
		Package:       resolved,
		Template:      t,
		Pipelines:     DetectPipelines(resolved.Dependencies),
		DiskSizeBytes: size,
		Excluded:      result.Excluded,
	}, nil
}

// FileNode is one entry of a template's file tree
type FileNode struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	IsDir    bool        `json:"isDir"`
	Children []*FileNode `json:"children,omitempty"`
}

// libraryDir is the editor's generated data; it is never offered for copying
const libraryDir = "ProjectData~/Library"

// isLibraryPath reports whether an archive path lies inside ProjectData~/Library
func isLibraryPath(entryPath string) bool {
	return strings.Contains(entryPath+"/", "/"+libraryDir+"/")
}

// FileTree returns the archive contents as a tree rooted at "package",
// without anything below ProjectData~/Library
func (c *Catalog) FileTree(t Template) (*FileNode, error) {
	archive, err := pkg.OpenArchive(t.Path)
	if err != nil {
		return nil, err
	}
	paths, err := archive.Paths()
	if err != nil {
		return nil, err
	}
	return BuildTree(paths), nil
}

// BuildTree turns archive paths into a sorted tree rooted at "package".
// Intermediate directories missing from the archive are added.
func BuildTree(paths []string) *FileNode {
	root := &FileNode{Name: "package", Path: "package", IsDir: true}
	index := map[string]*FileNode{"package": root}

	for _, entryPath := range paths {
		if isLibraryPath(entryPath) {
			continue
		}
		parts := strings.Split(entryPath, "/")
		if len(parts) == 0 || parts[0] != "package" {
			continue
		}

		parent := root
		for i := 1; i < len(parts); i++ {
			nodePath := strings.Join(parts[:i+1], "/")
			node, ok := index[nodePath]
			if !ok {
				node = &FileNode{Name: parts[i], Path: nodePath}
				index[nodePath] = node
				parent.Children = append(parent.Children, node)
				parent.IsDir = true
			}
			parent = node
		}
	}

	sortTree(root)
	return root
}

func sortTree(node *FileNode) {
	sort.Slice(node.Children, func(i, j int) bool {
		a, b := node.Children[i], node.Children[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		return a.Name < b.Name
	})
	for _, child := range node.Children {
		sortTree(child)
	}
}
