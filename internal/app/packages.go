package app

import (
	"path/filepath"
	"strings"

	"nomnomhub/internal/pkg"
)

// ParsePackage reads a package argument. "<name>@<version>" names a registry
// package, a version that looks like a git url makes it a git package and a
// path to a package.json makes it a local package.
func ParsePackage(arg string) (pkg.MinimalPackage, error) {
	arg = strings.TrimSpace(arg)
	if filepath.Base(arg) == "package.json" {
		absPath, err := filepath.Abs(arg)
		if err != nil {
			return pkg.MinimalPackage{}, err
		}
		if !pkg.Exists(absPath) {
			return pkg.MinimalPackage{}, pkg.NewError(pkg.ErrNotFound, "local package does not exist").With("path", absPath)
		}
		descriptor, err := pkg.LoadDescriptor(absPath)
		if err != nil {
			return pkg.MinimalPackage{}, err
		}
		return pkg.MinimalPackage{Name: absPath, Version: descriptor.Version, Type: pkg.PackageTypeLocal}, nil
	}

	name, version, ok := strings.Cut(arg, "@")
	if !ok || name == "" || version == "" {
		return pkg.MinimalPackage{}, pkg.NewError(pkg.ErrInvalidFormat, "package must be <name>@<version> or a path to package.json").With("package", arg)
	}

	packageType := pkg.PackageTypeDefault
	if isGitVersion(version) {
		packageType = pkg.PackageTypeGit
	}
	return pkg.MinimalPackage{Name: name, Version: version, IsDiscoverable: true, Type: packageType}, nil
}

func isGitVersion(version string) bool {
	return strings.HasPrefix(version, "git") ||
		strings.HasPrefix(version, "https://") ||
		strings.HasPrefix(version, "ssh://") ||
		strings.Contains(version, ".git")
}
