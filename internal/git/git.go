// Package git reads the package.json of a package that lives in a git
// repository, so it can be offered as a git dependency.
package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"nomnomhub/internal/pkg"
)

// TempDir is the clone directory below the cache dir
const TempDir = "temp-git"

// Source is a git package reference: <url>[?path=<dir>][#<ref>]
type Source struct {
	URL  string
	Path string
	Ref  string
}

// ParseURL splits a git dependency value into its parts. The ref follows '#'
// and the package directory inside the repository follows "?path=".
func ParseURL(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	var src Source

	if i := strings.Index(raw, "#"); i >= 0 {
		src.Ref = raw[i+1:]
		raw = raw[:i]
	}
	if i := strings.Index(raw, "?path="); i >= 0 {
		src.Path = strings.Trim(raw[i+len("?path="):], "/")
		raw = raw[:i]
	}
	src.URL = raw

	if src.URL == "" {
		return Source{}, pkg.NewError(pkg.ErrInvalidFormat, "git url is required")
	}
	if strings.Contains(src.Path, "..") {
		return Source{}, pkg.NewError(pkg.ErrInvalidFormat, "git package path must stay inside the repository").With("path", src.Path)
	}
	return src, nil
}

// String reassembles the dependency value
func (s Source) String() string {
	out := s.URL
	if s.Path != "" {
		out += "?path=" + s.Path
	}
	if s.Ref != "" {
		out += "#" + s.Ref
	}
	return out
}

// Fetcher clones repositories into a scratch directory to read descriptors
type Fetcher struct {
	// CacheDir holds the temp-git clone directory
	CacheDir string
	// Token authenticates against private https remotes
	Token  string
	Logger *log.Logger
}

// NewFetcher creates a fetcher. A nil logger discards output.
func NewFetcher(cacheDir, token string, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Fetcher{CacheDir: cacheDir, Token: token, Logger: logger}
}

// Package clones raw and returns its descriptor together with the package
// entry a manifest would carry for it
func (f *Fetcher) Package(ctx context.Context, raw string) (*pkg.PackageDescriptor, pkg.MinimalPackage, error) {
	src, err := ParseURL(raw)
	if err != nil {
		return nil, pkg.MinimalPackage{}, err
	}

	descriptor, err := f.FetchDescriptor(ctx, src)
	if err != nil {
		return nil, pkg.MinimalPackage{}, err
	}
	if descriptor.Name == "" {
		return nil, pkg.MinimalPackage{}, pkg.NewError(pkg.ErrInvalidFormat, "git package has no name").With("url", src.URL)
	}

	return descriptor, pkg.MinimalPackage{
		Name:    descriptor.Name,
		Version: src.String(),
		Type:    pkg.PackageTypeGit,
	}, nil
}

// FetchDescriptor shallow clones src and reads <path>/package.json. The clone
// is removed afterwards.
func (f *Fetcher) FetchDescriptor(ctx context.Context, src Source) (*pkg.PackageDescriptor, error) {
	cloneDir := filepath.Join(f.CacheDir, TempDir)
	if err := os.RemoveAll(cloneDir); err != nil {
		return nil, fmt.Errorf("failed to clear clone directory: %w", err)
	}
	if err := os.MkdirAll(cloneDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create clone directory: %w", err)
	}
	defer os.RemoveAll(cloneDir)

	f.Logger.Debug("cloning git package", "url", src.URL, "ref", src.Ref)
	if err := f.clone(ctx, cloneDir, src); err != nil {
		return nil, err
	}

	descriptorPath := filepath.Join(cloneDir, filepath.FromSlash(src.Path), "package.json")
	descriptor, err := pkg.LoadDescriptor(descriptorPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read package.json from %s: %w", src.URL, err)
	}
	return descriptor, nil
}

// clone tries ref as a branch first and then as a tag
func (f *Fetcher) clone(ctx context.Context, dir string, src Source) error {
	opts := &gogit.CloneOptions{
		URL:   src.URL,
		Depth: 1,
		Auth:  f.auth(src.URL),
	}
	if src.Ref == "" {
		_, err := gogit.PlainCloneContext(ctx, dir, false, opts)
		return cloneError(src, err)
	}

	opts.SingleBranch = true
	opts.ReferenceName = plumbing.NewBranchReferenceName(src.Ref)
	_, err := gogit.PlainCloneContext(ctx, dir, false, opts)
	if err == nil || !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return cloneError(src, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	opts.ReferenceName = plumbing.NewTagReferenceName(src.Ref)
	_, err = gogit.PlainCloneContext(ctx, dir, false, opts)
	return cloneError(src, err)
}

func cloneError(src Source, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, transport.ErrAuthenticationRequired) {
		return pkg.NewError(pkg.ErrExternalProcess, "authentication required to clone git package").With("url", src.URL)
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return pkg.NewError(pkg.ErrNotFound, "git ref not found").With("url", src.URL).With("ref", src.Ref)
	}
	return pkg.NewError(pkg.ErrExternalProcess, fmt.Sprintf("failed to clone repository: %v", err)).With("url", src.URL)
}

// auth returns basic auth for https remotes when a token is configured
func (f *Fetcher) auth(url string) transport.AuthMethod {
	if f.Token == "" || !strings.HasPrefix(url, "https://") {
		return nil
	}

	username := "token"
	switch {
	case strings.Contains(url, "gitlab.com"):
		username = "oauth2"
	case strings.Contains(url, "bitbucket.org"):
		username = "x-token-auth"
	}

	return &http.BasicAuth{
		Username: username,
		Password: f.Token,
	}
}
