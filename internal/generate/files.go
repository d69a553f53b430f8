package generate

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"
)

// CopyFailure is one file that could not be copied
type CopyFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// CopyReport lists what a best effort copy did. Failures do not abort the
// copy; the caller decides what to make of them.
type CopyReport struct {
	Copied   []string      `json:"copied"`
	Failures []CopyFailure `json:"failures,omitempty"`
}

// OK reports whether every selected file was copied
func (r *CopyReport) OK() bool {
	return len(r.Failures) == 0
}

// selectFiles returns the slash separated paths below root matched by any of
// patterns and by none of excludes, sorted so parents come before children
func selectFiles(root string, patterns, excludes []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid file pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to match %q: %w", pattern, err)
		}
		for _, match := range matches {
			if match == "." || excluded(match, excludes) {
				continue
			}
			seen[match] = true
		}
	}

	selected := make([]string, 0, len(seen))
	for match := range seen {
		selected = append(selected, match)
	}
	sort.Strings(selected)
	return selected, nil
}

func excluded(name string, excludes []string) bool {
	for _, pattern := range excludes {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// copySelected copies every selected path from srcRoot to dstRoot. rename maps
// a selected path to its destination path; paths it maps to "" are skipped.
// Directories are created eagerly. A file that fails to copy is recorded in
// the report and logged.
func copySelected(srcRoot, dstRoot string, selected []string, rename func(string) string, logger *log.Logger) (*CopyReport, error) {
	report := &CopyReport{}

	for _, rel := range selected {
		target := rename(rel)
		if target == "" {
			continue
		}

		src := filepath.Join(srcRoot, filepath.FromSlash(rel))
		dst := filepath.Join(dstRoot, filepath.FromSlash(target))

		info, err := os.Stat(src)
		if err != nil {
			report.Failures = append(report.Failures, CopyFailure{Path: rel, Error: err.Error()})
			logger.Warn("skipping file", "path", rel, "error", err)
			continue
		}

		if info.IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return report, fmt.Errorf("failed to create directory %s: %w", dst, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return report, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(dst), err)
		}
		if err := copyFile(src, dst, info.Mode()); err != nil {
			report.Failures = append(report.Failures, CopyFailure{Path: rel, Error: err.Error()})
			logger.Warn("failed to copy file", "path", rel, "error", err)
			continue
		}
		report.Copied = append(report.Copied, target)
	}

	return report, nil
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// stripPrefix returns a rename func that keeps paths below prefix without it
func stripPrefix(prefix string) func(string) string {
	prefix = strings.TrimSuffix(prefix, "/")
	return func(rel string) string {
		if rel == prefix || !strings.HasPrefix(rel, prefix+"/") {
			return ""
		}
		return strings.TrimPrefix(rel, prefix+"/")
	}
}

// withPrefix returns a rename func that places every path below prefix
func withPrefix(prefix string) func(string) string {
	return func(rel string) string {
		return path.Join(prefix, rel)
	}
}
