package security

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

const (
	// MaxTextLength caps free-form template metadata such as descriptions
	MaxTextLength = 4096
)

// ValidateEntryPath checks an archive entry path for traversal and other
// path-based attacks before it is joined onto extractDir.
func ValidateEntryPath(entryPath, extractDir string) error {
	// Reject absolute paths (check both Unix and Windows style)
	if filepath.IsAbs(entryPath) || strings.HasPrefix(entryPath, "/") || strings.HasPrefix(entryPath, "\\") {
		return fmt.Errorf("absolute paths not allowed")
	}

	for _, part := range strings.FieldsFunc(entryPath, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return fmt.Errorf("path traversal attempt detected")
		}
	}

	fullPath := filepath.Clean(filepath.Join(extractDir, entryPath))
	root := filepath.Clean(extractDir)
	if fullPath != root && !strings.HasPrefix(fullPath, root+string(filepath.Separator)) {
		return fmt.Errorf("path escapes extraction directory")
	}

	for _, r := range entryPath {
		if r < 32 || r == 127 {
			return fmt.Errorf("control characters in path not allowed")
		}
	}

	return nil
}

// TextSanitizer strips markup from user supplied template metadata before it
// is written into a package descriptor.
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer creates a sanitizer that allows no HTML at all
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize removes markup, trims whitespace and caps the length
func (s *TextSanitizer) Sanitize(text string) string {
	// StrictPolicy escapes entities; descriptors hold plain text
	clean := strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
	if len(clean) > MaxTextLength {
		clean = clean[:MaxTextLength]
		for !utf8.ValidString(clean) {
			clean = clean[:len(clean)-1]
		}
	}
	return clean
}

// ValidatePackageName checks a template package name such as
// "com.company.template.mytemplate".
func ValidatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if name != strings.ToLower(name) {
		return fmt.Errorf("name must be lowercase")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
		default:
			return fmt.Errorf("name contains invalid character %q", r)
		}
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("name cannot start or end with a dot")
	}
	return nil
}
