package pkg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// Source tells where a locked dependency was resolved from
type Source string

const (
	SourceBuiltin  Source = "builtin"
	SourceRegistry Source = "registry"
	SourceGit      Source = "git"
	SourceLocal    Source = "local"
	SourceEmbedded Source = "embedded"
)

// LockFileName is the lock file kept next to a project manifest
const LockFileName = "packages-lock.json"

// LockFile represents the packages-lock.json file format
type LockFile struct {
	Dependencies map[string]LockedDependency `json:"dependencies"`

	Extra map[string]json.RawMessage `json:"-"`
}

// LockedDependency is a single resolved entry of a lock file. Depth 0 means
// the project requires it directly.
type LockedDependency struct {
	Version      string            `json:"version,omitempty"`
	Depth        uint              `json:"depth"`
	Source       Source            `json:"source,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
	URL          string            `json:"url,omitempty"`
	Hash         string            `json:"hash,omitempty"`
}

// IsDirect reports whether the entry is a non-transitive requirement
func (l LockedDependency) IsDirect() bool {
	return l.Depth == 0
}

// IsPreview reports whether the locked version is a preview release
func (l LockedDependency) IsPreview() bool {
	return strings.Contains(l.Version, "preview")
}

type lockFileFields LockFile

// UnmarshalJSON keeps unknown keys in Extra
func (l *LockFile) UnmarshalJSON(data []byte) error {
	var fields lockFileFields
	extra, err := SplitExtra(data, &fields, "dependencies")
	if err != nil {
		return err
	}
	*l = LockFile(fields)
	l.Extra = extra
	return nil
}

// MarshalJSON writes dependencies plus everything kept in Extra
func (l LockFile) MarshalJSON() ([]byte, error) {
	return MergeExtra(lockFileFields(l), l.Extra)
}

// ParseLockFile parses packages-lock.json text
func ParseLockFile(text string) (*LockFile, error) {
	var lockfile LockFile
	if err := DecodeJSON([]byte(text), &lockfile); err != nil {
		return nil, fmt.Errorf("%s: %w", LockFileName, err)
	}

	if lockfile.Dependencies == nil {
		lockfile.Dependencies = make(map[string]LockedDependency)
	}

	return &lockfile, nil
}

// LockEntry is a lock file dependency together with its name
type LockEntry struct {
	Name string
	LockedDependency
}

// ParseLockEntries returns the dependencies of a lock file in document order.
// A name repeated inside "dependencies" is returned once per occurrence, so
// each occurrence counts as a separate confirmation.
func ParseLockEntries(text string) ([]LockEntry, error) {
	invalid := func(err error) error {
		return fmt.Errorf("%s: %w: %w", LockFileName, ErrInvalidFormat, err)
	}

	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON([]byte(text))))
	if err := expectDelim(dec, '{'); err != nil {
		return nil, invalid(err)
	}

	var entries []LockEntry
	for dec.More() {
		keyToken, err := dec.Token()
		if err != nil {
			return nil, invalid(err)
		}
		if key, _ := keyToken.(string); key != "dependencies" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, invalid(err)
			}
			continue
		}

		token, err := dec.Token()
		if err != nil {
			return nil, invalid(err)
		}
		if token == nil {
			continue
		}
		if delim, ok := token.(json.Delim); !ok || delim != '{' {
			return nil, invalid(fmt.Errorf("dependencies must be an object"))
		}

		for dec.More() {
			nameToken, err := dec.Token()
			if err != nil {
				return nil, invalid(err)
			}
			name, _ := nameToken.(string)

			var entry LockedDependency
			if err := dec.Decode(&entry); err != nil {
				return nil, invalid(fmt.Errorf("%s: %w", name, err))
			}
			entries = append(entries, LockEntry{Name: name, LockedDependency: entry})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, invalid(err)
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, invalid(err)
	}
	return entries, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	token, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := token.(json.Delim); !ok || delim != want {
		return fmt.Errorf("expected %q, got %v", want, token)
	}
	return nil
}

// LoadLockfile reads and parses a lock file. A missing file yields an empty
// lock file.
func LoadLockfile(path string) (*LockFile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &LockFile{
			Dependencies: make(map[string]LockedDependency),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return ParseLockFile(string(data))
}

// SaveLockfile writes the lock file to disk
func (l *LockFile) SaveLockfile(path string) error {
	return WriteJSONFile(path, l)
}

// AddPackage adds or updates a package in the lock file
func (l *LockFile) AddPackage(name string, entry LockedDependency) {
	if l.Dependencies == nil {
		l.Dependencies = make(map[string]LockedDependency)
	}
	if entry.Dependencies == nil {
		entry.Dependencies = make(map[string]string)
	}
	l.Dependencies[name] = entry
}

// GetPackage gets a package from the lock file
func (l *LockFile) GetPackage(name string) (LockedDependency, bool) {
	if l.Dependencies == nil {
		return LockedDependency{}, false
	}
	entry, exists := l.Dependencies[name]
	return entry, exists
}
