package pkg

import (
	"archive/tar"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"nomnomhub/internal/security"
)

// Well known entry paths inside a template archive
const (
	DescriptorEntry = "package/package.json"
	ManifestEntry   = "package/ProjectData~/Packages/manifest.json"
	LockEntryPath   = "package/ProjectData~/Packages/packages-lock.json"
)

// ErrStopWalk can be returned from a WalkFunc to end a walk early without error
var ErrStopWalk = errors.New("stop walk")

// ArchiveInfo contains information about a created archive
type ArchiveInfo struct {
	Path      string
	SHA256    string
	SizeBytes int64
}

// Entry is a single member of an archive. Content is only readable during the
// WalkFunc call that received it.
type Entry struct {
	Path    string
	IsDir   bool
	Size    int64
	Content io.Reader
}

// WalkFunc is called for every entry in archive order
type WalkFunc func(entry Entry) error

// Archive is a gzip compressed tar file on disk
type Archive struct {
	path string
}

// OpenArchive checks that path points at a readable archive file
func OpenArchive(archivePath string) (*Archive, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidArchive, archivePath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidArchive, archivePath)
	}
	return &Archive{path: archivePath}, nil
}

// Path returns the archive location on disk
func (a *Archive) Path() string {
	return a.path
}

// Walk streams every entry through fn without extracting anything
func (a *Archive) Walk(fn WalkFunc) error {
	file, err := os.Open(a.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("%w: failed to create gzip reader: %w", ErrInvalidArchive, err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read tar header: %w", ErrInvalidArchive, err)
		}

		entry := Entry{
			Path:    normalizeEntryPath(header.Name),
			IsDir:   header.Typeflag == tar.TypeDir,
			Size:    header.Size,
			Content: tarReader,
		}
		if entry.Path == "" {
			continue
		}

		if err := fn(entry); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			return err
		}
	}
}

// Find returns the text content of the named entries. Names are exact
// relative paths such as "package/package.json"; missing names are absent
// from the result. The walk stops as soon as every name has been found.
func (a *Archive) Find(names ...string) (map[string]string, error) {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[normalizeEntryPath(name)] = true
	}

	found := make(map[string]string, len(names))
	err := a.Walk(func(entry Entry) error {
		if entry.IsDir || !wanted[entry.Path] {
			return nil
		}

		data, err := io.ReadAll(entry.Content)
		if err != nil {
			return fmt.Errorf("%w: failed to read %s: %w", ErrInvalidArchive, entry.Path, err)
		}
		found[entry.Path] = string(data)

		if len(found) == len(wanted) {
			return ErrStopWalk
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return found, nil
}

// Paths lists every entry path in archive order
func (a *Archive) Paths() ([]string, error) {
	var paths []string
	err := a.Walk(func(entry Entry) error {
		paths = append(paths, entry.Path)
		return nil
	})
	return paths, err
}

// ExtractTo extracts the whole archive into destDir. Any existing destDir is
// removed first.
func (a *Archive) ExtractTo(destDir string) error {
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", destDir, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	return a.Walk(func(entry Entry) error {
		if err := extractEntry(entry, destDir); err != nil {
			return fmt.Errorf("%w: failed to extract %s: %w", ErrInvalidArchive, entry.Path, err)
		}
		return nil
	})
}

// extractEntry writes a single entry below destDir
func extractEntry(entry Entry, destDir string) error {
	if err := security.ValidateEntryPath(entry.Path, destDir); err != nil {
		return err
	}

	destPath := filepath.Join(destDir, filepath.FromSlash(entry.Path))
	if entry.IsDir {
		return os.MkdirAll(destPath, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	outFile, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	_, err = io.Copy(outFile, entry.Content)
	return err
}

// normalizeEntryPath turns "./package/x/" into "package/x"
func normalizeEntryPath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	cleaned := path.Clean(name)
	cleaned = strings.TrimPrefix(cleaned, "./")
	if cleaned == "." || cleaned == "/" {
		return ""
	}
	return cleaned
}

// Pack creates a tar.gz archive of everything below srcDir. Entry names are
// relative to srcDir and always use forward slashes.
func Pack(srcDir, outputPath string) (*ArchiveInfo, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}
	defer outFile.Close()

	hasher := sha256.New()
	multiWriter := io.MultiWriter(outFile, hasher)

	gzWriter := gzip.NewWriter(multiWriter)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	err = filepath.WalkDir(srcDir, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if filePath == srcDir {
			return nil
		}

		rel, err := filepath.Rel(srcDir, filePath)
		if err != nil {
			return err
		}
		return addFileToArchive(tarWriter, filePath, filepath.ToSlash(rel))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", srcDir, err)
	}

	// Close writers to flush data before calculating hash
	if err := tarWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish gzip stream: %w", err)
	}
	if err := outFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	return &ArchiveInfo{
		Path:      outputPath,
		SHA256:    fmt.Sprintf("%x", hasher.Sum(nil)),
		SizeBytes: info.Size(),
	}, nil
}

// addFileToArchive adds a single file or directory to the tar archive
func addFileToArchive(tarWriter *tar.Writer, filePath, name string) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name
	if info.IsDir() {
		header.Name += "/"
	}

	if err := tarWriter.WriteHeader(header); err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(tarWriter, file)
	return err
}
