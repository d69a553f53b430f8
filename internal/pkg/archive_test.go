package pkg

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// writeTestArchive writes a gzip tar with the given entries; names ending in
// "/" become directories.
func writeTestArchive(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzWriter)

	for name, content := range files {
		header := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if name[len(name)-1] == '/' {
			header = &tar.Header{Name: name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header: %v", err)
		}
		if header.Typeflag == tar.TypeReg {
			if _, err := tarWriter.Write([]byte(content)); err != nil {
				t.Fatalf("failed to write content: %v", err)
			}
		}
	}
	if err := tarWriter.Close(); err != nil {
		t.Fatalf("failed to close tar: %v", err)
	}
	if err := gzWriter.Close(); err != nil {
		t.Fatalf("failed to close gzip: %v", err)
	}

	archivePath := filepath.Join(dir, "com.unity.template.test-1.0.0.tgz")
	if err := os.WriteFile(archivePath, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
	return archivePath
}

func TestOpenArchive(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("missing archive is invalid", func(t *testing.T) {
		_, err := OpenArchive(filepath.Join(tempDir, "nope.tgz"))
		if !errors.Is(err, ErrInvalidArchive) {
			t.Errorf("expected ErrInvalidArchive, got %v", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist in chain, got %v", err)
		}
	})

	t.Run("directory is invalid", func(t *testing.T) {
		_, err := OpenArchive(tempDir)
		if !errors.Is(err, ErrInvalidArchive) {
			t.Errorf("expected ErrInvalidArchive, got %v", err)
		}
	})

	t.Run("corrupt gzip is invalid", func(t *testing.T) {
		bad := filepath.Join(tempDir, "bad.tgz")
		if err := os.WriteFile(bad, []byte("definitely not gzip"), 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}

		archive, err := OpenArchive(bad)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = archive.Find(DescriptorEntry)
		if !errors.Is(err, ErrInvalidArchive) {
			t.Errorf("expected ErrInvalidArchive, got %v", err)
		}
		if !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("expected ErrInvalidFormat in chain, got %v", err)
		}
	})
}

func TestArchiveFind(t *testing.T) {
	tempDir := t.TempDir()
	archivePath := writeTestArchive(t, tempDir, map[string]string{
		"package/":             "",
		"package/package.json": `{"name":"com.unity.template.test"}`,
		"./package/ProjectData~/Packages/packages-lock.json": `{"dependencies":{}}`,
		"package/ProjectData~/Assets/readme.txt":             "hello",
	})

	archive, err := OpenArchive(archivePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("finds requested entries", func(t *testing.T) {
		found, err := archive.Find(DescriptorEntry, LockEntryPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found[DescriptorEntry] != `{"name":"com.unity.template.test"}` {
			t.Errorf("unexpected descriptor: %q", found[DescriptorEntry])
		}
		if found[LockEntryPath] != `{"dependencies":{}}` {
			t.Errorf("unexpected lock: %q", found[LockEntryPath])
		}
	})

	t.Run("missing entries are absent", func(t *testing.T) {
		found, err := archive.Find(ManifestEntry)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := found[ManifestEntry]; ok {
			t.Error("expected manifest entry to be absent")
		}
	})

	t.Run("lists normalized paths", func(t *testing.T) {
		paths, err := archive.Paths()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := map[string]bool{
			"package":       true,
			DescriptorEntry: true,
			LockEntryPath:   true,
			"package/ProjectData~/Assets/readme.txt": true,
		}
		if len(paths) != len(want) {
			t.Fatalf("expected %d paths, got %v", len(want), paths)
		}
		for _, p := range paths {
			if !want[p] {
				t.Errorf("unexpected path %q", p)
			}
		}
	})
}

func TestArchiveExtractTo(t *testing.T) {
	tempDir := t.TempDir()
	archivePath := writeTestArchive(t, tempDir, map[string]string{
		"package/package.json":                  `{"name":"x"}`,
		"package/ProjectData~/Assets/readme.txt": "hello",
	})

	archive, err := OpenArchive(archivePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	destDir := filepath.Join(tempDir, "out")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		t.Fatalf("failed to create dest: %v", err)
	}
	stale := filepath.Join(destDir, "stale.txt")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("failed to write stale file: %v", err)
	}

	if err := archive.ExtractTo(destDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("expected existing destination contents to be replaced")
	}

	content, err := os.ReadFile(filepath.Join(destDir, "package", "ProjectData~", "Assets", "readme.txt"))
	if err != nil {
		t.Fatalf("failed to read extracted file: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("expected %q, got %q", "hello", string(content))
	}
}

func TestArchiveExtractRejectsTraversal(t *testing.T) {
	tempDir := t.TempDir()
	archivePath := writeTestArchive(t, tempDir, map[string]string{
		"../escape.txt": "bad",
	})

	archive, err := OpenArchive(archivePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = archive.ExtractTo(filepath.Join(tempDir, "out"))
	if !errors.Is(err, ErrInvalidArchive) {
		t.Errorf("expected ErrInvalidArchive, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "escape.txt")); !os.IsNotExist(err) {
		t.Error("entry escaped the extraction directory")
	}
}

func TestPackRoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	srcDir := filepath.Join(tempDir, "src")

	testFiles := map[string]string{
		"package/package.json":                          `{"name":"com.me.template.a"}`,
		"package/ProjectData~/Packages/manifest.json":   `{"dependencies":{}}`,
		"package/ProjectData~/Assets/Scenes/Main.unity": "scene",
	}
	for path, content := range testFiles {
		fullPath := filepath.Join(srcDir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			t.Fatalf("failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}

	info, err := Pack(srcDir, filepath.Join(tempDir, "dist", "com.me.template.a-1.0.0.tgz"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(info.SHA256) != 64 {
		t.Errorf("expected SHA256 length 64, got %d", len(info.SHA256))
	}
	if info.SizeBytes <= 0 {
		t.Errorf("expected positive size, got %d", info.SizeBytes)
	}

	data, err := os.ReadFile(info.Path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash := fmt.Sprintf("%x", sha256.Sum256(data)); hash != info.SHA256 {
		t.Errorf("hash mismatch: %s != %s", hash, info.SHA256)
	}

	archive, err := OpenArchive(info.Path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found, err := archive.Find(DescriptorEntry, ManifestEntry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found[DescriptorEntry] != testFiles[DescriptorEntry] {
		t.Errorf("descriptor mismatch: %q", found[DescriptorEntry])
	}
	if found[ManifestEntry] != testFiles[ManifestEntry] {
		t.Errorf("manifest mismatch: %q", found[ManifestEntry])
	}
}
