package manifest

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"nomnomhub/internal/pkg"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestParseKeepsOtherKeys(t *testing.T) {
	text := `{
		"dependencies": {"com.unity.ugui": "1.0.0"},
		"scopedRegistries": [{"name": "acme", "url": "https://npm.acme.dev", "scopes": ["com.acme"]}],
		"testables": ["com.unity.ugui"]
	}`

	m, err := Parse(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Extra) != 2 {
		t.Fatalf("expected 2 extra keys, got %v", m.Extra)
	}

	m.Dependencies = map[string]string{"com.unity.timeline": "1.7.5"}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := out["scopedRegistries"]; !ok {
		t.Error("scopedRegistries was dropped")
	}
	if !strings.Contains(string(out["dependencies"]), "com.unity.timeline") {
		t.Errorf("unexpected dependencies %s", out["dependencies"])
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse(`{"dependencies": []}`)
	if !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("expected ErrInvalidManifest, got %v", err)
	}
	if !errors.Is(err, pkg.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestWriteReplacesDependencies(t *testing.T) {
	projectRoot := t.TempDir()
	packagesDir := filepath.Join(projectRoot, "Packages")
	writeFile(t, filepath.Join(packagesDir, FileName), `{
		"dependencies": {"com.unity.old": "0.0.1"},
		"enableLockFile": true
	}`)
	writeFile(t, filepath.Join(packagesDir, pkg.LockFileName), `{"dependencies": {}}`)

	packages := []pkg.MinimalPackage{
		{Name: "com.unity.ugui", Version: "1.0.0", Type: pkg.PackageTypeDefault},
		{Name: "com.unity.timeline", Version: "1.7.5", Type: pkg.PackageTypeInternal},
		{Name: "com.acme.tool", Version: "https://git.acme.dev/tool.git#v2", Type: pkg.PackageTypeGit},
		{Name: "com.unity.embedded", Version: "1.0.0", Type: pkg.PackageTypeDefault},
	}

	m, err := Write(packagesDir, packages, WriteOptions{
		ProjectRoot: projectRoot,
		IsEmbedded:  func(name string) bool { return name == "com.unity.embedded" },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"com.unity.ugui":     "1.0.0",
		"com.unity.timeline": "1.7.5",
		"com.acme.tool":      "https://git.acme.dev/tool.git#v2",
	}
	if !reflect.DeepEqual(m.Dependencies, want) {
		t.Errorf("expected %v, got %v", want, m.Dependencies)
	}

	if _, err := os.Stat(filepath.Join(packagesDir, pkg.LockFileName)); !os.IsNotExist(err) {
		t.Error("expected stale lock file to be removed")
	}

	onDisk, err := Load(filepath.Join(packagesDir, FileName))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(onDisk.Dependencies, want) {
		t.Errorf("expected %v on disk, got %v", want, onDisk.Dependencies)
	}
	if string(onDisk.Extra["enableLockFile"]) != "true" {
		t.Errorf("expected enableLockFile to be preserved, got %v", onDisk.Extra)
	}
}

func TestWriteCreatesManifest(t *testing.T) {
	projectRoot := t.TempDir()
	packagesDir := filepath.Join(projectRoot, "Packages")

	_, err := Write(packagesDir, []pkg.MinimalPackage{{Name: "a", Version: "1.0.0"}}, WriteOptions{ProjectRoot: projectRoot})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(packagesDir, FileName))
	if err != nil {
		t.Fatalf("expected manifest to be created: %v", err)
	}
	if !strings.Contains(string(data), "\n  \"dependencies\"") {
		t.Errorf("expected pretty printed JSON, got %s", data)
	}
}

func TestWriteLocalPackages(t *testing.T) {
	root := t.TempDir()
	projectRoot := filepath.Join(root, "projects", "game")
	packagesDir := filepath.Join(projectRoot, "Packages")

	sharedDescriptor := filepath.Join(root, "shared", "my-tools", "package.json")
	writeFile(t, sharedDescriptor, `{"name": "com.me.tools", "version": "0.3.0"}`)

	packages := []pkg.MinimalPackage{
		{Name: sharedDescriptor, Version: "0.3.0", Type: pkg.PackageTypeLocal},
	}

	m, err := Write(packagesDir, packages, WriteOptions{ProjectRoot: projectRoot})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := m.Dependencies["com.me.tools"]
	want := "file:../../../shared/my-tools"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if !IsLocal(got) || strings.Contains(got, "\\") {
		t.Errorf("local dependency must be a forward slash file: reference, got %q", got)
	}
	if _, ok := m.Dependencies[sharedDescriptor]; ok {
		t.Error("descriptor path must not be used as the dependency name")
	}
}

func TestWriteLocalPackageMissingDescriptor(t *testing.T) {
	projectRoot := t.TempDir()
	packages := []pkg.MinimalPackage{
		{Name: filepath.Join(projectRoot, "nope", "package.json"), Type: pkg.PackageTypeLocal},
	}

	_, err := Write(filepath.Join(projectRoot, "Packages"), packages, WriteOptions{ProjectRoot: projectRoot})
	if !errors.Is(err, ErrInvalidLocalPackage) {
		t.Errorf("expected ErrInvalidLocalPackage, got %v", err)
	}
	if !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("expected ErrNotFound in chain, got %v", err)
	}
}

func TestLocalDependency(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		name       string
		packageDir string
		want       string
	}{
		{name: "inside Packages", packageDir: filepath.Join(root, "Packages", "com.me.a"), want: "file:com.me.a"},
		{name: "sibling of project", packageDir: filepath.Join(filepath.Dir(root), "libs", "b"), want: "file:../../libs/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalDependency(root, tt.packageDir)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTemplateRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Templates", RegistryFileName)

	registry, err := LoadTemplateRegistry(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	registry.Register("2022.3.10f1", "com.me.template.a", "1.0.0")
	registry.Register("2022.3.10f1", "com.me.template.b", "2.0.0")
	if err := registry.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadTemplateRegistry(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !loaded.Contains("2022.3.10f1", "com.me.template.a") {
		t.Error("expected template a to be registered")
	}
	if loaded.Contains("2021.3.1f1", "com.me.template.a") {
		t.Error("registration leaked across editor versions")
	}

	if !loaded.Unregister("2022.3.10f1", "com.me.template.a") {
		t.Error("expected Unregister to report removal")
	}
	if loaded.Unregister("2022.3.10f1", "com.me.template.a") {
		t.Error("expected second Unregister to be a no-op")
	}
	if loaded["2022.3.10f1"].Dependencies["com.me.template.b"] != "2.0.0" {
		t.Error("unrelated template was removed")
	}
}

func TestTemplateRegistryKeepsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), RegistryFileName)
	writeFile(t, path, `{"2022.3.10f1": {"dependencies": {"a": "1.0.0"}, "hubVersion": "3.4.2"}}`)

	registry, err := LoadTemplateRegistry(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	registry.Register("2022.3.10f1", "b", "1.0.0")
	if err := registry.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "hubVersion") {
		t.Errorf("expected hubVersion to survive, got %s", data)
	}
}

func TestCustomTemplates(t *testing.T) {
	path := filepath.Join(t.TempDir(), CustomFileName)

	custom, err := LoadCustomTemplates(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := TemplateID("com.me.template.a", "1.0.0")
	custom.Add(id)
	custom.Add(id)
	custom.Add(TemplateID("com.me.template.b", "1.0.0"))
	if err := custom.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadCustomTemplates(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"com.me.template.a-1.0.0", "com.me.template.b-1.0.0"}
	if !reflect.DeepEqual(loaded.Templates, want) {
		t.Errorf("expected %v, got %v", want, loaded.Templates)
	}

	loaded.Remove(id)
	if loaded.Contains(id) {
		t.Error("expected id to be removed")
	}

	empty, err := json.Marshal(&CustomTemplates{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(empty) != `{"templates":[]}` {
		t.Errorf("expected empty list to encode as [], got %s", empty)
	}
}
