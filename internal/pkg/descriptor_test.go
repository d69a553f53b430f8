package pkg

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDescriptorKeepsUnknownKeys(t *testing.T) {
	text := `{
		// hand edited
		"name": "com.unity.template.3d",
		"version": "8.1.0",
		"dependencies": {"com.unity.ugui": "1.0.0"},
		"_upm": {"changelog": "fixes"},
		"repository": {"type": "git"},
	}`

	d, err := ParseDescriptor(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name != "com.unity.template.3d" {
		t.Errorf("expected name %q, got %q", "com.unity.template.3d", d.Name)
	}
	if d.Dependencies["com.unity.ugui"] != "1.0.0" {
		t.Errorf("expected ugui 1.0.0, got %q", d.Dependencies["com.unity.ugui"])
	}
	if len(d.Extra) != 2 {
		t.Fatalf("expected 2 extra keys, got %v", d.Extra)
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"name", "version", "dependencies", "_upm", "repository"} {
		if _, ok := out[key]; !ok {
			t.Errorf("expected key %q in output", key)
		}
	}
}

func TestParseDescriptorInvalid(t *testing.T) {
	_, err := ParseDescriptor(`{"name": `)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestDescriptorValidate(t *testing.T) {
	tests := []struct {
		name       string
		descriptor PackageDescriptor
		wantErr    bool
	}{
		{name: "complete", descriptor: PackageDescriptor{Name: "a", Version: "1.0.0"}, wantErr: false},
		{name: "missing name", descriptor: PackageDescriptor{Version: "1.0.0"}, wantErr: true},
		{name: "missing version", descriptor: PackageDescriptor{Name: "a"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.descriptor.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestWithDependenciesCopies(t *testing.T) {
	original := &PackageDescriptor{
		Name:         "a",
		Dependencies: map[string]string{"x": "1.0.0"},
	}

	updated := original.WithDependencies(map[string]string{"y": "2.0.0"})

	if _, ok := original.Dependencies["y"]; ok {
		t.Error("original descriptor was mutated")
	}
	if updated.Dependencies["y"] != "2.0.0" {
		t.Errorf("expected y 2.0.0, got %q", updated.Dependencies["y"])
	}
	if _, ok := updated.Dependencies["x"]; ok {
		t.Error("expected dependencies to be replaced")
	}
}

func TestDescriptorSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	d := &PackageDescriptor{
		Name:        "com.me.template.a",
		Version:     "1.0.0",
		Type:        TemplateType,
		Host:        TemplateHost,
		FromProject: true,
	}
	if err := d.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), `"fromProject": true`) {
		t.Errorf("expected fromProject in output, got %s", data)
	}

	loaded, err := LoadDescriptor(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Name != d.Name || !loaded.FromProject || loaded.Host != TemplateHost {
		t.Errorf("unexpected descriptor: %+v", loaded)
	}

	if _, err := LoadDescriptor(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestParseLockFile(t *testing.T) {
	text := `{
		"dependencies": {
			"com.unity.ugui": {"version": "1.0.0", "depth": 0, "source": "builtin", "dependencies": {}},
			"com.unity.modules.ui": {"version": "1.0.0", "depth": 1, "source": "builtin", "dependencies": {}},
			"com.unity.render-pipelines.universal": {"version": "14.0.0-preview.1", "depth": 0, "source": "registry", "dependencies": {}, "url": "https://packages.unity.com"}
		},
		"generator": "hub"
	}`

	lock, err := ParseLockFile(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lock.Dependencies) != 3 {
		t.Fatalf("expected 3 dependencies, got %d", len(lock.Dependencies))
	}

	ugui, ok := lock.GetPackage("com.unity.ugui")
	if !ok || !ugui.IsDirect() || ugui.IsPreview() || ugui.Source != SourceBuiltin {
		t.Errorf("unexpected ugui entry: %+v", ugui)
	}

	urp, _ := lock.GetPackage("com.unity.render-pipelines.universal")
	if !urp.IsPreview() {
		t.Error("expected preview version to be detected")
	}
	if urp.URL != "https://packages.unity.com" {
		t.Errorf("expected url, got %q", urp.URL)
	}

	modules, _ := lock.GetPackage("com.unity.modules.ui")
	if modules.IsDirect() {
		t.Error("expected depth 1 entry to be transitive")
	}

	if _, ok := lock.Extra["generator"]; !ok {
		t.Error("expected unknown top level key to be kept")
	}
}

func TestParseLockFileEmptyAndInvalid(t *testing.T) {
	lock, err := ParseLockFile(`{}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lock.Dependencies == nil {
		t.Error("expected non-nil dependencies map")
	}

	if _, err := ParseLockFile(`{"dependencies": [}`); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestLockfileSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFileName)

	missing, err := LoadLockfile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(missing.Dependencies) != 0 {
		t.Errorf("expected empty lock file, got %v", missing.Dependencies)
	}

	lock := &LockFile{}
	lock.AddPackage("com.unity.ugui", LockedDependency{Version: "1.0.0", Source: SourceBuiltin})
	if err := lock.SaveLockfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := LoadLockfile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, ok := loaded.GetPackage("com.unity.ugui")
	if !ok {
		t.Fatal("expected com.unity.ugui in lock file")
	}
	if entry.Version != "1.0.0" || entry.Dependencies == nil {
		t.Errorf("unexpected entry: %+v", entry)
	}
}
