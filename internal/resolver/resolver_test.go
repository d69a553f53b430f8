package resolver

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"nomnomhub/internal/cache"
	"nomnomhub/internal/editor"
	"nomnomhub/internal/pkg"
)

const testEditorVersion = "2022.3.10f1"

func boolPtr(b bool) *bool {
	return &b
}

func newTestResolver(catalogs editor.StaticCatalogs) (*Resolver, *cache.MemoryStore) {
	store := cache.NewMemoryStore()
	return New(store, catalogs), store
}

func TestResolveLockPrecedence(t *testing.T) {
	tests := []struct {
		name         string
		declared     map[string]string
		lock         string
		want         map[string]string
		wantExcluded []string
	}{
		{
			name:     "declared only is kept at priority 0",
			declared: map[string]string{"a": "1.0.0"},
			lock:     `{"dependencies": {"z": {"version": "2.0.0", "depth": 1, "dependencies": {}}}}`,
			want:     map[string]string{"a": "1.0.0"},
		},
		{
			name:     "lock version wins over declared",
			declared: map[string]string{"a": "1.0.0"},
			lock:     `{"dependencies": {"a": {"version": "1.2.0", "depth": 0, "dependencies": {}}}}`,
			want:     map[string]string{"a": "1.2.0"},
		},
		{
			name:         "second confirmation drops the dependency",
			declared:     map[string]string{"a": "1.0.0"},
			lock:         `{"dependencies": {"a": {"version": "1.2.0", "depth": 0}, "a": {"version": "1.2.0", "depth": 0}}}`,
			want:         map[string]string{},
			wantExcluded: []string{"a"},
		},
		{
			name:     "lock only entry is added at priority 1",
			declared: map[string]string{},
			lock:     `{"dependencies": {"b": {"version": "3.0.0", "depth": 0, "source": "registry"}}}`,
			want:     map[string]string{"b": "3.0.0"},
		},
		{
			name:     "transitive entries are not candidates",
			declared: nil,
			lock:     `{"dependencies": {"b": {"version": "2.0.0", "depth": 1}}}`,
			want:     map[string]string{},
		},
		{
			name:     "preview versions are not candidates",
			declared: map[string]string{"c": "1.0.0"},
			lock:     `{"dependencies": {"c": {"version": "1.1.0-preview.3", "depth": 0}}}`,
			want:     map[string]string{"c": "1.0.0"},
		},
		{
			name:     "entries without version are not candidates",
			declared: nil,
			lock:     `{"dependencies": {"d": {"depth": 0, "source": "local"}}}`,
			want:     map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResolver(nil)
			result, err := r.Resolve(context.Background(), Input{
				EditorVersion: testEditorVersion,
				Declared:      tt.declared,
				LockText:      tt.lock,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result.Dependencies, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, result.Dependencies)
			}
			if !reflect.DeepEqual(result.Excluded, tt.wantExcluded) {
				t.Errorf("expected excluded %v, got %v", tt.wantExcluded, result.Excluded)
			}
			if result.UsedCatalog {
				t.Error("catalog must not be consulted when a lock file is present")
			}
		})
	}
}

func TestResolveCachesSkippedLockEntries(t *testing.T) {
	r, store := newTestResolver(nil)
	lock := `{"dependencies": {
		"b": {"version": "2.0.0", "depth": 1, "source": "registry", "dependencies": {}},
		"p": {"version": "1.0.0-preview", "depth": 0, "source": "registry", "dependencies": {}}
	}}`

	result, err := r.Resolve(context.Background(), Input{EditorVersion: testEditorVersion, LockText: lock})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Dependencies) != 0 {
		t.Errorf("expected empty final set, got %v", result.Dependencies)
	}

	cached, err := store.Read(testEditorVersion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"b", "p"} {
		if _, ok := cached.Packages[name]; !ok {
			t.Errorf("expected %q in cached packages", name)
		}
	}
	if cached.Packages["b"].Depth != 1 {
		t.Errorf("expected depth to be cached, got %d", cached.Packages["b"].Depth)
	}
}

func TestResolveCacheGrows(t *testing.T) {
	r, store := newTestResolver(nil)
	ctx := context.Background()

	first := `{"dependencies": {"a": {"version": "1.0.0", "depth": 0}}}`
	second := `{"dependencies": {"b": {"version": "2.0.0", "depth": 0}}}`
	for _, lock := range []string{first, second} {
		if _, err := r.Resolve(ctx, Input{EditorVersion: testEditorVersion, LockText: lock}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	cached, err := store.Read(testEditorVersion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cached.Packages) != 2 {
		t.Errorf("expected cache to keep both entries, got %v", cached.Packages)
	}

	other, err := store.Read("2021.3.1f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(other.Packages) != 0 {
		t.Error("cache leaked across editor versions")
	}
}

func TestResolveCatalogFallback(t *testing.T) {
	catalogs := editor.StaticCatalogs{
		testEditorVersion: {
			Packages: map[string]editor.CatalogEntry{
				"ugui":     {IsDiscoverable: boolPtr(true), IsDefault: boolPtr(true), Version: "1.0.0"},
				"timeline": {IsDiscoverable: boolPtr(true), IsDefault: boolPtr(false), Version: "1.7.5"},
				"old":      {IsDiscoverable: boolPtr(true), IsDefault: boolPtr(true), Version: "0.1.0", Deprecated: "gone"},
				"hidden":   {IsDiscoverable: boolPtr(false), IsDefault: boolPtr(true), Version: "1.0.0"},
				"both":     {IsDiscoverable: boolPtr(true), IsDefault: boolPtr(true), Version: "2.0.0"},
			},
		},
	}
	r, store := newTestResolver(catalogs)

	result, err := r.Resolve(context.Background(), Input{
		EditorVersion: testEditorVersion,
		Declared:      map[string]string{"mine": "0.1.0", "both": "1.0.0"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{"mine": "0.1.0", "both": "2.0.0", "ugui": "1.0.0"}
	if !reflect.DeepEqual(result.Dependencies, want) {
		t.Errorf("expected %v, got %v", want, result.Dependencies)
	}
	if !result.UsedCatalog {
		t.Error("expected catalog to be used")
	}

	cached, err := store.Read(testEditorVersion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cached.ManifestPackages) != 5 {
		t.Errorf("expected every catalog entry to be cached, got %d", len(cached.ManifestPackages))
	}
	if len(cached.Packages) != 0 {
		t.Errorf("catalog entries must not be cached as lock entries, got %v", cached.Packages)
	}
}

func TestResolveMissingCatalog(t *testing.T) {
	r, _ := newTestResolver(editor.StaticCatalogs{})

	result, err := r.Resolve(context.Background(), Input{
		EditorVersion: testEditorVersion,
		Declared:      map[string]string{"a": "1.0.0"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(result.Dependencies, map[string]string{"a": "1.0.0"}) {
		t.Errorf("unexpected dependencies %v", result.Dependencies)
	}
	if result.UsedCatalog {
		t.Error("expected UsedCatalog to be false")
	}
}

func TestResolveEmbeddedExcludedFromManifest(t *testing.T) {
	catalogs := editor.StaticCatalogs{
		testEditorVersion: {
			Packages: map[string]editor.CatalogEntry{
				"c": {Source: "embedded"},
			},
		},
	}
	r, _ := newTestResolver(catalogs)

	result, err := r.Resolve(context.Background(), Input{
		EditorVersion: testEditorVersion,
		Declared:      map[string]string{"c": "1.0.0", "d": "2.0.0"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := result.Dependencies["c"]; !ok {
		t.Error("embedded package should still be part of the inspected set")
	}
	manifest := result.ForManifest()
	if _, ok := manifest["c"]; ok {
		t.Error("embedded package must not be written to a manifest")
	}
	if manifest["d"] != "2.0.0" {
		t.Errorf("expected d to survive, got %v", manifest)
	}
	if !reflect.DeepEqual(result.Embedded, []string{"c"}) {
		t.Errorf("expected embedded [c], got %v", result.Embedded)
	}

	packages := result.Packages(true)
	if len(packages) != 1 || packages[0].Name != "d" || packages[0].Type != pkg.PackageTypeDefault {
		t.Errorf("unexpected packages %+v", packages)
	}
}

func TestResolveEmbeddedFromLockSource(t *testing.T) {
	r, _ := newTestResolver(nil)
	lock := `{"dependencies": {"e": {"version": "1.0.0", "depth": 0, "source": "embedded"}}}`

	result, err := r.Resolve(context.Background(), Input{EditorVersion: testEditorVersion, LockText: lock})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.ForManifest()["e"]; ok {
		t.Error("embedded lock entry must not be written to a manifest")
	}
}

func TestResolveInvalidLock(t *testing.T) {
	r, store := newTestResolver(nil)

	_, err := r.Resolve(context.Background(), Input{EditorVersion: testEditorVersion, LockText: `{"dependencies": `})
	if !errors.Is(err, pkg.ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}

	cached, _ := store.Read(testEditorVersion)
	if len(cached.Packages) != 0 {
		t.Error("cache must not change when the lock file is invalid")
	}
}

func TestResolveCancelled(t *testing.T) {
	r, _ := newTestResolver(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Resolve(ctx, Input{EditorVersion: testEditorVersion}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
