package version

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    *Version
		wantErr bool
	}{
		{
			name:    "final release",
			version: "2022.3.10f1",
			want:    &Version{Major: 2022, Minor: 3, Patch: 10, Stream: "f", Revision: 1},
			wantErr: false,
		},
		{
			name:    "beta release",
			version: "2023.1.0b16",
			want:    &Version{Major: 2023, Minor: 1, Patch: 0, Stream: "b", Revision: 16},
			wantErr: false,
		},
		{
			name:    "legacy style version",
			version: "6000.0.23f1",
			want:    &Version{Major: 6000, Minor: 0, Patch: 23, Stream: "f", Revision: 1},
			wantErr: false,
		},
		{
			name:    "no stream suffix",
			version: "2021.3.4",
			want:    &Version{Major: 2021, Minor: 3, Patch: 4},
			wantErr: false,
		},
		{
			name:    "empty string",
			version: "",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "invalid format - two parts",
			version: "2022.3",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "invalid format - four parts",
			version: "2022.3.1.1",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "invalid major version",
			version: "a.3.1f1",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "invalid minor version",
			version: "2022.b.1f1",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "missing patch",
			version: "2022.3.f1",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "missing revision",
			version: "2022.3.1f",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "unknown stream",
			version: "2022.3.1z1",
			want:    nil,
			wantErr: true,
		},
		{
			name:    "negative patch version",
			version: "2022.3.-1f1",
			want:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.version)
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && *got != *tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestVersion_String(t *testing.T) {
	tests := []struct {
		name    string
		version *Version
		want    string
	}{
		{
			name:    "final release",
			version: &Version{Major: 2022, Minor: 3, Patch: 10, Stream: "f", Revision: 1},
			want:    "2022.3.10f1",
		},
		{
			name:    "no stream",
			version: &Version{Major: 2021, Minor: 3, Patch: 4},
			want:    "2021.3.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.version.String(); got != tt.want {
				t.Errorf("Version.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVersion_Compare(t *testing.T) {
	tests := []struct {
		name     string
		version1 string
		version2 string
		want     int
	}{
		{name: "equal", version1: "2022.3.10f1", version2: "2022.3.10f1", want: 0},
		{name: "newer year", version1: "2023.1.0f1", version2: "2022.3.10f1", want: 1},
		{name: "older minor", version1: "2022.2.0f1", version2: "2022.3.0f1", want: -1},
		{name: "patch compares numerically", version1: "2022.3.10f1", version2: "2022.3.9f1", want: 1},
		{name: "revision compares numerically", version1: "2022.3.1f10", version2: "2022.3.1f2", want: 1},
		{name: "beta before final", version1: "2022.3.1b4", version2: "2022.3.1f1", want: -1},
		{name: "alpha before beta", version1: "2022.3.1a9", version2: "2022.3.1b1", want: -1},
		{name: "patch release after final", version1: "2022.3.1p1", version2: "2022.3.1f3", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v1, err := Parse(tt.version1)
			if err != nil {
				t.Fatalf("Parse(%s) failed: %v", tt.version1, err)
			}
			v2, err := Parse(tt.version2)
			if err != nil {
				t.Fatalf("Parse(%s) failed: %v", tt.version2, err)
			}

			if got := v1.Compare(v2); got != tt.want {
				t.Errorf("Version.Compare() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompareVersions(t *testing.T) {
	got, err := CompareVersions("2021.3.4f1", "2022.1.0f1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != -1 {
		t.Errorf("expected -1, got %d", got)
	}

	if _, err := CompareVersions("nope", "2022.1.0f1"); err == nil {
		t.Error("expected error for invalid version1")
	}
	if _, err := CompareVersions("2022.1.0f1", "nope"); err == nil {
		t.Error("expected error for invalid version2")
	}
}

func TestIsValidVersion(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"2022.3.10f1", true},
		{"2021.3.4", true},
		{"1.2", false},
		{"latest", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			if got := IsValidVersion(tt.version); got != tt.want {
				t.Errorf("IsValidVersion(%q) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

func TestMajorMinor(t *testing.T) {
	if got := MajorMinor("2022.3.10f1"); got != "2022.3" {
		t.Errorf("expected %q, got %q", "2022.3", got)
	}
	if got := MajorMinor("custom"); got != "custom" {
		t.Errorf("expected %q, got %q", "custom", got)
	}
}

func TestSortDescending(t *testing.T) {
	versions := []string{"2021.3.4f1", "broken", "2022.3.10f1", "2022.3.9f1", "2022.3.10b2"}
	SortDescending(versions)

	want := []string{"2022.3.10f1", "2022.3.10b2", "2022.3.9f1", "2021.3.4f1", "broken"}
	if !reflect.DeepEqual(versions, want) {
		t.Errorf("expected %v, got %v", want, versions)
	}
}
