package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writePoints(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "points.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write points file: %v", err)
	}
	return path
}

func TestLoadPoints(t *testing.T) {
	path := writePoints(t, `points:
  - name: MG Road
    lat: 12.9758
    lon: 77.6045
  - name: Silk Board
    lat: 12.9177
    lon: 77.6233
`)

	points, err := LoadPoints(path)
	if err != nil {
		t.Fatalf("LoadPoints failed: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].Name != "MG Road" || points[0].Lat != 12.9758 || points[0].Lon != 77.6045 {
		t.Errorf("point[0] = %+v", points[0])
	}
}

func TestLoadPointsMissingFile(t *testing.T) {
	if _, err := LoadPoints(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadPointsInvalidYAML(t *testing.T) {
	path := writePoints(t, "points: [not: valid: yaml")
	if _, err := LoadPoints(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadPointsValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty set", "points: []\n"},
		{"missing name", "points:\n  - lat: 12.9\n    lon: 77.6\n"},
		{"latitude out of range", "points:\n  - name: Bad\n    lat: 112.9\n    lon: 77.6\n"},
		{"longitude out of range", "points:\n  - name: Bad\n    lat: 12.9\n    lon: 200.1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writePoints(t, tc.content)
			if _, err := LoadPoints(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
