package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `{
	"raster_path": "scene.grid",
	"classes": [
		{"name": "water", "label": 1, "geojson": "water.geojson"}
	]
}`

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.RasterPath != "scene.grid" {
		t.Errorf("unexpected raster path %q", cfg.RasterPath)
	}
	if cfg.GetClassifier() != "knn" {
		t.Errorf("expected default classifier knn, got %q", cfg.GetClassifier())
	}
	if cfg.GetNeighbors() != 5 {
		t.Errorf("expected default 5 neighbors, got %d", cfg.GetNeighbors())
	}
	if cfg.GetSampleCap() != 50000 {
		t.Errorf("expected default sample cap, got %d", cfg.GetSampleCap())
	}
	if cfg.GetTileRows() != 200 || cfg.GetTileCols() != 200 {
		t.Errorf("expected default tile size, got %dx%d", cfg.GetTileRows(), cfg.GetTileCols())
	}
	if cfg.GetMemoryBudgetBytes() != 256<<20 {
		t.Errorf("expected default memory budget, got %d", cfg.GetMemoryBudgetBytes())
	}
	if cfg.GetRetryDelay() != time.Second {
		t.Errorf("expected default retry delay, got %v", cfg.GetRetryDelay())
	}
	if cfg.GetTrainFraction() != 0.8 {
		t.Errorf("expected default train fraction, got %f", cfg.GetTrainFraction())
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"raster_path": "scene.grid",
		"classes": [
			{"name": "water", "label": 1, "geojson": "water.geojson", "mandatory": true},
			{"name": "urban", "label": 2, "geojson": "urban.geojson", "color": "#ff7f0e"}
		],
		"classifier": "centroid",
		"sample_cap": 100,
		"seed": 42,
		"tile_rows": 64,
		"retry_delay": "250ms"
	}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.GetClassifier() != "centroid" {
		t.Errorf("unexpected classifier %q", cfg.GetClassifier())
	}
	if cfg.GetSampleCap() != 100 {
		t.Errorf("unexpected sample cap %d", cfg.GetSampleCap())
	}
	if cfg.GetSeed() != 42 {
		t.Errorf("unexpected seed %d", cfg.GetSeed())
	}
	if cfg.GetTileRows() != 64 {
		t.Errorf("unexpected tile rows %d", cfg.GetTileRows())
	}
	if cfg.GetRetryDelay() != 250*time.Millisecond {
		t.Errorf("unexpected retry delay %v", cfg.GetRetryDelay())
	}
	if !cfg.Classes[0].Mandatory || cfg.Classes[1].Mandatory {
		t.Error("mandatory flags not preserved")
	}

	names := cfg.ClassNames()
	if names[1] != "water" || names[2] != "urban" {
		t.Errorf("unexpected class names: %v", names)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing raster", `{"classes": [{"name": "a", "label": 1, "geojson": "a.geojson"}]}`},
		{"no classes", `{"raster_path": "s.grid", "classes": []}`},
		{"label zero", `{"raster_path": "s.grid", "classes": [{"name": "a", "label": 0, "geojson": "a.geojson"}]}`},
		{"label too large", `{"raster_path": "s.grid", "classes": [{"name": "a", "label": 256, "geojson": "a.geojson"}]}`},
		{"duplicate labels", `{"raster_path": "s.grid", "classes": [
			{"name": "a", "label": 1, "geojson": "a.geojson"},
			{"name": "b", "label": 1, "geojson": "b.geojson"}]}`},
		{"missing geojson", `{"raster_path": "s.grid", "classes": [{"name": "a", "label": 1}]}`},
		{"bad classifier", `{"raster_path": "s.grid", "classes": [{"name": "a", "label": 1, "geojson": "a.geojson"}], "classifier": "forest"}`},
		{"bad train fraction", `{"raster_path": "s.grid", "classes": [{"name": "a", "label": 1, "geojson": "a.geojson"}], "train_fraction": 1.5}`},
		{"bad retry delay", `{"raster_path": "s.grid", "classes": [{"name": "a", "label": 1, "geojson": "a.geojson"}], "retry_delay": "fast"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected extension error")
	}
}
