package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/meridian-geo/landcover.report/internal/config"
	"github.com/meridian-geo/landcover.report/internal/geo"
	"github.com/meridian-geo/landcover.report/internal/raster"
	"github.com/meridian-geo/landcover.report/internal/store"
)

func ptrInt(v int) *int          { return &v }
func ptrInt64(v int64) *int64    { return &v }
func ptrString(v string) *string { return &v }

// testRaster is 20x20, two bands, split down the middle: columns 0-9
// read (10, 5), columns 10-19 read (100, 50).
func testRaster(t *testing.T) *raster.MemRaster {
	t.Helper()
	tr := geo.NorthUp(0, 20, 1)
	r, err := raster.NewMemRaster(20, 20, 2, tr, "EPSG:32633")
	if err != nil {
		t.Fatalf("NewMemRaster: %v", err)
	}
	for row := 0; row < 20; row++ {
		for col := 0; col < 20; col++ {
			if col < 10 {
				r.Set(0, row, col, 10)
				r.Set(1, row, col, 5)
			} else {
				r.Set(0, row, col, 100)
				r.Set(1, row, col, 50)
			}
		}
	}
	return r
}

func writeGeoJSON(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const leftHalf = `{
	"type": "FeatureCollection",
	"features": [{
		"type": "Feature",
		"properties": {},
		"geometry": {
			"type": "Polygon",
			"coordinates": [[[0,0],[10,0],[10,20],[0,20],[0,0]]]
		}
	}]
}`

const rightHalf = `{
	"type": "FeatureCollection",
	"features": [{
		"type": "Feature",
		"properties": {},
		"geometry": {
			"type": "Polygon",
			"coordinates": [[[10,0],[20,0],[20,20],[10,20],[10,0]]]
		}
	}]
}`

func testConfig(t *testing.T, dir string) *config.RunConfig {
	t.Helper()
	cfg := &config.RunConfig{
		RasterPath: "mem://scene",
		Classes: []config.ClassConfig{
			{Name: "water", Label: 1, GeoJSON: writeGeoJSON(t, dir, "water.geojson", leftHalf), Mandatory: true},
			{Name: "urban", Label: 2, GeoJSON: writeGeoJSON(t, dir, "urban.geojson", rightHalf), Color: "#ff7f0e"},
		},
		Classifier: ptrString("centroid"),
		Seed:       ptrInt64(7),
		TileRows:   ptrInt(8),
		TileCols:   ptrInt(8),
		OutputDir:  ptrString(filepath.Join(dir, "out")),
		RetryDelay: ptrString("1ms"),
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func memOpener(r *raster.MemRaster) func(string) (raster.Raster, error) {
	return func(string) (raster.Raster, error) { return r, nil }
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	res, err := New(cfg).WithRasterOpener(memOpener(testRaster(t))).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.RunID == "" {
		t.Error("expected run id")
	}
	if res.Rows != 20 || res.Cols != 20 || res.Bands != 2 {
		t.Errorf("unexpected dimensions: %dx%d/%d", res.Rows, res.Cols, res.Bands)
	}
	if res.Accuracy != 1.0 {
		t.Errorf("expected perfect hold-out accuracy on separable data, got %f", res.Accuracy)
	}
	if res.SampleCounts[1] != 200 || res.SampleCounts[2] != 200 {
		t.Errorf("unexpected sample counts: %v", res.SampleCounts)
	}
	if res.ClassShares[1] != 0.5 || res.ClassShares[2] != 0.5 {
		t.Errorf("unexpected class shares: %v", res.ClassShares)
	}

	for name, path := range map[string]string{
		"labels":    res.LabelPath,
		"georef":    res.GeoRefPath,
		"stats":     res.StatsPath,
		"confusion": res.ConfusionPath,
		"plot":      res.PlotPath,
		"report":    res.ReportPath,
	} {
		if path == "" {
			t.Errorf("missing %s path", name)
			continue
		}
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s artifact not written: %v", name, err)
		}
	}
}

func TestOptionalClassFailureIsSkipped(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Classes[1].GeoJSON = filepath.Join(dir, "missing.geojson")

	res, err := New(cfg).WithRasterOpener(memOpener(testRaster(t))).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.SampleCounts[2] != 0 {
		t.Errorf("expected zero samples for failed class, got %d", res.SampleCounts[2])
	}
	if res.SampleCounts[1] != 200 {
		t.Errorf("expected surviving class samples, got %d", res.SampleCounts[1])
	}
}

func TestMandatoryClassFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Classes[0].GeoJSON = filepath.Join(dir, "missing.geojson")

	if _, err := New(cfg).WithRasterOpener(memOpener(testRaster(t))).Run(); err == nil {
		t.Fatal("expected fatal error for mandatory class without samples")
	}
}

func TestBackgroundSampling(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	// Shrink water to the left quarter so columns 5-9 are uncovered.
	cfg.Classes[0].GeoJSON = writeGeoJSON(t, dir, "quarter.geojson", `{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"properties": {},
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[0,0],[5,0],[5,20],[0,20],[0,0]]]
			}
		}]
	}`)
	cfg.BackgroundLabel = ptrInt(3)

	res, err := New(cfg).WithRasterOpener(memOpener(testRaster(t))).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.SampleCounts[3] != 100 {
		t.Errorf("expected 100 background samples from uncovered columns, got %d", res.SampleCounts[3])
	}
}

func TestRunRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	st, err := store.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	if err := st.MigrateUp("../store/migrations"); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	res, err := New(cfg).WithStore(st).WithRasterOpener(memOpener(testRaster(t))).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	rec, err := st.Get(res.RunID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Classifier != "centroid" || rec.Accuracy != res.Accuracy {
		t.Errorf("unexpected record: %+v", rec)
	}
	if rec.LabelPath != res.LabelPath {
		t.Errorf("label path mismatch: %s vs %s", rec.LabelPath, res.LabelPath)
	}
}
