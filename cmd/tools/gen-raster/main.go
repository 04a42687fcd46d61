// Command gen-raster generates a synthetic multiband raster (plus
// matching training GeoJSON and a run config) for exercising the
// classification pipeline without real imagery.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/meridian-geo/landcover.report/internal/geo"
	"github.com/meridian-geo/landcover.report/internal/raster"
)

func main() {
	dir := flag.String("o", "testdata", "output directory")
	rows := flag.Int("rows", 512, "raster rows")
	cols := flag.Int("cols", 512, "raster columns")
	bands := flag.Int("bands", 4, "raster bands")
	seed := flag.Int64("seed", 1, "noise seed")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("failed to create %s: %v", *dir, err)
	}

	nRows, nCols, nBands := *rows, *cols, *bands
	tr := geo.NorthUp(500000, 5200000, 30)
	r, err := raster.NewMemRaster(nRows, nCols, nBands, tr, "EPSG:32633")
	if err != nil {
		log.Fatalf("failed to allocate raster: %v", err)
	}

	// Three vertical strips with distinct spectral signatures plus
	// per-pixel noise: water on the left, forest in the middle, urban
	// on the right.
	signatures := [][]float64{
		{320, 410, 280, 120},
		{450, 520, 380, 2400},
		{1100, 1250, 1300, 1600},
	}
	rng := rand.New(rand.NewSource(*seed))
	for row := 0; row < nRows; row++ {
		for col := 0; col < nCols; col++ {
			sig := signatures[col*3/nCols]
			for b := 0; b < nBands; b++ {
				base := sig[b%len(sig)]
				r.Set(b, row, col, base+rng.NormFloat64()*base*0.05)
			}
		}
	}

	gridPath := filepath.Join(*dir, "scene.grid")
	if err := raster.SaveGrid(gridPath, r); err != nil {
		log.Fatalf("failed to save raster: %v", err)
	}
	log.Printf("wrote %s (%dx%d, %d bands)", gridPath, nRows, nCols, nBands)

	// Training polygons sit inside each strip, margins keep them away
	// from strip boundaries.
	third := float64(nCols) / 3
	classes := []struct {
		name  string
		label int
		color string
		lo    float64
		hi    float64
	}{
		{"water", 1, "#1f77b4", third * 0.2, third * 0.8},
		{"forest", 2, "#2ca02c", third + third*0.2, third + third*0.8},
		{"urban", 3, "#d62728", 2*third + third*0.2, 2*third + third*0.8},
	}

	for _, cls := range classes {
		path := filepath.Join(*dir, cls.name+".geojson")
		if err := os.WriteFile(path, []byte(stripPolygon(tr, cls.lo, cls.hi, nRows)), 0o644); err != nil {
			log.Fatalf("failed to write %s: %v", path, err)
		}
		log.Printf("wrote %s", path)
	}

	cfgPath := filepath.Join(*dir, "run.json")
	cfg := fmt.Sprintf(`{
  "raster_path": %q,
  "classes": [
    {"name": "water", "label": 1, "geojson": %q, "color": "#1f77b4", "mandatory": true},
    {"name": "forest", "label": 2, "geojson": %q, "color": "#2ca02c", "mandatory": true},
    {"name": "urban", "label": 3, "geojson": %q, "color": "#d62728"}
  ],
  "seed": 42,
  "output_dir": %q
}
`, gridPath,
		filepath.Join(*dir, "water.geojson"),
		filepath.Join(*dir, "forest.geojson"),
		filepath.Join(*dir, "urban.geojson"),
		filepath.Join(*dir, "out"))
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		log.Fatalf("failed to write %s: %v", cfgPath, err)
	}
	log.Printf("wrote %s", cfgPath)
}

// stripPolygon renders a full-height vertical strip between pixel
// columns lo and hi as a single-feature GeoJSON collection in world
// coordinates.
func stripPolygon(tr geo.Affine, lo, hi float64, rows int) string {
	x0, yTop := tr.OriginX+lo*tr.PixelWidth, tr.OriginY
	x1 := tr.OriginX + hi*tr.PixelWidth
	yBot := tr.OriginY + float64(rows)*tr.PixelHeight

	return fmt.Sprintf(`{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {},
    "geometry": {
      "type": "Polygon",
      "coordinates": [[[%f,%f],[%f,%f],[%f,%f],[%f,%f],[%f,%f]]]
    }
  }]
}
`, x0, yBot, x1, yBot, x1, yTop, x0, yTop, x0, yBot)
}
