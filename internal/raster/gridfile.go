package raster

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/meridian-geo/landcover.report/internal/geo"
)

// gridFile is the serialised form of a MemRaster: a gob stream wrapped in
// gzip, the same blob discipline used for persisted grid snapshots.
type gridFile struct {
	Rows      int
	Cols      int
	Transform geo.Affine
	CRS       string
	Bands     [][]float64
}

// SaveGrid writes the raster to path in the compressed grid format.
func SaveGrid(path string, m *MemRaster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create grid file %s: %w", path, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(gridFile{
		Rows:      m.rows,
		Cols:      m.cols,
		Transform: m.transform,
		CRS:       m.crs,
		Bands:     m.bands,
	}); err != nil {
		gz.Close()
		return fmt.Errorf("encode grid file %s: %w", path, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("close grid stream %s: %w", path, err)
	}
	return f.Sync()
}

// OpenGrid reads a raster previously written by SaveGrid.
func OpenGrid(path string) (*MemRaster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open grid file %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("grid file %s is not gzip: %w", path, err)
	}
	defer gz.Close()

	var gf gridFile
	if err := gob.NewDecoder(gz).Decode(&gf); err != nil {
		return nil, fmt.Errorf("decode grid file %s: %w", path, err)
	}
	return NewMemRasterFrom(gf.Rows, gf.Cols, gf.Bands, gf.Transform, gf.CRS)
}
