package raster

import (
	"fmt"

	"github.com/meridian-geo/landcover.report/internal/geo"
)

// Raster is an opened, read-only multi-band raster. Implementations must
// support arbitrary rectangular windowed reads; reads are strictly
// sequential and never concurrent within a run.
type Raster interface {
	// Rows returns the raster height in pixels.
	Rows() int
	// Cols returns the raster width in pixels.
	Cols() int
	// Bands returns the number of channels.
	Bands() int
	// Transform returns the pixel-to-world affine transform.
	Transform() geo.Affine
	// CRS returns the coordinate reference identifier, e.g. "EPSG:32633".
	CRS() string
	// ReadWindow reads all bands for the given window. The result is
	// band-major: result[b][r*w.Cols+c] is the value of band b at pixel
	// (w.Row+r, w.Col+c). The returned slices are owned by the caller.
	ReadWindow(w geo.Window) ([][]float64, error)
	// Close releases the handle. Reads after Close are undefined.
	Close() error
}

// MemRaster holds a full raster in memory, band-major. It backs both the
// on-disk grid format and synthetic rasters in tests.
type MemRaster struct {
	rows, cols int
	bands      [][]float64
	transform  geo.Affine
	crs        string
	closed     bool
}

// NewMemRaster allocates a zero-filled raster of the given shape.
func NewMemRaster(rows, cols, bands int, tr geo.Affine, crs string) (*MemRaster, error) {
	if rows <= 0 || cols <= 0 || bands <= 0 {
		return nil, fmt.Errorf("invalid raster shape %dx%dx%d", bands, rows, cols)
	}
	data := make([][]float64, bands)
	for b := range data {
		data[b] = make([]float64, rows*cols)
	}
	return &MemRaster{rows: rows, cols: cols, bands: data, transform: tr, crs: crs}, nil
}

// NewMemRasterFrom wraps existing band-major data without copying. Each band
// slice must have rows*cols elements.
func NewMemRasterFrom(rows, cols int, bands [][]float64, tr geo.Affine, crs string) (*MemRaster, error) {
	if rows <= 0 || cols <= 0 || len(bands) == 0 {
		return nil, fmt.Errorf("invalid raster shape %dx%dx%d", len(bands), rows, cols)
	}
	for b, d := range bands {
		if len(d) != rows*cols {
			return nil, fmt.Errorf("band %d has %d values, want %d", b, len(d), rows*cols)
		}
	}
	return &MemRaster{rows: rows, cols: cols, bands: bands, transform: tr, crs: crs}, nil
}

func (m *MemRaster) Rows() int             { return m.rows }
func (m *MemRaster) Cols() int             { return m.cols }
func (m *MemRaster) Bands() int            { return len(m.bands) }
func (m *MemRaster) Transform() geo.Affine { return m.transform }
func (m *MemRaster) CRS() string           { return m.crs }

// Set writes a single pixel value. Used by the grid loader and by the
// synthetic raster generator; the classification engine itself never writes.
func (m *MemRaster) Set(band, row, col int, v float64) {
	m.bands[band][row*m.cols+col] = v
}

// ReadWindow implements Raster.
func (m *MemRaster) ReadWindow(w geo.Window) ([][]float64, error) {
	if m.closed {
		return nil, fmt.Errorf("read on closed raster")
	}
	if !w.Valid() || w.Row+w.Rows > m.rows || w.Col+w.Cols > m.cols {
		return nil, fmt.Errorf("%v outside raster %dx%d", w, m.rows, m.cols)
	}
	out := make([][]float64, len(m.bands))
	for b := range m.bands {
		dst := make([]float64, w.Pixels())
		for r := 0; r < w.Rows; r++ {
			src := m.bands[b][(w.Row+r)*m.cols+w.Col:]
			copy(dst[r*w.Cols:(r+1)*w.Cols], src[:w.Cols])
		}
		out[b] = dst
	}
	return out, nil
}

// Close implements Raster.
func (m *MemRaster) Close() error {
	m.closed = true
	return nil
}
