package rasterize

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/meridian-geo/landcover.report/internal/geo"
	"github.com/meridian-geo/landcover.report/internal/monitoring"
	"github.com/meridian-geo/landcover.report/internal/vector"
)

const (
	// DefaultChunkRows and DefaultChunkCols size the fallback chunks.
	DefaultChunkRows = 1000
	DefaultChunkCols = 1000

	// DefaultMemoryBudgetBytes bounds the transient working set of the
	// direct path before the chunked fallback engages.
	DefaultMemoryBudgetBytes = 256 << 20
)

// Rasterizer burns polygons into class masks. The zero value is not usable;
// call New.
type Rasterizer struct {
	ChunkRows         int
	ChunkCols         int
	MemoryBudgetBytes int
}

// New returns a Rasterizer with default chunk size and memory budget.
func New() *Rasterizer {
	return &Rasterizer{
		ChunkRows:         DefaultChunkRows,
		ChunkCols:         DefaultChunkCols,
		MemoryBudgetBytes: DefaultMemoryBudgetBytes,
	}
}

// WithChunkSize sets the fallback chunk extent.
func (rz *Rasterizer) WithChunkSize(rows, cols int) *Rasterizer {
	rz.ChunkRows = rows
	rz.ChunkCols = cols
	return rz
}

// WithMemoryBudget sets the transient-memory budget for the direct path.
func (rz *Rasterizer) WithMemoryBudget(bytes int) *Rasterizer {
	rz.MemoryBudgetBytes = bytes
	return rz
}

// Rasterize produces a rows x cols mask with value label inside the regions
// and 0 elsewhere. An empty region list yields an all-zero mask.
func (rz *Rasterizer) Rasterize(regions []vector.Region, label uint8, rows, cols int, tr geo.Affine) ([]uint8, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid mask extent %dx%d", rows, cols)
	}
	if label == 0 {
		return nil, fmt.Errorf("label 0 is reserved for background")
	}

	mask := make([]uint8, rows*cols)
	if len(regions) == 0 {
		return mask, nil
	}

	if rz.directEstimateBytes(regions, cols) <= rz.MemoryBudgetBytes {
		if ok := rz.tryDirect(mask, regions, label, rows, cols, tr); ok {
			return mask, nil
		}
		// direct pass aborted on allocation failure; mask may hold a
		// partial burn, start over chunked
		clear(mask)
		monitoring.Logf("[Rasterizer] direct pass aborted, falling back to %dx%d chunks", rz.ChunkRows, rz.ChunkCols)
	}

	if err := rz.rasterizeChunked(mask, regions, label, rows, cols, tr); err != nil {
		return nil, err
	}
	return mask, nil
}

// directEstimateBytes approximates the transient working set of the direct
// path: pixel-space copies of every ring plus the per-row crossing buffer.
func (rz *Rasterizer) directEstimateBytes(regions []vector.Region, cols int) int {
	vertices := 0
	for _, reg := range regions {
		for _, ring := range reg.Geometry {
			vertices += len(ring)
		}
	}
	// two float64 per vertex, one float64 per potential crossing
	return vertices*16 + cols*8
}

// tryDirect runs the direct single-pass burn, reporting false when the pass
// aborts on a runtime allocation failure.
func (rz *Rasterizer) tryDirect(mask []uint8, regions []vector.Region, label uint8, rows, cols int, tr geo.Affine) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("[Rasterizer] direct rasterization panicked: %v", r)
			ok = false
		}
	}()
	for _, reg := range regions {
		rings, err := ringsToPixels(reg.Geometry, tr)
		if err != nil {
			continue // unresolvable geometry contributes nothing
		}
		burnPolygon(mask, rows, cols, rings, label)
	}
	return true
}

// rasterizeChunked partitions the extent into chunks, rasterizes each chunk
// against its chunk-local transform, and merges results by element-wise max.
func (rz *Rasterizer) rasterizeChunked(mask []uint8, regions []vector.Region, label uint8, rows, cols int, tr geo.Affine) error {
	chunkRows := rz.ChunkRows
	chunkCols := rz.ChunkCols
	if chunkRows <= 0 || chunkCols <= 0 {
		return fmt.Errorf("invalid chunk size %dx%d", chunkRows, chunkCols)
	}

	for _, w := range geo.Tiles(rows, cols, chunkRows, chunkCols) {
		local := tr.ShiftOrigin(w.Row, w.Col)
		bound := windowBound(w, tr)

		var chunk []uint8
		for _, reg := range regions {
			if !reg.Geometry.Bound().Intersects(bound) {
				continue
			}
			rings, err := ringsToPixels(reg.Geometry, local)
			if err != nil {
				continue
			}
			if chunk == nil {
				chunk = make([]uint8, w.Pixels())
			}
			burnPolygon(chunk, w.Rows, w.Cols, rings, label)
		}
		if chunk == nil {
			continue
		}
		for r := 0; r < w.Rows; r++ {
			dst := mask[(w.Row+r)*cols+w.Col:]
			src := chunk[r*w.Cols:]
			for c := 0; c < w.Cols; c++ {
				if src[c] > dst[c] {
					dst[c] = src[c]
				}
			}
		}
	}
	return nil
}

// Merge combines a class mask into the accumulated multi-class mask by
// set-if-nonzero assignment: wherever src is nonzero it overwrites dst, so
// later-merged classes win at overlaps.
func Merge(dst, src []uint8) {
	for i, v := range src {
		if v != 0 {
			dst[i] = v
		}
	}
}

// pixelPoint is a ring vertex in fractional pixel coordinates.
type pixelPoint struct {
	row float64
	col float64
}

// ringsToPixels converts every ring of a polygon to pixel space under the
// given transform.
func ringsToPixels(poly orb.Polygon, tr geo.Affine) ([][]pixelPoint, error) {
	rings := make([][]pixelPoint, 0, len(poly))
	for _, ring := range poly {
		pts := make([]pixelPoint, len(ring))
		for i, p := range ring {
			row, col, err := tr.WorldToPixel(p.X(), p.Y())
			if err != nil {
				return nil, err
			}
			pts[i] = pixelPoint{row: row, col: col}
		}
		rings = append(rings, pts)
	}
	return rings, nil
}

// burnPolygon fills the polygon into the mask using even-odd scanline
// crossing at pixel centres. Holes are interior rings and cancel out via the
// even-odd rule.
func burnPolygon(mask []uint8, rows, cols int, rings [][]pixelPoint, label uint8) {
	crossings := make([]float64, 0, 16)
	for r := 0; r < rows; r++ {
		y := float64(r) + 0.5
		crossings = crossings[:0]
		for _, ring := range rings {
			n := len(ring)
			if n < 3 {
				continue
			}
			for i := 0; i < n; i++ {
				p1 := ring[i]
				p2 := ring[(i+1)%n]
				// half-open rule so shared vertices count once
				if (p1.row <= y && y < p2.row) || (p2.row <= y && y < p1.row) {
					t := (y - p1.row) / (p2.row - p1.row)
					crossings = append(crossings, p1.col+t*(p2.col-p1.col))
				}
			}
		}
		if len(crossings) < 2 {
			continue
		}
		sort.Float64s(crossings)
		for k := 0; k+1 < len(crossings); k += 2 {
			// pixel centre c+0.5 inside [x0, x1)
			c0 := int(math.Ceil(crossings[k] - 0.5))
			c1 := int(math.Ceil(crossings[k+1] - 0.5))
			if c0 < 0 {
				c0 = 0
			}
			if c1 > cols {
				c1 = cols
			}
			for c := c0; c < c1; c++ {
				mask[r*cols+c] = label
			}
		}
	}
}

// windowBound returns the world-space bound of a pixel window, valid for
// rotated transforms as well since all four corners are considered.
func windowBound(w geo.Window, tr geo.Affine) orb.Bound {
	corners := [4][2]float64{
		{float64(w.Row), float64(w.Col)},
		{float64(w.Row), float64(w.Col + w.Cols)},
		{float64(w.Row + w.Rows), float64(w.Col)},
		{float64(w.Row + w.Rows), float64(w.Col + w.Cols)},
	}
	x0, y0 := tr.PixelToWorld(corners[0][0], corners[0][1])
	b := orb.Bound{Min: orb.Point{x0, y0}, Max: orb.Point{x0, y0}}
	for _, c := range corners[1:] {
		x, y := tr.PixelToWorld(c[0], c[1])
		b = b.Extend(orb.Point{x, y})
	}
	return b
}
