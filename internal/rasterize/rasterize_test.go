package rasterize

import (
	"bytes"
	"testing"

	"github.com/paulmach/orb"

	"github.com/meridian-geo/landcover.report/internal/geo"
	"github.com/meridian-geo/landcover.report/internal/vector"
)

// identity transform: world (x, y) == pixel (col, row)
var identity = geo.Affine{PixelWidth: 1, PixelHeight: 1}

func poly(coords ...[2]float64) orb.Polygon {
	ring := make(orb.Ring, 0, len(coords)+1)
	for _, c := range coords {
		ring = append(ring, orb.Point{c[0], c[1]})
	}
	ring = append(ring, ring[0]) // close
	return orb.Polygon{ring}
}

func regions(label uint8, polys ...orb.Polygon) []vector.Region {
	out := make([]vector.Region, len(polys))
	for i, p := range polys {
		out[i] = vector.Region{Label: label, Geometry: p}
	}
	return out
}

func TestRasterizeSquare(t *testing.T) {
	regs := regions(5, poly([2]float64{1, 1}, [2]float64{4, 1}, [2]float64{4, 3}, [2]float64{1, 3}))

	mask, err := New().Rasterize(regs, 5, 5, 6, identity)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}

	for r := 0; r < 5; r++ {
		for c := 0; c < 6; c++ {
			inside := r >= 1 && r < 3 && c >= 1 && c < 4
			want := uint8(0)
			if inside {
				want = 5
			}
			if mask[r*6+c] != want {
				t.Fatalf("pixel (%d,%d) = %d, want %d", r, c, mask[r*6+c], want)
			}
		}
	}
}

func TestRasterizeHole(t *testing.T) {
	outer := orb.Ring{{0, 0}, {6, 0}, {6, 6}, {0, 6}, {0, 0}}
	inner := orb.Ring{{2, 2}, {4, 2}, {4, 4}, {2, 4}, {2, 2}}
	regs := []vector.Region{{Label: 1, Geometry: orb.Polygon{outer, inner}}}

	mask, err := New().Rasterize(regs, 1, 6, 6, identity)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if mask[0] != 1 {
		t.Fatalf("corner pixel should be filled")
	}
	if mask[3*6+3] != 0 {
		t.Fatalf("hole pixel should be empty")
	}
}

func TestRasterizeEmptyRegions(t *testing.T) {
	mask, err := New().Rasterize(nil, 2, 4, 4, identity)
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if !bytes.Equal(mask, make([]uint8, 16)) {
		t.Fatalf("expected all-zero mask")
	}
}

func TestRasterizeRejectsBackgroundLabel(t *testing.T) {
	if _, err := New().Rasterize(nil, 0, 4, 4, identity); err == nil {
		t.Fatalf("label 0 must be rejected")
	}
}

// TestChunkedMatchesDirect is the correctness property of the fallback: for
// identical inputs the chunked path must produce a pixel-identical mask, for
// chunk sizes that divide the extent and sizes that do not.
func TestChunkedMatchesDirect(t *testing.T) {
	const rows, cols = 16, 16
	regs := regions(7,
		poly([2]float64{1, 1}, [2]float64{9, 1}, [2]float64{9, 6}, [2]float64{1, 6}),
		// triangle with fractional vertices spanning several chunks
		poly([2]float64{2.25, 8.5}, [2]float64{14.75, 9.25}, [2]float64{8.5, 15.5}),
		// sliver along the right edge
		poly([2]float64{15, 0}, [2]float64{16, 0}, [2]float64{16, 16}, [2]float64{15, 16}),
	)

	direct, err := New().Rasterize(regs, 7, rows, cols, identity)
	if err != nil {
		t.Fatalf("direct: %v", err)
	}

	for _, chunk := range [][2]int{{4, 4}, {8, 8}, {16, 16}, {3, 5}, {7, 16}, {1, 1}, {5, 13}} {
		rz := New().WithChunkSize(chunk[0], chunk[1]).WithMemoryBudget(0)
		chunked, err := rz.Rasterize(regs, 7, rows, cols, identity)
		if err != nil {
			t.Fatalf("chunked %v: %v", chunk, err)
		}
		if !bytes.Equal(direct, chunked) {
			for i := range direct {
				if direct[i] != chunked[i] {
					t.Fatalf("chunk %v: first mismatch at pixel (%d,%d): direct=%d chunked=%d",
						chunk, i/cols, i%cols, direct[i], chunked[i])
				}
			}
		}
	}
}

func TestChunkedWithNorthUpTransform(t *testing.T) {
	// world square from (30,30) to (150,150) on a 30m north-up grid maps
	// to a 4x4 pixel block offset one pixel from each edge
	tr := geo.NorthUp(0, 180, 30)
	regs := regions(2, poly([2]float64{30, 30}, [2]float64{150, 30}, [2]float64{150, 150}, [2]float64{30, 150}))

	direct, err := New().Rasterize(regs, 2, 6, 6, tr)
	if err != nil {
		t.Fatalf("direct: %v", err)
	}
	chunked, err := New().WithChunkSize(4, 3).WithMemoryBudget(0).Rasterize(regs, 2, 6, 6, tr)
	if err != nil {
		t.Fatalf("chunked: %v", err)
	}
	if !bytes.Equal(direct, chunked) {
		t.Fatalf("chunked mask differs from direct under north-up transform")
	}

	filled := 0
	for _, v := range direct {
		if v == 2 {
			filled++
		}
	}
	if filled != 16 {
		t.Fatalf("got %d filled pixels, want 16", filled)
	}
}

func TestMergeSetIfNonzero(t *testing.T) {
	dst := []uint8{0, 1, 1, 0}
	src := []uint8{2, 0, 2, 0}
	Merge(dst, src)

	want := []uint8{2, 1, 2, 0}
	if !bytes.Equal(dst, want) {
		t.Fatalf("Merge = %v, want %v", dst, want)
	}
	// invariant: merged pixel nonzero iff some input was nonzero there
	if dst[3] != 0 {
		t.Fatalf("pixel with no class should stay background")
	}
}
