// Package sample draws bounded, batched training samples from raster pixels
// selected by a class mask or an explicit coordinate list.
//
// Randomness is never global: every sampling call takes the run's
// *rand.Rand so subset selection is reproducible for a fixed seed
// independent of call order elsewhere in the process.
package sample

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/meridian-geo/landcover.report/internal/geo"
	"github.com/meridian-geo/landcover.report/internal/raster"
)

const (
	// DefaultCap bounds the number of pixels drawn per class.
	DefaultCap = 50000
	// DefaultBatchSize bounds the transient read buffer. Batching exists
	// purely to bound memory; reads stay strictly sequential.
	DefaultBatchSize = 1000
)

// Coord is a pixel position as (row, col).
type Coord struct {
	Row int
	Col int
}

// Sampler extracts per-pixel feature vectors from an opened raster.
type Sampler struct {
	Cap       int
	BatchSize int
}

// NewSampler returns a Sampler with default cap and batch size.
func NewSampler() *Sampler {
	return &Sampler{Cap: DefaultCap, BatchSize: DefaultBatchSize}
}

// MaskCoords returns the coordinates of every mask pixel equal to label, in
// row-major order.
func MaskCoords(mask []uint8, label uint8, cols int) []Coord {
	var coords []Coord
	for i, v := range mask {
		if v == label {
			coords = append(coords, Coord{Row: i / cols, Col: i % cols})
		}
	}
	return coords
}

// SampleMask samples up to Cap pixels whose mask value equals label. The
// returned matrix has one row per valid pixel and raster-band-count columns;
// zero matching or zero valid pixels is not an error and yields an empty
// result.
func (s *Sampler) SampleMask(r raster.Raster, mask []uint8, label uint8, rng *rand.Rand) ([][]float64, []int, error) {
	if len(mask) != r.Rows()*r.Cols() {
		return nil, nil, fmt.Errorf("mask has %d pixels, raster has %d", len(mask), r.Rows()*r.Cols())
	}
	coords := MaskCoords(mask, label, r.Cols())
	return s.SampleCoords(r, coords, int(label), rng)
}

// SampleCoords samples up to Cap of the given coordinates. When the list
// exceeds the cap a uniform random subset is drawn without replacement from
// rng. Pixels with any non-finite channel are discarded, reducing the
// returned count; they are never repaired.
func (s *Sampler) SampleCoords(r raster.Raster, coords []Coord, label int, rng *rand.Rand) ([][]float64, []int, error) {
	limit := s.Cap
	if limit <= 0 {
		limit = DefaultCap
	}
	batch := s.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	if len(coords) > limit {
		coords = subset(coords, limit, rng)
	}

	features := make([][]float64, 0, len(coords))
	labels := make([]int, 0, len(coords))

	// Reads are grouped into batches so the transient buffer stays at
	// O(batch x bands); each position is still read one at a time.
	for start := 0; start < len(coords); start += batch {
		end := min(start+batch, len(coords))
		for _, co := range coords[start:end] {
			vol, err := r.ReadWindow(geo.Window{Row: co.Row, Col: co.Col, Rows: 1, Cols: 1})
			if err != nil {
				return nil, nil, fmt.Errorf("read pixel (%d,%d): %w", co.Row, co.Col, err)
			}
			vec := make([]float64, len(vol))
			valid := true
			for b := range vol {
				v := vol[b][0]
				if math.IsNaN(v) || math.IsInf(v, 0) {
					valid = false
					break
				}
				vec[b] = v
			}
			if !valid {
				continue
			}
			features = append(features, vec)
			labels = append(labels, label)
		}
	}
	return features, labels, nil
}

// subset draws n coordinates uniformly without replacement via a partial
// Fisher-Yates shuffle, leaving the input untouched.
func subset(coords []Coord, n int, rng *rand.Rand) []Coord {
	picked := make([]Coord, len(coords))
	copy(picked, coords)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked[:n]
}
