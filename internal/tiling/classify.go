package tiling

import (
	"fmt"
	"math"

	"github.com/meridian-geo/landcover.report/internal/geo"
	"github.com/meridian-geo/landcover.report/internal/model"
)

// Classifier applies a fitted model across a preprocessed feature volume.
type Classifier struct {
	TileRows int
	TileCols int
	Progress Progress
}

// NewClassifier returns a Classifier with default tile size.
func NewClassifier() *Classifier {
	return &Classifier{TileRows: DefaultTileRows, TileCols: DefaultTileCols}
}

// Run walks the volume with the same tiling as the transform pass, gathers
// valid-pixel feature vectors per tile, batch-predicts them, and scatters the
// labels back into a uint8 label grid. Validity here means all channels
// finite in the preprocessed volume, which can no longer distinguish
// originally invalid pixels from genuinely zero-valued ones. Positions never
// selected keep label 0.
func (cl *Classifier) Run(volume [][]float64, rows, cols int, m model.Classifier) ([]uint8, error) {
	if len(volume) == 0 {
		return nil, fmt.Errorf("empty feature volume")
	}
	for b, band := range volume {
		if len(band) != rows*cols {
			return nil, fmt.Errorf("band %d has %d values, want %d", b, len(band), rows*cols)
		}
	}

	labels := make([]uint8, rows*cols)
	tiles := geo.Tiles(rows, cols, cl.tileRows(), cl.tileCols())
	for i, w := range tiles {
		features := make([][]float64, 0, w.Pixels())
		positions := make([]int, 0, w.Pixels())
		for r := 0; r < w.Rows; r++ {
			for c := 0; c < w.Cols; c++ {
				idx := (w.Row+r)*cols + w.Col + c
				vec := make([]float64, len(volume))
				valid := true
				for b := range volume {
					v := volume[b][idx]
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
				positions = append(positions, idx)
			}
		}
		if len(features) > 0 {
			pred, err := m.Predict(features)
			if err != nil {
				return nil, fmt.Errorf("predict tile %v: %w", w, err)
			}
			for j, idx := range positions {
				p := pred[j]
				if p < 0 || p > math.MaxUint8 {
					return nil, fmt.Errorf("predicted label %d outside uint8 range", p)
				}
				labels[idx] = uint8(p)
			}
		}
		if cl.Progress != nil {
			cl.Progress("classify", i+1, len(tiles))
		}
	}
	return labels, nil
}

func (cl *Classifier) tileRows() int {
	if cl.TileRows <= 0 {
		return DefaultTileRows
	}
	return cl.TileRows
}

func (cl *Classifier) tileCols() int {
	if cl.TileCols <= 0 {
		return DefaultTileCols
	}
	return cl.TileCols
}
