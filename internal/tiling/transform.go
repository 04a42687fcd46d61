package tiling

import (
	"fmt"
	"math"

	"github.com/meridian-geo/landcover.report/internal/geo"
	"github.com/meridian-geo/landcover.report/internal/model"
	"github.com/meridian-geo/landcover.report/internal/raster"
)

const (
	// DefaultTileRows and DefaultTileCols size one processing tile.
	DefaultTileRows = 200
	DefaultTileCols = 200
)

// Progress is notified after each completed tile. It is a pure observability
// hook and carries no correctness obligation; a nil Progress is skipped.
type Progress func(stage string, done, total int)

// Transformer applies a fitted scaler across the whole raster.
type Transformer struct {
	TileRows int
	TileCols int
	Progress Progress
}

// NewTransformer returns a Transformer with default tile size.
func NewTransformer() *Transformer {
	return &Transformer{TileRows: DefaultTileRows, TileCols: DefaultTileCols}
}

// Run reads the raster tile by tile and writes scaled feature vectors into a
// full-resolution band-major volume. Pixels with any non-finite channel are
// written as all-zero vectors; afterwards they are indistinguishable from
// legitimately zero-valued pixels, which is the documented trade-off of this
// engine.
func (t *Transformer) Run(r raster.Raster, scaler *model.Scaler) ([][]float64, error) {
	if scaler.Channels() != r.Bands() {
		return nil, fmt.Errorf("scaler fitted on %d channels, raster has %d bands", scaler.Channels(), r.Bands())
	}
	rows, cols := r.Rows(), r.Cols()

	out := make([][]float64, r.Bands())
	for b := range out {
		out[b] = make([]float64, rows*cols)
	}

	tiles := geo.Tiles(rows, cols, t.tileRows(), t.tileCols())
	raw := make([]float64, r.Bands())
	scaled := make([]float64, r.Bands())
	for i, w := range tiles {
		vol, err := r.ReadWindow(w)
		if err != nil {
			return nil, fmt.Errorf("read %v: %w", w, err)
		}
		for p := 0; p < w.Pixels(); p++ {
			valid := true
			for b := range vol {
				v := vol[b][p]
				if math.IsNaN(v) || math.IsInf(v, 0) {
					valid = false
					break
				}
				raw[b] = v
			}
			dstIdx := (w.Row+p/w.Cols)*cols + w.Col + p%w.Cols
			if !valid {
				for b := range out {
					out[b][dstIdx] = 0
				}
				continue
			}
			if err := scaler.TransformRow(raw, scaled); err != nil {
				return nil, err
			}
			for b := range out {
				out[b][dstIdx] = scaled[b]
			}
		}
		// vol goes out of scope here; nothing tile-local survives the
		// iteration, which is what bounds peak memory
		if t.Progress != nil {
			t.Progress("transform", i+1, len(tiles))
		}
	}
	return out, nil
}

func (t *Transformer) tileRows() int {
	if t.TileRows <= 0 {
		return DefaultTileRows
	}
	return t.TileRows
}

func (t *Transformer) tileCols() int {
	if t.TileCols <= 0 {
		return DefaultTileCols
	}
	return t.TileCols
}
