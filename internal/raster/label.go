package raster

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"github.com/meridian-geo/landcover.report/internal/geo"
)

// ClassColor maps one label value to a display name and an RGBA colour in
// the persisted label raster's palette.
type ClassColor struct {
	Label uint8  `json:"label"`
	Name  string `json:"name"`
	R     uint8  `json:"r"`
	G     uint8  `json:"g"`
	B     uint8  `json:"b"`
	A     uint8  `json:"a"`
}

// WriteLabelPNG persists a rows x cols label grid as a single-band 8-bit
// paletted PNG (lossless). Palette index equals the label value; labels
// without an explicit colour render black and label 0 renders transparent
// unless a colour for 0 is supplied.
func WriteLabelPNG(path string, labels []uint8, rows, cols int, colors []ClassColor) error {
	if len(labels) != rows*cols {
		return fmt.Errorf("label grid has %d values, want %d", len(labels), rows*cols)
	}

	maxLabel := uint8(0)
	for _, c := range colors {
		if c.Label > maxLabel {
			maxLabel = c.Label
		}
	}
	for _, l := range labels {
		if l > maxLabel {
			maxLabel = l
		}
	}

	palette := make(color.Palette, int(maxLabel)+1)
	for i := range palette {
		palette[i] = color.NRGBA{} // transparent until assigned
	}
	for _, c := range colors {
		palette[c.Label] = color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
	}

	img := image.NewPaletted(image.Rect(0, 0, cols, rows), palette)
	for r := 0; r < rows; r++ {
		copy(img.Pix[r*img.Stride:], labels[r*cols:(r+1)*cols])
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create label raster %s: %w", path, err)
	}
	defer f.Close()

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(f, img); err != nil {
		return fmt.Errorf("encode label raster %s: %w", path, err)
	}
	return f.Sync()
}

// GeoRef is the georeferencing sidecar written next to a label raster so the
// PNG can be placed back on the map: affine transform, CRS, and the colour
// legend used for the palette.
type GeoRef struct {
	Transform geo.Affine   `json:"transform"`
	CRS       string       `json:"crs"`
	Rows      int          `json:"rows"`
	Cols      int          `json:"cols"`
	Classes   []ClassColor `json:"classes"`
}

// WriteGeoRef writes the sidecar as indented JSON.
func WriteGeoRef(path string, ref GeoRef) error {
	b, err := json.MarshalIndent(ref, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal georef: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write georef %s: %w", path, err)
	}
	return nil
}
