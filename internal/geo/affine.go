package geo

import "fmt"

// Affine maps pixel coordinates to world coordinates. The six coefficients
// follow the usual geotransform layout: world X/Y of the top-left corner of
// pixel (0,0), per-column and per-row steps, and the two rotation terms.
//
//	x = OriginX + col*PixelWidth + row*RotX
//	y = OriginY + col*RotY      + row*PixelHeight
//
// North-up rasters have RotX = RotY = 0 and a negative PixelHeight.
type Affine struct {
	OriginX     float64
	PixelWidth  float64
	RotX        float64
	OriginY     float64
	RotY        float64
	PixelHeight float64
}

// NorthUp returns the common axis-aligned transform with the given top-left
// corner and pixel size. PixelHeight is stored negated so that row indexes
// grow southward.
func NorthUp(originX, originY, pixelSize float64) Affine {
	return Affine{
		OriginX:     originX,
		PixelWidth:  pixelSize,
		OriginY:     originY,
		PixelHeight: -pixelSize,
	}
}

// PixelToWorld converts fractional pixel coordinates to world coordinates.
// Pass row+0.5, col+0.5 for the centre of a pixel.
func (a Affine) PixelToWorld(row, col float64) (x, y float64) {
	x = a.OriginX + col*a.PixelWidth + row*a.RotX
	y = a.OriginY + col*a.RotY + row*a.PixelHeight
	return x, y
}

// WorldToPixel converts world coordinates to fractional pixel coordinates.
// It returns an error when the transform is singular.
func (a Affine) WorldToPixel(x, y float64) (row, col float64, err error) {
	det := a.PixelWidth*a.PixelHeight - a.RotX*a.RotY
	if det == 0 {
		return 0, 0, fmt.Errorf("singular affine transform: %+v", a)
	}
	dx := x - a.OriginX
	dy := y - a.OriginY
	col = (dx*a.PixelHeight - dy*a.RotX) / det
	row = (dy*a.PixelWidth - dx*a.RotY) / det
	return row, col, nil
}

// ShiftOrigin returns the transform of a sub-window whose top-left pixel sits
// at (rowOff, colOff) in the parent raster. The new origin is the world
// position of that corner pixel; steps and rotations are unchanged.
func (a Affine) ShiftOrigin(rowOff, colOff int) Affine {
	x, y := a.PixelToWorld(float64(rowOff), float64(colOff))
	shifted := a
	shifted.OriginX = x
	shifted.OriginY = y
	return shifted
}
