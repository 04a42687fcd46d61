// Package geo holds the small geometric vocabulary shared by the raster
// engine: the affine pixel-to-world transform and rectangular pixel windows.
//
// Conventions: pixel (row, col) indexes are zero-based, row 0 is the top of
// the raster, and a pixel's world position is taken at its centre
// (row+0.5, col+0.5) when point-in-polygon tests are performed.
package geo
