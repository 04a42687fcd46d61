package geo

import "fmt"

// Window is a rectangular pixel region: Rows x Cols pixels starting at
// (Row, Col).
type Window struct {
	Row  int
	Col  int
	Rows int
	Cols int
}

// Valid reports whether the window has a non-negative position and a
// positive extent.
func (w Window) Valid() bool {
	return w.Row >= 0 && w.Col >= 0 && w.Rows > 0 && w.Cols > 0
}

// Pixels returns the number of pixels covered by the window.
func (w Window) Pixels() int {
	return w.Rows * w.Cols
}

// Clip returns the window intersected with a raster of the given extent.
// The second return value is false when the intersection is empty.
func (w Window) Clip(rows, cols int) (Window, bool) {
	r0 := max(w.Row, 0)
	c0 := max(w.Col, 0)
	r1 := min(w.Row+w.Rows, rows)
	c1 := min(w.Col+w.Cols, cols)
	if r1 <= r0 || c1 <= c0 {
		return Window{}, false
	}
	return Window{Row: r0, Col: c0, Rows: r1 - r0, Cols: c1 - c0}, true
}

func (w Window) String() string {
	return fmt.Sprintf("window(%d,%d %dx%d)", w.Row, w.Col, w.Rows, w.Cols)
}

// Tiles partitions a rows x cols extent into windows of at most
// tileRows x tileCols pixels, in row-major tile order. Edge tiles are
// truncated when the tile size does not divide the extent.
func Tiles(rows, cols, tileRows, tileCols int) []Window {
	if rows <= 0 || cols <= 0 || tileRows <= 0 || tileCols <= 0 {
		return nil
	}
	tiles := make([]Window, 0, ((rows+tileRows-1)/tileRows)*((cols+tileCols-1)/tileCols))
	for r := 0; r < rows; r += tileRows {
		h := min(tileRows, rows-r)
		for c := 0; c < cols; c += tileCols {
			w := min(tileCols, cols-c)
			tiles = append(tiles, Window{Row: r, Col: c, Rows: h, Cols: w})
		}
	}
	return tiles
}
