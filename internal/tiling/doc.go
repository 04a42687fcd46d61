// Package tiling applies the fitted scaler and classifier across a full
// raster, tile by tile in row-major order.
//
// Tiling exists purely to bound memory, never to enable parallelism: tiles
// are read, transformed, classified, and their transient buffers released
// strictly in sequence, so peak memory stays at O(tile-size x band-count)
// instead of O(raster-size x band-count). The full-resolution output volume
// and label grid are owned exclusively by the calling goroutine.
package tiling
