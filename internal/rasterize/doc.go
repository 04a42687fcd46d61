// Package rasterize burns vector training regions into dense per-class
// pixel masks.
//
// The direct path rasterizes the full raster extent in one pass. When the
// direct pass would exceed the configured memory budget (or aborts on an
// allocation failure) the rasterizer transparently falls back to chunked
// rasterization: each chunk is rasterized against a chunk-local affine
// transform derived from its corner pixel, then merged into the accumulating
// mask by element-wise maximum. Both paths produce pixel-identical masks for
// any chunk size, including sizes that do not divide the extent.
package rasterize
