// Package raster provides the read-only raster handle used by every tiled
// pass, an in-memory implementation, a compressed on-disk grid format, and
// the paletted PNG writer for label rasters.
//
// A Raster is opened once per classification run and closed only after all
// tiled passes complete. Windowed reads return a band-major volume so that
// callers can bound their transient memory to one window at a time.
package raster
