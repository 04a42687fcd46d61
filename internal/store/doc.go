// Package store persists classification run history in SQLite. Each
// completed pipeline run is recorded with its input raster, classifier
// settings, accuracy and artifact paths so past runs can be listed and
// compared.
package store
