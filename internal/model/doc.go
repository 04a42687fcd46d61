// Package model holds the fitted models used by the tiled passes: the
// per-channel min-max scaler and pluggable pixel classifiers. The engine
// treats both as opaque once fitted; they are fitted exactly once per run
// from balanced training samples and used read-only thereafter.
package model
