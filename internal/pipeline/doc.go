// Package pipeline orchestrates a full classification run: rasterize
// training regions, sample and balance the training set, fit the scaler
// and classifier, run the tiled transform and classification passes, and
// write the output artifacts.
package pipeline
