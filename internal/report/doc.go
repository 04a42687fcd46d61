// Package report renders the side artifacts of a classification run:
// per-class per-band summary statistics, the hold-out confusion matrix, a
// spectral signature plot, and a self-contained HTML report. Everything is
// rendered to bytes or through a caller-supplied path so persistence policy
// stays with the resilient writer.
package report
