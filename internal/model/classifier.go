package model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Classifier maps feature vectors to integer class labels. Fit is called
// once with scaled, balanced training data; Predict may be called many times
// with tile-sized batches.
type Classifier interface {
	Fit(features [][]float64, labels []int) error
	Predict(features [][]float64) ([]int, error)
	// Labels returns the label set seen during Fit, sorted ascending.
	Labels() []int
}

// NewClassifier constructs a classifier by name: "knn" or "centroid".
func NewClassifier(name string, neighbors int) (Classifier, error) {
	switch name {
	case "", "knn":
		return NewKNN(neighbors), nil
	case "centroid":
		return &NearestCentroid{}, nil
	default:
		return nil, fmt.Errorf("unknown classifier %q", name)
	}
}

// NearestCentroid assigns each pixel the label of the closest per-class mean
// vector in Euclidean distance.
type NearestCentroid struct {
	labels    []int
	centroids [][]float64
}

// Fit computes one centroid per class.
func (nc *NearestCentroid) Fit(features [][]float64, labels []int) error {
	if len(features) == 0 || len(features) != len(labels) {
		return fmt.Errorf("bad training set: %d features, %d labels", len(features), len(labels))
	}
	channels := len(features[0])

	byLabel := make(map[int][][]float64)
	for i, vec := range features {
		if len(vec) != channels {
			return fmt.Errorf("feature %d has %d channels, want %d", i, len(vec), channels)
		}
		byLabel[labels[i]] = append(byLabel[labels[i]], vec)
	}

	nc.labels = sortedLabels(byLabel)
	nc.centroids = make([][]float64, len(nc.labels))
	col := make([]float64, 0)
	for li, label := range nc.labels {
		vecs := byLabel[label]
		centroid := make([]float64, channels)
		for c := 0; c < channels; c++ {
			col = col[:0]
			for _, v := range vecs {
				col = append(col, v[c])
			}
			centroid[c] = stat.Mean(col, nil)
		}
		nc.centroids[li] = centroid
	}
	return nil
}

// Predict implements Classifier.
func (nc *NearestCentroid) Predict(features [][]float64) ([]int, error) {
	if nc.centroids == nil {
		return nil, fmt.Errorf("classifier not fitted")
	}
	out := make([]int, len(features))
	for i, vec := range features {
		best, bestDist := 0, math.Inf(1)
		for li, centroid := range nc.centroids {
			d := sqDist(vec, centroid)
			if d < bestDist {
				best, bestDist = li, d
			}
		}
		out[i] = nc.labels[best]
	}
	return out, nil
}

// Labels implements Classifier.
func (nc *NearestCentroid) Labels() []int { return nc.labels }

// KNN is a brute-force k-nearest-neighbour classifier with majority vote;
// ties break toward the nearer neighbour's label.
type KNN struct {
	K int

	train  [][]float64
	labels []int
	seen   []int
}

// DefaultNeighbors is the default K for the k-NN classifier.
const DefaultNeighbors = 5

// NewKNN returns a KNN with the given neighbour count, defaulted when k <= 0.
func NewKNN(k int) *KNN {
	if k <= 0 {
		k = DefaultNeighbors
	}
	return &KNN{K: k}
}

// Fit stores the training set.
func (k *KNN) Fit(features [][]float64, labels []int) error {
	if len(features) == 0 || len(features) != len(labels) {
		return fmt.Errorf("bad training set: %d features, %d labels", len(features), len(labels))
	}
	k.train = features
	k.labels = labels

	set := make(map[int]struct{})
	for _, l := range labels {
		set[l] = struct{}{}
	}
	k.seen = k.seen[:0]
	for l := range set {
		k.seen = append(k.seen, l)
	}
	sort.Ints(k.seen)
	return nil
}

// Predict implements Classifier.
func (k *KNN) Predict(features [][]float64) ([]int, error) {
	if k.train == nil {
		return nil, fmt.Errorf("classifier not fitted")
	}
	n := k.K
	if n > len(k.train) {
		n = len(k.train)
	}

	type neighbor struct {
		dist  float64
		label int
	}
	out := make([]int, len(features))
	nearest := make([]neighbor, 0, len(k.train))
	for i, vec := range features {
		nearest = nearest[:0]
		for j, tv := range k.train {
			nearest = append(nearest, neighbor{dist: sqDist(vec, tv), label: k.labels[j]})
		}
		sort.Slice(nearest, func(a, b int) bool { return nearest[a].dist < nearest[b].dist })

		votes := make(map[int]int, n)
		for _, nb := range nearest[:n] {
			votes[nb.label]++
		}
		best, bestVotes := nearest[0].label, 0
		for _, nb := range nearest[:n] {
			if v := votes[nb.label]; v > bestVotes {
				best, bestVotes = nb.label, v
			}
		}
		out[i] = best
	}
	return out, nil
}

// Labels implements Classifier.
func (k *KNN) Labels() []int { return k.seen }

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func sortedLabels(byLabel map[int][][]float64) []int {
	labels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	return labels
}

// DenseFromRows converts a slice-of-rows feature set to a gonum matrix.
// Returns nil for an empty set since mat.Dense cannot be zero-sized.
func DenseFromRows(rows [][]float64) *mat.Dense {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	out := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		out.SetRow(i, r)
	}
	return out
}
