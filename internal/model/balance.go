package model

import (
	"math/rand"
	"sort"
)

// Balance downsamples every class to the size of the smallest class so the
// classifier is fitted on equal class counts. Selection within a class is a
// uniform draw without replacement from rng; relative order of the kept
// samples follows class label then original position, so output is
// deterministic for a fixed seed.
func Balance(features [][]float64, labels []int, rng *rand.Rand) ([][]float64, []int) {
	if len(features) == 0 {
		return nil, nil
	}

	byLabel := make(map[int][]int)
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}

	minCount := len(labels)
	for _, idxs := range byLabel {
		if len(idxs) < minCount {
			minCount = len(idxs)
		}
	}

	classLabels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		classLabels = append(classLabels, l)
	}
	sort.Ints(classLabels)

	outF := make([][]float64, 0, minCount*len(classLabels))
	outL := make([]int, 0, minCount*len(classLabels))
	for _, l := range classLabels {
		idxs := byLabel[l]
		if len(idxs) > minCount {
			idxs = pick(idxs, minCount, rng)
		}
		for _, i := range idxs {
			outF = append(outF, features[i])
			outL = append(outL, labels[i])
		}
	}
	return outF, outL
}

// pick draws n indexes without replacement and returns them in ascending
// order.
func pick(idxs []int, n int, rng *rand.Rand) []int {
	shuffled := make([]int, len(idxs))
	copy(shuffled, idxs)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(shuffled)-i)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	kept := shuffled[:n]
	sort.Ints(kept)
	return kept
}

// Split partitions a training set into fit and hold-out subsets for
// evaluation. fraction is the hold-out share; the split is a uniform draw
// from rng. Degenerate fractions keep everything in the fit subset.
func Split(features [][]float64, labels []int, fraction float64, rng *rand.Rand) (fitF [][]float64, fitL []int, outF [][]float64, outL []int) {
	n := len(features)
	holdout := int(float64(n) * fraction)
	if fraction <= 0 || holdout == 0 || holdout >= n {
		return features, labels, nil, nil
	}

	perm := rng.Perm(n)
	holdSet := make(map[int]struct{}, holdout)
	for _, i := range perm[:holdout] {
		holdSet[i] = struct{}{}
	}
	for i := range features {
		if _, held := holdSet[i]; held {
			outF = append(outF, features[i])
			outL = append(outL, labels[i])
		} else {
			fitF = append(fitF, features[i])
			fitL = append(fitL, labels[i])
		}
	}
	return fitF, fitL, outF, outL
}
