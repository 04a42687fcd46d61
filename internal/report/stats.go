package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// BandStats summarises one channel of one class across its raw (unscaled)
// training samples.
type BandStats struct {
	Band   int
	Mean   float64
	Stddev float64
	Min    float64
	Max    float64
}

// ClassStats is the per-band summary of one class.
type ClassStats struct {
	Label   int
	Name    string
	Samples int
	Bands   []BandStats
}

// ComputeClassStats aggregates raw feature vectors by label. names maps a
// label to its display name; unknown labels keep an empty name.
func ComputeClassStats(features [][]float64, labels []int, names map[int]string) []ClassStats {
	if len(features) == 0 {
		return nil
	}
	channels := len(features[0])

	byLabel := make(map[int][][]float64)
	for i, vec := range features {
		byLabel[labels[i]] = append(byLabel[labels[i]], vec)
	}

	classLabels := make([]int, 0, len(byLabel))
	for l := range byLabel {
		classLabels = append(classLabels, l)
	}
	sort.Ints(classLabels)

	out := make([]ClassStats, 0, len(classLabels))
	col := make([]float64, 0)
	for _, label := range classLabels {
		vecs := byLabel[label]
		cs := ClassStats{Label: label, Name: names[label], Samples: len(vecs), Bands: make([]BandStats, channels)}
		for b := 0; b < channels; b++ {
			col = col[:0]
			for _, v := range vecs {
				col = append(col, v[b])
			}
			sd := 0.0
			if len(col) > 1 {
				sd = stat.StdDev(col, nil)
			}
			cs.Bands[b] = BandStats{
				Band:   b,
				Mean:   stat.Mean(col, nil),
				Stddev: sd,
				Min:    floats.Min(col),
				Max:    floats.Max(col),
			}
		}
		out = append(out, cs)
	}
	return out
}

// RenderStatsCSV renders class statistics as CSV, one row per class and
// band.
func RenderStatsCSV(stats []ClassStats) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"label", "class", "samples", "band", "mean", "stddev", "min", "max"}); err != nil {
		return nil, err
	}
	for _, cs := range stats {
		for _, bs := range cs.Bands {
			row := []string{
				fmt.Sprintf("%d", cs.Label),
				cs.Name,
				fmt.Sprintf("%d", cs.Samples),
				fmt.Sprintf("%d", bs.Band),
				fmt.Sprintf("%.6f", bs.Mean),
				fmt.Sprintf("%.6f", bs.Stddev),
				fmt.Sprintf("%.6f", bs.Min),
				fmt.Sprintf("%.6f", bs.Max),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
