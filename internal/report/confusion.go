package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
)

// Confusion is a square confusion matrix over an ordered label set. Rows are
// true labels, columns predicted labels.
type Confusion struct {
	Labels []int
	Counts [][]int
}

// NewConfusion tallies predictions against truth. The label set is the union
// of both slices, sorted ascending.
func NewConfusion(truth, predicted []int) (*Confusion, error) {
	if len(truth) != len(predicted) {
		return nil, fmt.Errorf("truth has %d entries, predictions %d", len(truth), len(predicted))
	}

	set := make(map[int]struct{})
	for _, l := range truth {
		set[l] = struct{}{}
	}
	for _, l := range predicted {
		set[l] = struct{}{}
	}
	labels := make([]int, 0, len(set))
	for l := range set {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	index := make(map[int]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	counts := make([][]int, len(labels))
	for i := range counts {
		counts[i] = make([]int, len(labels))
	}
	for i := range truth {
		counts[index[truth[i]]][index[predicted[i]]]++
	}
	return &Confusion{Labels: labels, Counts: counts}, nil
}

// Total returns the number of tallied samples.
func (c *Confusion) Total() int {
	total := 0
	for _, row := range c.Counts {
		for _, v := range row {
			total += v
		}
	}
	return total
}

// Accuracy is the fraction of samples on the diagonal; 0 for an empty
// matrix.
func (c *Confusion) Accuracy() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	diag := 0
	for i := range c.Counts {
		diag += c.Counts[i][i]
	}
	return float64(diag) / float64(total)
}

// RenderCSV renders the matrix with labelled header row and column, plus a
// trailing overall-accuracy row.
func (c *Confusion) RenderCSV(names map[int]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"true\\predicted"}
	for _, l := range c.Labels {
		header = append(header, labelName(l, names))
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i, l := range c.Labels {
		row := []string{labelName(l, names)}
		for _, v := range c.Counts[i] {
			row = append(row, fmt.Sprintf("%d", v))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	if err := w.Write([]string{"overall_accuracy", fmt.Sprintf("%.6f", c.Accuracy())}); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func labelName(label int, names map[int]string) string {
	if n, ok := names[label]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("class_%d", label)
}
