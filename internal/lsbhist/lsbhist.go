// Package lsbhist counts how often each LSB index occurs in a capture. With a
// well-behaved source the index follows a geometric distribution, halving at
// each step; deviations point at bias in the discharge timing.
package lsbhist

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mkj/caprand/internal/bitplane"
)

// Buckets is the number of LSB indices a byte can have.
const Buckets = 8

// Histogram holds per-index counts plus the zero bytes, which have no LSB.
type Histogram struct {
	Counts [Buckets]int
	Zeros  int
	Total  int
}

// FromSamples builds a histogram over data.
func FromSamples(data []byte) *Histogram {
	h := &Histogram{}
	for _, x := range data {
		h.Add(x)
	}
	return h
}

// Add counts one sample.
func (h *Histogram) Add(x byte) {
	h.Total++
	if i := bitplane.LSBIndex(x); i != bitplane.NoBitsSet {
		h.Counts[i]++
		return
	}
	h.Zeros++
}

// Probabilities returns the empirical distribution over the eight indices
// followed by the zero bucket. It is all zero for an empty histogram.
func (h *Histogram) Probabilities() []float64 {
	p := make([]float64, Buckets+1)
	if h.Total == 0 {
		return p
	}
	for i, c := range h.Counts {
		p[i] = float64(c) / float64(h.Total)
	}
	p[Buckets] = float64(h.Zeros) / float64(h.Total)
	return p
}

// ShannonBits is the Shannon entropy of the LSB index distribution in bits.
func (h *Histogram) ShannonBits() float64 {
	if h.Total == 0 {
		return 0
	}
	// Abs folds the -0 a single-bucket distribution produces.
	return math.Abs(stat.Entropy(h.Probabilities()) / math.Ln2)
}

// MinEntropyBits is -log2 of the most likely bucket's probability.
func (h *Histogram) MinEntropyBits() float64 {
	if h.Total == 0 {
		return 0
	}
	return math.Log2(1 / floats.Max(h.Probabilities()))
}

// Labels names the buckets for charts and tables.
func Labels() []string {
	labels := make([]string, 0, Buckets+1)
	for i := 0; i < Buckets; i++ {
		labels = append(labels, strconv.Itoa(i))
	}
	return append(labels, "zero")
}

// Values returns the counts in Labels order.
func (h *Histogram) Values() []float64 {
	v := make([]float64, 0, Buckets+1)
	for _, c := range h.Counts {
		v = append(v, float64(c))
	}
	return append(v, float64(h.Zeros))
}

// WriteTable prints one "index count percent" line per bucket and the entropy
// estimates.
func (h *Histogram) WriteTable(w io.Writer) error {
	p := h.Probabilities()
	for i, label := range Labels() {
		count := h.Zeros
		if i < Buckets {
			count = h.Counts[i]
		}
		if _, err := fmt.Fprintf(w, "%-5s %8d %6.2f%%\n", label, count, 100*p[i]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "total %8d\nshannon %.4f bits\nmin-entropy %.4f bits\n",
		h.Total, h.ShannonBits(), h.MinEntropyBits())
	return err
}
