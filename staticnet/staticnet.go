// Copyright (c) 2026, The Spikeview Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package staticnet evaluates stored feed-forward networks: forward
// propagation through the layer stack, classification error against the
// reference dataset, and the per-layer activation statistics shown in
// the static diagnostics view.
package staticnet

import (
	"math"
	"sort"

	"github.com/emer/etable/minmax"
	"github.com/snntools/spikeview/archive"
	"github.com/snntools/spikeview/neurons"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// HistBins is the number of bins in the activation histograms.
const HistBins = 15

// Forward propagates an image batch (examples x pixels) through the
// stored layer stack with the given neuron response function, returning
// every layer activation, the final hidden representation (codes), and
// the raw classifier scores codes*Wc + bc. Shape mismatches panic from
// the matrix layer, as there is nothing sensible to recover to.
func Forward(sp *archive.StaticParams, images *mat.Dense, f neurons.Func) (layers []*mat.Dense, codes, scores *mat.Dense) {
	x := images
	for i, w := range sp.Weights {
		b := sp.Biases[i]
		var y mat.Dense
		y.Mul(x, w)
		y.Apply(func(_, j int, v float64) float64 { return f(v + b[j]) }, &y)
		layers = append(layers, &y)
		x = &y
	}
	codes = x
	scores = &mat.Dense{}
	scores.Mul(codes, sp.Wc)
	scores.Apply(func(_, j int, v float64) float64 { return v + sp.Bc[j] }, scores)
	return layers, codes, scores
}

// Classes returns the sorted distinct label values; the classifier's
// arg-max column index maps through this to a predicted label.
func Classes(labels []int) []int {
	seen := map[int]bool{}
	var cls []int
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			cls = append(cls, l)
		}
	}
	sort.Ints(cls)
	return cls
}

// Errors returns one flag per example: true where the arg-max classifier
// score maps to a label different from the true label.
func Errors(scores *mat.Dense, labels []int) []bool {
	classes := Classes(labels)
	n, _ := scores.Dims()
	errs := make([]bool, n)
	for i := 0; i < n; i++ {
		pred := floats.MaxIdx(scores.RawRowView(i))
		errs[i] = classes[pred] != labels[i]
	}
	return errs
}

// ErrorRate returns the fraction of true flags.
func ErrorRate(errs []bool) float64 {
	if len(errs) == 0 {
		return 0
	}
	n := 0
	for _, e := range errs {
		if e {
			n++
		}
	}
	return float64(n) / float64(len(errs))
}

// LayerStats returns the mean activation and the fraction of activations
// greater than zero and greater than one.
func LayerStats(layer *mat.Dense) (mean, fracPos, fracGT1 float64) {
	vals := Flatten(layer)
	if len(vals) == 0 {
		return 0, 0, 0
	}
	npos, ngt1 := 0, 0
	for _, v := range vals {
		mean += v
		if v > 0 {
			npos++
		}
		if v > 1 {
			ngt1++
		}
	}
	n := float64(len(vals))
	return mean / n, float64(npos) / n, float64(ngt1) / n
}

// ScoreStats returns the overall mean, the per-class standard deviation
// averaged across classes, and the min and max of the classifier scores.
func ScoreStats(scores *mat.Dense) (mean, std, min, max float64) {
	vals := Flatten(scores)
	mean = stat.Mean(vals, nil)
	min = floats.Min(vals)
	max = floats.Max(vals)
	nr, nc := scores.Dims()
	col := make([]float64, nr)
	for j := 0; j < nc; j++ {
		mat.Col(col, j, scores)
		std += stat.StdDev(col, nil)
	}
	std /= float64(nc)
	return mean, std, min, max
}

// Hist bins vals into the given number of equal-width bins over their
// range, returning the counts and the bin centers.
func Hist(vals []float64, bins int) (counts, centers []float64) {
	counts = make([]float64, bins)
	centers = make([]float64, bins)
	if len(vals) == 0 {
		return counts, centers
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	var rng minmax.F64
	rng.SetInfinity()
	for _, v := range sorted {
		rng.FitValInRange(v)
	}
	if rng.Range() == 0 { // degenerate: all values identical
		rng.Max = rng.Min + 1
	}

	div := make([]float64, bins+1)
	floats.Span(div, rng.Min, rng.Max)
	div[bins] = math.Nextafter(rng.Max, math.Inf(1)) // include the max itself

	stat.Histogram(counts, div, sorted, nil)
	for i := range centers {
		centers[i] = 0.5 * (div[i] + div[i+1])
	}
	return counts, centers
}

// Flatten returns all matrix values in row-major order.
func Flatten(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}
