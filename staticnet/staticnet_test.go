// Copyright (c) 2026, The Spikeview Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package staticnet

import (
	"math"
	"reflect"
	"testing"

	"github.com/snntools/spikeview/archive"
	"github.com/snntools/spikeview/neurons"
	"gonum.org/v1/gonum/mat"
)

func TestClasses(t *testing.T) {
	got := Classes([]int{5, 1, 5, 3, 1})
	if !reflect.DeepEqual(got, []int{1, 3, 5}) {
		t.Errorf("Classes = %v, want [1 3 5]", got)
	}
}

func TestForward(t *testing.T) {
	// identity weights and zero biases with a pass-through response
	// function reproduce the input, plus the classifier offset
	sp := &archive.StaticParams{
		Weights: []*mat.Dense{mat.NewDense(2, 2, []float64{1, 0, 0, 1})},
		Biases:  [][]float64{{0, 0}},
		Wc:      mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		Bc:      []float64{10, 20},
	}
	images := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	ident := neurons.Func(func(x float64) float64 { return x })

	layers, codes, scores := Forward(sp, images, ident)
	if len(layers) != 1 {
		t.Fatalf("got %d layers, want 1", len(layers))
	}
	if codes.At(1, 0) != 3 {
		t.Errorf("codes(1,0) = %g, want 3", codes.At(1, 0))
	}
	if scores.At(0, 0) != 11 || scores.At(0, 1) != 22 {
		t.Errorf("scores row 0 = [%g %g], want [11 22]", scores.At(0, 0), scores.At(0, 1))
	}
}

func TestForwardBias(t *testing.T) {
	sp := &archive.StaticParams{
		Weights: []*mat.Dense{mat.NewDense(1, 2, []float64{1, 1})},
		Biases:  [][]float64{{0.5, -0.5}},
		Wc:      mat.NewDense(2, 1, []float64{1, 1}),
		Bc:      []float64{0},
	}
	images := mat.NewDense(1, 1, []float64{2})
	ident := neurons.Func(func(x float64) float64 { return x })
	layers, _, _ := Forward(sp, images, ident)
	if l := layers[0]; l.At(0, 0) != 2.5 || l.At(0, 1) != 1.5 {
		t.Errorf("layer row = [%g %g], want [2.5 1.5]", l.At(0, 0), l.At(0, 1))
	}
}

func TestErrorsPerfect(t *testing.T) {
	labels := []int{0, 1, 2}
	scores := mat.NewDense(3, 3, []float64{
		9, 0, 0,
		0, 9, 0,
		0, 0, 9,
	})
	errs := Errors(scores, labels)
	for i, e := range errs {
		if e {
			t.Errorf("example %d flagged by a perfect classifier", i)
		}
	}
	if r := ErrorRate(errs); r != 0 {
		t.Errorf("ErrorRate = %g, want 0", r)
	}
}

func TestErrorsClassMapping(t *testing.T) {
	// arg-max column indexes into the sorted distinct labels, so
	// column 1 must mean label 7 here, not label 1
	labels := []int{2, 7}
	scores := mat.NewDense(2, 2, []float64{
		0, 1,
		0, 1,
	})
	errs := Errors(scores, labels)
	if !errs[0] {
		t.Errorf("example 0 predicts label 7, true label 2: should be an error")
	}
	if errs[1] {
		t.Errorf("example 1 predicts label 7 correctly: should not be an error")
	}
}

func TestLayerStats(t *testing.T) {
	layer := mat.NewDense(2, 2, []float64{0, 0.5, 2, -1})
	mean, fracPos, fracGT1 := LayerStats(layer)
	if math.Abs(mean-0.375) > 1e-12 {
		t.Errorf("mean = %g, want 0.375", mean)
	}
	if fracPos != 0.5 {
		t.Errorf("fracPos = %g, want 0.5", fracPos)
	}
	if fracGT1 != 0.25 {
		t.Errorf("fracGT1 = %g, want 0.25", fracGT1)
	}
}

func TestScoreStats(t *testing.T) {
	scores := mat.NewDense(2, 2, []float64{1, 3, 1, 3})
	mean, std, min, max := ScoreStats(scores)
	if mean != 2 || min != 1 || max != 3 {
		t.Errorf("mean/min/max = %g/%g/%g, want 2/1/3", mean, min, max)
	}
	if std != 0 {
		t.Errorf("per-class std of constant columns = %g, want 0", std)
	}
}

func TestScoreStatsRect(t *testing.T) {
	// more examples than classes, so the per-class column buffer must
	// be sized by rows
	scores := mat.NewDense(4, 2, []float64{
		0, 2,
		2, 2,
		0, 2,
		2, 2,
	})
	mean, std, min, max := ScoreStats(scores)
	if mean != 1.5 || min != 0 || max != 2 {
		t.Errorf("mean/min/max = %g/%g/%g, want 1.5/0/2", mean, min, max)
	}
	// column 0 has sample std sqrt(4/3), column 1 is constant
	want := math.Sqrt(4.0/3.0) / 2
	if math.Abs(std-want) > 1e-12 {
		t.Errorf("std = %g, want %g", std, want)
	}
}

func TestHist(t *testing.T) {
	vals := make([]float64, HistBins)
	for i := range vals {
		vals[i] = float64(i)
	}
	counts, centers := Hist(vals, HistBins)
	if len(counts) != HistBins || len(centers) != HistBins {
		t.Fatalf("got %d bins, want %d", len(counts), HistBins)
	}
	total := 0.0
	for b, c := range counts {
		total += c
		if c != 1 {
			t.Errorf("bin %d count = %g, want 1", b, c)
		}
	}
	if total != float64(len(vals)) {
		t.Errorf("counts sum to %g, want %d", total, len(vals))
	}
	for b := 1; b < len(centers); b++ {
		if centers[b] <= centers[b-1] {
			t.Errorf("bin centers not increasing at %d: %v", b, centers)
		}
	}
}

func TestHistDegenerate(t *testing.T) {
	counts, _ := Hist([]float64{2, 2, 2, 2}, HistBins)
	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total != 4 {
		t.Errorf("identical values: counts sum to %g, want 4", total)
	}
	if counts[0] != 4 {
		t.Errorf("identical values should land in the first bin: %v", counts)
	}

	counts, centers := Hist(nil, HistBins)
	for b := range counts {
		if counts[b] != 0 || centers[b] != 0 {
			t.Errorf("empty input: bin %d = (%g, %g), want zeros", b, counts[b], centers[b])
		}
	}
}

func TestFlatten(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	got := Flatten(m)
	if !reflect.DeepEqual(got, []float64{1, 2, 3, 4, 5, 6}) {
		t.Errorf("Flatten = %v", got)
	}
}
