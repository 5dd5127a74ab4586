// Copyright (c) 2026, The Spikeview Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package spikenet analyzes spiking run records: the windowed error
// metric over presentation windows, per-layer firing rates, and the
// truncated tensors backing the diagnostic views (input image strip,
// spike rasters, boundary wave).
package spikenet

import (
	"math"

	"github.com/emer/etable/etensor"
	"github.com/pkg/errors"
	"github.com/snntools/spikeview/archive"
	"github.com/snntools/spikeview/mnist"
	"gonum.org/v1/gonum/mat"
)

const (
	// CheckTime is the trailing sub-window inspected per presentation (s).
	CheckTime = 0.05
	// Cutoff is the trailing-mean below which a window counts as an error.
	Cutoff = 0.5
	// MaxPres is the number of presentation windows shown in the views.
	MaxPres = 20
	// MaxNeurons caps the neurons drawn per spike raster.
	MaxNeurons = 200
)

// Errors partitions the correctness signal into consecutive presentation
// windows of round(presTime/dt) samples and flags each window whose
// trailing round(checkTime/dt) samples average below cutoff. The signal
// length must be an exact positive multiple of the window length; a
// partial final window is an error, not padded.
func Errors(t, test []float64, presTime, checkTime, cutoff float64) ([]bool, error) {
	if len(t) < 2 {
		return nil, errors.Errorf("time axis too short (%d samples)", len(t))
	}
	dt := t[1] - t[0]
	presLen := int(math.Round(presTime / dt))
	if presLen <= 0 {
		return nil, errors.Errorf("presentation time %v is shorter than the sample interval %v", presTime, dt)
	}
	checkLen := int(math.Round(checkTime / dt))
	if checkLen < 1 {
		checkLen = 1
	}
	if checkLen > presLen {
		checkLen = presLen
	}
	if len(test) == 0 || len(test)%presLen != 0 {
		return nil, errors.Errorf("correctness signal length %d is not a multiple of the window length %d", len(test), presLen)
	}

	nwin := len(test) / presLen
	errs := make([]bool, nwin)
	for w := 0; w < nwin; w++ {
		end := (w + 1) * presLen
		sum := 0.0
		for _, v := range test[end-checkLen : end] {
			sum += v
		}
		errs[w] = sum/float64(checkLen) < cutoff
	}
	return errs, nil
}

// ErrorRate returns the fraction of error windows.
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

// Rates returns each layer's mean firing rate: the fraction of positive
// spike indicators divided by the sample interval (spikes/neuron/s).
func Rates(layers []*etensor.Float64, dt float64) []float64 {
	rates := make([]float64, len(layers))
	for i, l := range layers {
		if l.Len() == 0 || dt <= 0 {
			continue
		}
		n := 0
		for _, v := range l.Values {
			if v > 0 {
				n++
			}
		}
		rates[i] = float64(n) / float64(l.Len()) / dt
	}
	return rates
}

// Truncate restricts a run record to at most maxPres presentation
// windows, cutting the time axis, traces and spike trains to the
// corresponding span and the image/label sequences to the first windows.
// The receiver is not modified.
func Truncate(sr *archive.SpikingRun, maxPres int) *archive.SpikingRun {
	nPres := sr.NPres()
	if nPres > maxPres {
		nPres = maxPres
	}
	maxT := float64(nPres) * sr.PresTime
	nt := 0
	for nt < len(sr.T) && sr.T[nt] <= maxT {
		nt++
	}

	out := &archive.SpikingRun{PresTime: sr.PresTime}
	out.T = append([]float64{}, sr.T[:nt]...)
	out.Test = append([]float64{}, sr.Test[:nt]...)
	_, nc := sr.Classifier.Dims()
	out.Classifier = mat.NewDense(nt, nc, nil)
	for i := 0; i < nt; i++ {
		out.Classifier.SetRow(i, sr.Classifier.RawRowView(i))
	}
	if sr.Images != nil {
		np := nPres
		if d := sr.Images.Dim(0); np > d {
			np = d
		}
		cols := sr.Images.Dim(1)
		img := &etensor.Float64{}
		img.SetShape([]int{np, cols}, nil, []string{"Img", "Px"})
		copy(img.Values, sr.Images.Values[:np*cols])
		out.Images = img
	}
	if sr.Labels != nil {
		np := nPres
		if np > len(sr.Labels) {
			np = len(sr.Labels)
		}
		out.Labels = append([]int{}, sr.Labels[:np]...)
	}
	for _, l := range sr.Layers {
		nn := l.Dim(1)
		cut := &etensor.Float64{}
		cut.SetShape([]int{nt, nn}, nil, []string{"Time", "Nrn"})
		copy(cut.Values, l.Values[:nt*nn])
		out.Layers = append(out.Layers, cut)
	}
	return out
}

// ImageStrip horizontally concatenates the first n images (28x28
// row-major) into one 28 x 28n tensor for grid display.
func ImageStrip(images *etensor.Float64, n int) *etensor.Float64 {
	if images == nil {
		return nil
	}
	if d := images.Dim(0); n > d {
		n = d
	}
	strip := &etensor.Float64{}
	strip.SetShape([]int{mnist.Rows, mnist.Cols * n}, nil, []string{"Y", "X"})
	for i := 0; i < n; i++ {
		for r := 0; r < mnist.Rows; r++ {
			for c := 0; c < mnist.Cols; c++ {
				strip.Values[r*mnist.Cols*n+i*mnist.Cols+c] = images.Values[i*mnist.ImgSize+r*mnist.Cols+c]
			}
		}
	}
	return strip
}

// Raster transposes a spike train (time x neurons) into a neurons x time
// indicator tensor for row-per-neuron grid display, keeping at most
// maxNeurons neurons.
func Raster(layer *etensor.Float64, maxNeurons int) *etensor.Float64 {
	nt := layer.Dim(0)
	nn := layer.Dim(1)
	keep := nn
	if keep > maxNeurons {
		keep = maxNeurons
	}
	ras := &etensor.Float64{}
	ras.SetShape([]int{keep, nt}, nil, []string{"Nrn", "Time"})
	ras.SetMetaData("grid-fill", "1")
	for ti := 0; ti < nt; ti++ {
		for ni := 0; ni < keep; ni++ {
			if layer.Values[ti*nn+ni] > 0 {
				ras.Values[ni*nt+ti] = 1
			}
		}
	}
	return ras
}

// PresWave returns a 0/1 square wave toggling at each presentation
// boundary, the trace-plot stand-in for per-boundary separator lines.
func PresWave(t []float64, presTime float64) []float64 {
	wave := make([]float64, len(t))
	if presTime <= 0 {
		return wave
	}
	for i, tv := range t {
		if int(math.Floor(tv/presTime+1e-9))%2 == 1 {
			wave[i] = 1
		}
	}
	return wave
}
