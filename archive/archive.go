// Copyright (c) 2026, The Spikeview Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archive reads saved simulation result files: NumPy .npz
// containers holding either a static network parameter set or a spiking
// run record, distinguished by which members are present.
package archive

import (
	"fmt"
	"os"
	"strings"

	"github.com/emer/etable/etensor"
	"github.com/pkg/errors"
	"github.com/sbinet/npyio/npz"
	"github.com/snntools/spikeview/neurons"
	"gonum.org/v1/gonum/mat"
)

// Kind is the type of result file held in an archive.
type Kind int

const (
	// Unknown is an archive matching neither known member set.
	Unknown Kind = iota
	// Static is a feed-forward parameter set (weights_i, biases_i, Wc, bc).
	Static
	// Spiking is a spiking run record (t, classifier, test, pres_time).
	Spiking
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "static"
	case Spiking:
		return "spiking"
	}
	return "unknown"
}

// StaticParams is a stored feed-forward network: an ordered stack of
// (weights, biases) layer pairs, classifier weights and biases mapping
// the final hidden representation to class scores, and optional neuron
// model parameters.
type StaticParams struct {
	Weights   []*mat.Dense   `desc:"per-layer weight matrices, input x output"`
	Biases    [][]float64    `desc:"per-layer bias vectors"`
	Wc        *mat.Dense     `desc:"classifier weight matrix"`
	Bc        []float64      `desc:"classifier bias vector"`
	Neuron    neurons.Params `desc:"neuron model parameters"`
	HasNeuron bool           `desc:"whether the archive carried neuron parameters"`
}

// NLayers returns the number of hidden layers.
func (sp *StaticParams) NLayers() int { return len(sp.Weights) }

// SpikingRun is a stored spiking network run: a uniformly sampled time
// axis, the classifier output and binary correctness traces sampled per
// step, the presentation duration partitioning the run into equal
// windows, and optionally the per-presentation images and labels and
// per-layer spike trains (time steps x neurons).
type SpikingRun struct {
	T          []float64          `desc:"time stamps, uniformly spaced"`
	Classifier *mat.Dense         `desc:"classifier output per time step"`
	Test       []float64          `desc:"1 where the classifier output was correct at that step"`
	PresTime   float64            `desc:"duration each input is presented for (s)"`
	Images     *etensor.Float64   `desc:"optional per-presentation input images, n x 784"`
	Labels     []int              `desc:"optional per-presentation true labels"`
	Layers     []*etensor.Float64 `desc:"optional per-layer spike trains, steps x neurons"`
}

// Dt returns the sample interval of the time axis.
func (sr *SpikingRun) Dt() float64 {
	if len(sr.T) < 2 {
		return 0
	}
	return sr.T[1] - sr.T[0]
}

// NPres returns the total number of presentation windows in the record.
func (sr *SpikingRun) NPres() int {
	if sr.PresTime <= 0 || len(sr.T) == 0 {
		return 0
	}
	return int(sr.T[len(sr.T)-1] / sr.PresTime)
}

// Archive is an open result file. Members are read lazily by the typed
// decode methods; everything is held in memory by the npz reader.
type Archive struct {
	path string
	r    *npz.Reader
	keys map[string]string // canonical name -> member name
}

// Open opens a result archive. A missing file is reported as such before
// any decoding is attempted.
func Open(path string) (*Archive, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("cannot find '%s'", path)
		}
		return nil, errors.Wrapf(err, "cannot open '%s'", path)
	}
	r, err := npz.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read archive '%s'", path)
	}
	ar := &Archive{path: path, r: r, keys: map[string]string{}}
	for _, k := range r.Keys() {
		ar.keys[strings.TrimSuffix(k, ".npy")] = k
	}
	return ar, nil
}

// Close releases the underlying file.
func (ar *Archive) Close() error { return ar.r.Close() }

// Has reports whether the archive contains the named member (with or
// without the .npy suffix).
func (ar *Archive) Has(name string) bool {
	_, ok := ar.keys[name]
	return ok
}

// Keys lists the canonical member names.
func (ar *Archive) Keys() []string {
	ks := make([]string, 0, len(ar.keys))
	for k := range ar.keys {
		ks = append(ks, k)
	}
	return ks
}

// Kind classifies the archive by its member set.
func (ar *Archive) Kind() Kind {
	return ClassifyKeys(ar.Keys())
}

// ClassifyKeys classifies a member name set (suffix-stripped or not) as
// a static parameter set, a spiking run record, or unknown.
func ClassifyKeys(keys []string) Kind {
	set := map[string]bool{}
	for _, k := range keys {
		set[strings.TrimSuffix(k, ".npy")] = true
	}
	if set["weights_0"] && set["biases_0"] && set["Wc"] && set["bc"] {
		return Static
	}
	if set["t"] && set["classifier"] && set["test"] && set["pres_time"] {
		return Spiking
	}
	return Unknown
}

// Static decodes the archive as a static parameter set.
func (ar *Archive) Static() (*StaticParams, error) {
	if ar.Kind() != Static {
		return nil, errors.Errorf("archive '%s' is not a static parameter set", ar.path)
	}
	sp := &StaticParams{}
	for i := 0; ar.Has(layerKey("weights", i)); i++ {
		w, err := ar.readDense(layerKey("weights", i))
		if err != nil {
			return nil, err
		}
		if !ar.Has(layerKey("biases", i)) {
			return nil, errors.Errorf("archive '%s': weights_%d has no matching biases_%d", ar.path, i, i)
		}
		b, err := ar.readVector(layerKey("biases", i))
		if err != nil {
			return nil, err
		}
		sp.Weights = append(sp.Weights, w)
		sp.Biases = append(sp.Biases, b)
	}
	var err error
	if sp.Wc, err = ar.readDense("Wc"); err != nil {
		return nil, err
	}
	if sp.Bc, err = ar.readVector("bc"); err != nil {
		return nil, err
	}
	sp.Neuron, sp.HasNeuron, err = ar.readNeuron()
	if err != nil {
		return nil, err
	}
	return sp, nil
}

// Spiking decodes the archive as a spiking run record.
func (ar *Archive) Spiking() (*SpikingRun, error) {
	if ar.Kind() != Spiking {
		return nil, errors.Errorf("archive '%s' is not a spiking run record", ar.path)
	}
	sr := &SpikingRun{}
	var err error
	if sr.T, err = ar.readVector("t"); err != nil {
		return nil, err
	}
	if sr.Classifier, err = ar.readTrace("classifier"); err != nil {
		return nil, err
	}
	if sr.Test, err = ar.readVector("test"); err != nil {
		return nil, err
	}
	if sr.PresTime, err = ar.readScalar("pres_time"); err != nil {
		return nil, err
	}
	if ar.Has("images") {
		if sr.Images, err = ar.readTensor("images"); err != nil {
			return nil, err
		}
	}
	if ar.Has("labels") {
		if sr.Labels, err = ar.readInts("labels"); err != nil {
			return nil, err
		}
	}
	for i := 0; ar.Has(layerKey("layer", i)); i++ {
		l, err := ar.readTensor(layerKey("layer", i))
		if err != nil {
			return nil, err
		}
		sr.Layers = append(sr.Layers, l)
	}
	return sr, nil
}

func layerKey(base string, i int) string { return fmt.Sprintf("%s_%d", base, i) }

func (ar *Archive) member(name string) (string, error) {
	m, ok := ar.keys[name]
	if !ok {
		return "", errors.Errorf("archive '%s' has no member '%s'", ar.path, name)
	}
	return m, nil
}

// readDense reads a 2-D member into a dense matrix.
func (ar *Archive) readDense(name string) (*mat.Dense, error) {
	m, err := ar.member(name)
	if err != nil {
		return nil, err
	}
	var d mat.Dense
	if err := ar.r.Read(m, &d); err != nil {
		return nil, errors.Wrapf(err, "archive '%s': member '%s'", ar.path, name)
	}
	return &d, nil
}

// readVector reads a 1-D member, also accepting a single-column 2-D one.
func (ar *Archive) readVector(name string) ([]float64, error) {
	m, err := ar.member(name)
	if err != nil {
		return nil, err
	}
	var v []float64
	if err := ar.r.Read(m, &v); err == nil {
		return v, nil
	}
	var d mat.Dense
	if err := ar.r.Read(m, &d); err != nil {
		return nil, errors.Wrapf(err, "archive '%s': member '%s'", ar.path, name)
	}
	r, c := d.Dims()
	if c != 1 {
		return nil, errors.Errorf("archive '%s': member '%s' must be 1-D or a single column, not %dx%d", ar.path, name, r, c)
	}
	v = make([]float64, r)
	mat.Col(v, 0, &d)
	return v, nil
}

// readScalar reads a 0-D or single-element member.
func (ar *Archive) readScalar(name string) (float64, error) {
	m, err := ar.member(name)
	if err != nil {
		return 0, err
	}
	var f float64
	if err := ar.r.Read(m, &f); err == nil {
		return f, nil
	}
	var v []float64
	if err := ar.r.Read(m, &v); err != nil || len(v) == 0 {
		return 0, errors.Errorf("archive '%s': member '%s' is not a scalar", ar.path, name)
	}
	return v[0], nil
}

// readInts reads an integer member, also accepting float storage.
func (ar *Archive) readInts(name string) ([]int, error) {
	m, err := ar.member(name)
	if err != nil {
		return nil, err
	}
	var iv []int64
	if err := ar.r.Read(m, &iv); err == nil {
		out := make([]int, len(iv))
		for i, v := range iv {
			out[i] = int(v)
		}
		return out, nil
	}
	fv, err := ar.readVector(name)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(fv))
	for i, v := range fv {
		out[i] = int(v)
	}
	return out, nil
}

// readTrace reads a per-step trace: 1-D becomes a single-column matrix.
func (ar *Archive) readTrace(name string) (*mat.Dense, error) {
	m, err := ar.member(name)
	if err != nil {
		return nil, err
	}
	var v []float64
	if err := ar.r.Read(m, &v); err == nil {
		return mat.NewDense(len(v), 1, v), nil
	}
	return ar.readDense(name)
}

// readTensor reads a 2-D member into an etensor for grid display.
func (ar *Archive) readTensor(name string) (*etensor.Float64, error) {
	d, err := ar.readDense(name)
	if err != nil {
		return nil, err
	}
	return DenseToTensor(d), nil
}

// readNeuron collects the optional neuron_* scalar members, filling any
// missing ones from the model defaults.
func (ar *Archive) readNeuron() (neurons.Params, bool, error) {
	p := neurons.Defaults()
	has := false
	fields := []struct {
		key string
		dst *float64
	}{
		{"neuron_sigma", &p.Sigma},
		{"neuron_tau_rc", &p.TauRC},
		{"neuron_tau_ref", &p.TauRef},
		{"neuron_gain", &p.Gain},
		{"neuron_bias", &p.Bias},
		{"neuron_amp", &p.Amp},
	}
	for _, f := range fields {
		if !ar.Has(f.key) {
			continue
		}
		v, err := ar.readScalar(f.key)
		if err != nil {
			return p, false, err
		}
		*f.dst = v
		has = true
	}
	return p, has, nil
}

// DenseToTensor copies a dense matrix into a row-major 2-D tensor.
func DenseToTensor(d *mat.Dense) *etensor.Float64 {
	r, c := d.Dims()
	tsr := &etensor.Float64{}
	tsr.SetShape([]int{r, c}, nil, []string{"Row", "Col"})
	for i := 0; i < r; i++ {
		copy(tsr.Values[i*c:(i+1)*c], d.RawRowView(i))
	}
	return tsr
}
