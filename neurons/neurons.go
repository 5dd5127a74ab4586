// Copyright (c) 2026, The Spikeview Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package neurons provides the neuron response functions used to evaluate
// stored networks, looked up by name with a shared parameter set.
package neurons

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Params are the neuron model parameters. Sigma is only used by the
// smoothed (softlif) variant.
type Params struct {
	Sigma  float64 `desc:"smoothing of the firing rate around threshold"`
	TauRC  float64 `desc:"membrane RC time constant (s)"`
	TauRef float64 `desc:"refractory period (s)"`
	Gain   float64 `desc:"input gain"`
	Bias   float64 `desc:"input bias"`
	Amp    float64 `desc:"output amplitude scaling"`
}

// Defaults returns the parameters used when an archive carries none.
func Defaults() Params {
	return Params{Sigma: 0.01, TauRC: 0.02, TauRef: 0.002, Gain: 1, Bias: 1, Amp: 1.0 / 63.04}
}

// Func maps a scalar input current to a firing rate.
type Func func(x float64) float64

var registry = map[string]func(Params) Func{}

// Register adds a named response function constructor. Registering the
// same name twice panics, as that is always a programming error.
func Register(name string, fn func(Params) Func) {
	if _, ok := registry[name]; ok {
		panic("neurons: duplicate registration of " + name)
	}
	registry[name] = fn
}

func init() {
	Register("lif", LIF)
	Register("softlif", SoftLIF)
}

// Get resolves a response function by name with the given parameters.
func Get(name string, p Params) (Func, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("neurons: no function named %q (have %v)", name, Names())
	}
	return fn(p), nil
}

// Names lists the registered function names, sorted.
func Names() []string {
	nms := make([]string, 0, len(registry))
	for nm := range registry {
		nms = append(nms, nm)
	}
	sort.Strings(nms)
	return nms
}

// LIF is the hard-threshold leaky integrate-and-fire rate response:
// zero below threshold, Amp / (TauRef + TauRC*ln(1 + 1/j)) above, where
// j = Gain*x + Bias - 1.
func LIF(p Params) Func {
	return func(x float64) float64 {
		j := p.Gain*x + p.Bias - 1
		if j <= 0 {
			return 0
		}
		return p.Amp / (p.TauRef + p.TauRC*math.Log1p(1/j))
	}
}

// SoftLIF smooths the LIF response around threshold by replacing the
// threshold current j with Sigma*ln(1 + exp(j/Sigma)), which approaches
// the hard response as Sigma -> 0 but is differentiable everywhere.
func SoftLIF(p Params) Func {
	return func(x float64) float64 {
		j := p.Gain*x + p.Bias - 1
		v := j / p.Sigma
		if v < 34 { // exp overflow guard; log1p(exp(v)) == v beyond this
			j = p.Sigma * math.Log1p(math.Exp(v))
		}
		if j <= 0 {
			return 0
		}
		return p.Amp / (p.TauRef + p.TauRC*math.Log1p(1/j))
	}
}
