// Copyright (c) 2026, The Spikeview Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/* Package spikeview inspects saved results of deep spiking classifier
simulations: static feed-forward parameter archives and spiking run
records. It computes classification error metrics and renders diagnostic
views (activation histograms, input image strips, spike rasters, and
classifier / correctness traces) using the emergent etable/eplot stack.

The viewer application lives in cmd/spikeview; the analysis components
(archive, mnist, neurons, staticnet, spikenet) are usable as libraries.
*/
package spikeview
