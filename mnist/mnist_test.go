// Copyright (c) 2026, The Spikeview Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mnist

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// csvLine builds one <label>,p0..p783 row with pixel 0 set to p0 and the
// rest zero.
func csvLine(label int, p0 uint8) string {
	vals := make([]string, ImgSize+1)
	vals[0] = strconv.Itoa(label)
	vals[1] = strconv.Itoa(int(p0))
	for i := 2; i < len(vals); i++ {
		vals[i] = "0"
	}
	return strings.Join(vals, ",")
}

func writeTestSet(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	data := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, TestFile), []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeTestSet(t, csvLine(7, 255), csvLine(2, 51), csvLine(1, 0))
	ds, err := Load(dir, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 3 {
		t.Fatalf("Len = %d, want 3", ds.Len())
	}
	if ds.Labels[0] != 7 || ds.Labels[1] != 2 || ds.Labels[2] != 1 {
		t.Errorf("labels = %v, want [7 2 1]", ds.Labels)
	}
	if got := ds.Images.Values[0]; got != 255 {
		t.Errorf("raw pixel = %g, want 255", got)
	}
	if ds.Images.Dim(0) != 3 || ds.Images.Dim(1) != ImgSize {
		t.Errorf("image dims %dx%d, want 3x%d", ds.Images.Dim(0), ds.Images.Dim(1), ImgSize)
	}
}

func TestLoadNormalize(t *testing.T) {
	dir := writeTestSet(t, csvLine(0, 255), csvLine(1, 51))
	ds, err := Load(dir, Config{Normalize: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := ds.Images.Values[0]; got != 1 {
		t.Errorf("normalized 255 = %g, want 1", got)
	}
	if got := ds.Images.Values[ImgSize]; got != 0.2 {
		t.Errorf("normalized 51 = %g, want 0.2", got)
	}
}

func TestLoadShuffleKeepsPairing(t *testing.T) {
	// pixel 0 encodes the label, so the pairing must survive the
	// shared permutation
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = csvLine(i, uint8(i))
	}
	dir := writeTestSet(t, lines...)
	ds, err := Load(dir, Config{Shuffle: true})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < ds.Len(); i++ {
		if got := ds.Images.Values[i*ImgSize]; got != float64(ds.Labels[i]) {
			t.Errorf("example %d: pixel 0 = %g, label %d; permutation split the pair", i, got, ds.Labels[i])
		}
	}
}

func TestLoadSpaun(t *testing.T) {
	dir := writeTestSet(t, csvLine(3, 200), csvLine(8, 100))
	ds, err := Load(dir, Config{Spaun: true})
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 4 {
		t.Fatalf("augmented Len = %d, want 4", ds.Len())
	}
	counts := map[int]int{}
	for _, l := range ds.Labels {
		counts[l]++
	}
	if counts[3] != 2 || counts[8] != 2 {
		t.Errorf("label counts = %v, want each doubled", counts)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir(), Config{}); err == nil {
		t.Errorf("missing dataset file should error")
	}
}

func TestLoadEmpty(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, TestFile), nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, Config{}); err == nil {
		t.Errorf("empty dataset file should error")
	}
}

func TestParseLine(t *testing.T) {
	raw, class, err := parseLine(csvLine(4, 9))
	if err != nil {
		t.Fatal(err)
	}
	if class != 4 || raw[0] != 9 || len(raw) != ImgSize {
		t.Errorf("parseLine: class %d, raw[0] %d, len %d", class, raw[0], len(raw))
	}
	if _, _, err := parseLine("1,2,3"); err == nil {
		t.Errorf("short line should error")
	}
	if _, _, err := parseLine(csvLine(12, 0)); err == nil {
		t.Errorf("out of range class should error")
	}
	if _, _, err := parseLine("x" + csvLine(1, 0)[1:]); err == nil {
		t.Errorf("non-numeric class should error")
	}
}

func TestImageRoundTrip(t *testing.T) {
	raw := make([]uint8, ImgSize)
	raw[5*Cols+5] = 255
	raw[10*Cols+20] = 128
	got := fromImage(toImage(raw))
	for i := range raw {
		d := int(got[i]) - int(raw[i])
		if d < -1 || d > 1 {
			t.Errorf("pixel %d: %d -> %d", i, raw[i], got[i])
		}
	}
}
