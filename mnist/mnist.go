// Copyright (c) 2026, The Spikeview Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mnist loads the reference image/label dataset used to test
// stored networks. Files are CSV rows of <label>,p0,...,p783 with pixel
// values in [0, 255], the standard flat export of the MNIST test set.
package mnist

import (
	"bufio"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/transform"
	"github.com/emer/etable/etensor"
	"github.com/emer/vision/vfilter"
	"github.com/pkg/errors"
)

const (
	// ImgSize is the flattened image size (28x28).
	ImgSize = 784
	// Rows and Cols are the image dimensions.
	Rows = 28
	Cols = 28
	// NumClasses is the number of digit classes.
	NumClasses = 10
	// MaxInput is the maximum raw pixel value.
	MaxInput = 255

	// TestFile is the test set file name within the dataset directory.
	TestFile = "mnist_test.csv"
)

// Config selects dataset loading options.
type Config struct {
	Normalize bool `desc:"scale pixel values to [0, 1]"`
	Shuffle   bool `desc:"randomly permute the example order"`
	Spaun     bool `desc:"augment with jitter-transformed copies of each image"`
}

// Dataset is a fixed-size collection of flattened images paired 1:1 with
// integer class labels.
type Dataset struct {
	Images *etensor.Float64 `desc:"n x 784 image values"`
	Labels []int            `desc:"true class per image"`
}

// Len returns the number of examples.
func (ds *Dataset) Len() int { return len(ds.Labels) }

// Load reads the test set from dir according to cfg.
func Load(dir string, cfg Config) (*Dataset, error) {
	raws, labels, err := readCSV(filepath.Join(dir, TestFile))
	if err != nil {
		return nil, err
	}
	if cfg.Spaun {
		raws, labels = augment(raws, labels)
	}

	n := len(raws)
	ds := &Dataset{Labels: labels}
	ds.Images = &etensor.Float64{}
	ds.Images.SetShape([]int{n, ImgSize}, nil, []string{"Img", "Px"})
	for i, raw := range raws {
		row := ds.Images.Values[i*ImgSize : (i+1)*ImgSize]
		for j, p := range raw {
			if cfg.Normalize {
				row[j] = float64(p) / MaxInput
			} else {
				row[j] = float64(p)
			}
		}
	}

	if cfg.Shuffle {
		shuffle(ds)
	}
	return ds, nil
}

// readCSV parses <label>,p0,...,p783 rows.
func readCSV(fname string) ([][]uint8, []int, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cannot open dataset file %s", fname)
	}
	defer f.Close()

	var raws [][]uint8
	var labels []int
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 16*1024), 1024*1024)
	for i := 0; sc.Scan(); i++ {
		raw, class, err := parseLine(sc.Text())
		if err != nil {
			return nil, nil, errors.Wrapf(err, "line %d of %s", i, fname)
		}
		raws = append(raws, raw)
		labels = append(labels, class)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, errors.Wrapf(err, "scanning %s", fname)
	}
	if len(raws) == 0 {
		return nil, nil, errors.Errorf("dataset file %s is empty", fname)
	}
	return raws, labels, nil
}

func parseLine(str string) ([]uint8, int, error) {
	s := strings.Split(strings.TrimSuffix(str, ","), ",")
	if len(s) != ImgSize+1 {
		return nil, 0, errors.Errorf("wrong number of values (had %d, want %d)", len(s), ImgSize+1)
	}
	class, err := strconv.Atoi(strings.TrimSpace(s[0]))
	if err != nil {
		return nil, 0, errors.Wrapf(err, "cannot parse class %q", s[0])
	}
	if class < 0 || class >= NumClasses {
		return nil, 0, errors.Errorf("class out of bounds (%d >= %d)", class, NumClasses)
	}
	raw := make([]uint8, ImgSize)
	for i := 0; i < ImgSize; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(s[i+1]))
		if err != nil {
			return nil, 0, errors.Wrapf(err, "cannot parse pixel %d (%q)", i, s[i+1])
		}
		raw[i] = uint8(v)
	}
	return raw, class, nil
}

// augment appends one rotation+translation jittered copy per image,
// preserving labels (so the distinct label set is unchanged).
func augment(raws [][]uint8, labels []int) ([][]uint8, []int) {
	rnd := rand.New(rand.NewSource(1))
	n := len(raws)
	for i := 0; i < n; i++ {
		img := toImage(raws[i])
		ang := rnd.Float64()*20 - 10 // degrees
		dx := rnd.Intn(5) - 2
		dy := rnd.Intn(5) - 2
		out := transform.Rotate(img, ang, &transform.RotationOptions{ResizeBounds: false})
		out = transform.Translate(out, dx, dy)
		raws = append(raws, fromImage(out))
		labels = append(labels, labels[i])
	}
	return raws, labels
}

func toImage(raw []uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, Cols, Rows))
	copy(img.Pix, raw)
	return img
}

// fromImage flattens an image back into raw pixel bytes, going through
// the same grey-tensor conversion the vision filters use.
func fromImage(img image.Image) []uint8 {
	var tsr etensor.Float32
	vfilter.RGBToGrey(img, &tsr, 0, false)
	raw := make([]uint8, ImgSize)
	for i, v := range tsr.Values {
		if i >= ImgSize {
			break
		}
		g := v * MaxInput
		if g < 0 {
			g = 0
		} else if g > MaxInput {
			g = MaxInput
		}
		raw[i] = uint8(g)
	}
	return raw
}

// shuffle permutes images and labels with one shared permutation.
func shuffle(ds *Dataset) {
	tmp := make([]float64, ImgSize)
	rand.Shuffle(ds.Len(), func(i, j int) {
		ds.Labels[i], ds.Labels[j] = ds.Labels[j], ds.Labels[i]
		ri := ds.Images.Values[i*ImgSize : (i+1)*ImgSize]
		rj := ds.Images.Values[j*ImgSize : (j+1)*ImgSize]
		copy(tmp, ri)
		copy(ri, rj)
		copy(rj, tmp)
	})
}
