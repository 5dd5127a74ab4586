// Copyright (c) 2026, The Spikeview Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
spikeview: view saved network or spiking network results. Given a result
archive it computes the classification error, prints per-layer
diagnostics, and shows the figures (activation histograms for static
parameter sets; input strip, spike rasters and classifier/correctness
traces for spiking runs) in a window that blocks until closed.
*/
package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
	"github.com/emer/etable/eplot"
	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"
	"github.com/emer/etable/etview"
	"github.com/goki/gi/gi"
	"github.com/goki/gi/gimain"
	"github.com/goki/gi/giv"
	"github.com/goki/ki/ki"
	"github.com/goki/ki/kit"
	"github.com/snntools/spikeview/archive"
	"github.com/snntools/spikeview/mnist"
	"github.com/snntools/spikeview/neurons"
	"github.com/snntools/spikeview/spikenet"
	"github.com/snntools/spikeview/staticnet"
	"gonum.org/v1/gonum/mat"
)

// this is the stub main for gogi that runs the GUI after the compute
// phase has printed its diagnostics
func main() {
	if err := TheViewer.CmdArgs(); err != nil {
		log.Fatal(err)
	}
	if err := TheViewer.Open(); err != nil {
		log.Fatal(err)
	}
	if TheViewer.NoGui {
		return
	}
	gimain.Main(func() {
		mainrun()
	})
}

func mainrun() {
	win := TheViewer.ConfigGui()
	win.StartEventLoop()
}

// Viewer holds one loaded result archive plus everything derived from it
// for display. All state is read once at startup and never mutated.
type Viewer struct {
	LoadFile string       `inactive:"+" desc:"result archive being viewed"`
	MnistDir string       `inactive:"+" desc:"directory holding the reference dataset"`
	Spaun    bool         `inactive:"+" desc:"test with the augmented dataset variant"`
	SaveFile string       `inactive:"+" desc:"optional path the figure was saved to"`
	Kind     archive.Kind `inactive:"+" desc:"kind of result archive"`

	Static   *archive.StaticParams `view:"-" desc:"static parameter set, when Kind is Static"`
	Run      *archive.SpikingRun   `view:"-" desc:"truncated spiking run, when Kind is Spiking"`
	StatsLog *etable.Table         `view:"no-inline" desc:"per-layer statistics -- click to inspect"`
	TraceLog *etable.Table         `view:"no-inline" desc:"classifier/correctness traces -- click to inspect"`

	// internal state - view:"-"
	NoGui       bool               `view:"-" desc:"print diagnostics only, no window"`
	HistTabs    []*etable.Table    `view:"-" desc:"one histogram table per layer"`
	Strip       *etensor.Float64   `view:"-" desc:"input image strip"`
	Rasters     []*etensor.Float64 `view:"-" desc:"per-layer spike rasters"`
	Win         *gi.Window         `view:"-" desc:"main GUI window"`
	ToolBar     *gi.ToolBar        `view:"-" desc:"the master toolbar"`
	TracePlot   *eplot.Plot2D      `view:"-" desc:"classifier trace plot"`
	CorrectPlot *eplot.Plot2D      `view:"-" desc:"correctness trace plot"`
	HistPlots   []*eplot.Plot2D    `view:"-" desc:"histogram plots"`
}

// this registers this Viewer Type and gives it properties that e.g.,
// prompt for filename for save methods.
var KiT_Viewer = kit.Types.AddType(&Viewer{}, ViewerProps)

// TheViewer is the overall state for the viewer
var TheViewer Viewer

// CmdArgs parses the command line: one positional archive path, plus
// the dataset/save/nogui flags.
func (ss *Viewer) CmdArgs() error {
	flag.StringVar(&ss.MnistDir, "mnist", "resources", "directory holding the reference MNIST csv files")
	flag.StringVar(&ss.SaveFile, "save", "", "save the spiking figure to this file after computing")
	flag.BoolVar(&ss.Spaun, "spaun", false, "test with augmented dataset for Spaun")
	flag.BoolVar(&ss.NoGui, "nogui", false, "print diagnostics without opening the viewer window")
	flag.Parse()
	ss.LoadFile = flag.Arg(0)
	if ss.LoadFile == "" {
		return fmt.Errorf("usage: spikeview [flags] <results.npz> -- parameter or spiking record file to load")
	}
	return nil
}

// Open loads the archive, dispatches on its member set, computes the
// error metrics and prints all diagnostics. The tables, strips and
// rasters backing the views are configured here as well.
func (ss *Viewer) Open() error {
	ar, err := archive.Open(ss.LoadFile)
	if err != nil {
		return err
	}
	defer ar.Close()

	ss.Kind = ar.Kind()
	switch ss.Kind {
	case archive.Static:
		return ss.OpenStatic(ar)
	case archive.Spiking:
		return ss.OpenSpiking(ar)
	}
	return fmt.Errorf("unrecognized load file type: '%s' has keys %v", ss.LoadFile, ar.Keys())
}

////////////////////////////////////////////////////////////////////////////////
//   Static pipeline

// OpenStatic evaluates a stored feed-forward network on the reference
// dataset with the smoothed and hard neuron response functions, printing
// the error for each and the layer diagnostics for the hard variant.
func (ss *Viewer) OpenStatic(ar *archive.Archive) error {
	sp, err := ar.Static()
	if err != nil {
		return err
	}
	ss.Static = sp

	data, err := mnist.Load(ss.MnistDir, mnist.Config{Normalize: true, Shuffle: true, Spaun: ss.Spaun})
	if err != nil {
		return err
	}
	classes := staticnet.Classes(data.Labels)
	if len(classes) != len(sp.Bc) {
		return fmt.Errorf("dataset has %d distinct labels but classifier has %d outputs", len(classes), len(sp.Bc))
	}
	images := mat.NewDense(data.Len(), mnist.ImgSize, data.Images.Values)

	var layers []*mat.Dense
	var scores *mat.Dense
	for _, nm := range []string{"softlif", "lif"} {
		f, err := neurons.Get(nm, sp.Neuron)
		if err != nil {
			return err
		}
		layers, _, scores = staticnet.Forward(sp, images, f)
		errs := staticnet.Errors(scores, data.Labels)
		fmt.Printf("----- Static network with %s -----\n", nm)
		fmt.Printf("Static error: %0.2f%%\n", 100*staticnet.ErrorRate(errs))
	}

	// layer diagnostics are for the last (hard threshold) run
	for i, layer := range layers {
		mean, s0, s1 := staticnet.LayerStats(layer)
		fmt.Printf("Layer %d: mean=%0.3f; sparsity=%0.3f (>0), %0.3f (>1)\n", i, mean, s0, s1)
	}
	mean, std, min, max := staticnet.ScoreStats(scores)
	fmt.Printf("Classifier: mean=%0.3f, std=%0.3f, min=%0.3f, max=%0.3f\n", mean, std, min, max)

	ss.ConfigStatsLog(layers)
	ss.ConfigHistTabs(layers)
	return nil
}

// ConfigStatsLog records the per-layer statistics into a table.
func (ss *Viewer) ConfigStatsLog(layers []*mat.Dense) {
	dt := &etable.Table{}
	dt.SetMetaData("name", "LayerStats")
	dt.SetMetaData("desc", "Per-layer activation statistics (hard threshold run)")
	dt.SetMetaData("read-only", "true")
	sch := etable.Schema{
		{"Layer", etensor.INT64, nil, nil},
		{"Mean", etensor.FLOAT64, nil, nil},
		{"FracGT0", etensor.FLOAT64, nil, nil},
		{"FracGT1", etensor.FLOAT64, nil, nil},
	}
	dt.SetFromSchema(sch, len(layers))
	for i, layer := range layers {
		mean, s0, s1 := staticnet.LayerStats(layer)
		dt.SetCellFloat("Layer", i, float64(i))
		dt.SetCellFloat("Mean", i, mean)
		dt.SetCellFloat("FracGT0", i, s0)
		dt.SetCellFloat("FracGT1", i, s1)
	}
	ss.StatsLog = dt
}

// ConfigHistTabs bins each layer's activations into a histogram table.
func (ss *Viewer) ConfigHistTabs(layers []*mat.Dense) {
	ss.HistTabs = nil
	for i, layer := range layers {
		counts, centers := staticnet.Hist(staticnet.Flatten(layer), staticnet.HistBins)
		dt := &etable.Table{}
		dt.SetMetaData("name", fmt.Sprintf("Layer%dHist", i))
		dt.SetMetaData("read-only", "true")
		sch := etable.Schema{
			{"Act", etensor.FLOAT64, nil, nil},
			{"Count", etensor.FLOAT64, nil, nil},
		}
		dt.SetFromSchema(sch, len(counts))
		for b := range counts {
			dt.SetCellFloat("Act", b, centers[b])
			dt.SetCellFloat("Count", b, counts[b])
		}
		ss.HistTabs = append(ss.HistTabs, dt)
	}
}

func (ss *Viewer) ConfigHistPlot(plt *eplot.Plot2D, dt *etable.Table, li int) *eplot.Plot2D {
	plt.Params.Title = fmt.Sprintf("Layer %d Activations", li)
	plt.Params.XAxisCol = "Act"
	plt.Params.Type = eplot.Bar
	plt.SetTable(dt) // this sets defaults so set params after
	// order of params: on, fixMin, min, fixMax, max
	plt.SetColParams("Act", eplot.Off, eplot.FloatMin, 0, eplot.FloatMax, 0)
	plt.SetColParams("Count", eplot.On, eplot.FixMin, 0, eplot.FloatMax, 0)
	return plt
}

////////////////////////////////////////////////////////////////////////////////
//   Spiking pipeline

// OpenSpiking computes the windowed error and firing rates on the full
// record, then truncates to the presentation cap for the views.
func (ss *Viewer) OpenSpiking(ar *archive.Archive) error {
	sr, err := ar.Spiking()
	if err != nil {
		return err
	}

	errs, err := spikenet.Errors(sr.T, sr.Test, sr.PresTime, spikenet.CheckTime, spikenet.Cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("Spiking network error: %0.2f%%\n", 100*spikenet.ErrorRate(errs))

	for i, rate := range spikenet.Rates(sr.Layers, sr.Dt()) {
		fmt.Printf("Layer %d: %0.3f spikes / neuron / s\n", i+1, rate)
	}

	tr := spikenet.Truncate(sr, spikenet.MaxPres)
	ss.Run = tr
	if tr.Images != nil {
		ss.Strip = spikenet.ImageStrip(tr.Images, tr.Images.Dim(0))
		ss.Strip.SetMetaData("grid-fill", "1")
	}
	ss.Rasters = nil
	for _, l := range tr.Layers {
		ss.Rasters = append(ss.Rasters, spikenet.Raster(l, spikenet.MaxNeurons))
	}
	ss.ConfigTraceLog(tr)

	if ss.SaveFile != "" {
		ss.SaveFigure(gi.FileName(ss.SaveFile))
	}
	return nil
}

// ConfigTraceLog records the truncated classifier / correctness traces
// along with the presentation boundary wave.
func (ss *Viewer) ConfigTraceLog(tr *archive.SpikingRun) {
	dt := &etable.Table{}
	dt.SetMetaData("name", "SpikingTraces")
	dt.SetMetaData("desc", "Classifier and correctness traces over shown presentations")
	dt.SetMetaData("read-only", "true")
	_, nc := tr.Classifier.Dims()
	sch := etable.Schema{
		{"Time", etensor.FLOAT64, nil, nil},
	}
	for j := 0; j < nc; j++ {
		sch = append(sch, etable.Column{ss.classCol(j, nc), etensor.FLOAT64, nil, nil})
	}
	sch = append(sch, etable.Column{"Correct", etensor.FLOAT64, nil, nil})
	sch = append(sch, etable.Column{"Pres", etensor.FLOAT64, nil, nil})

	wave := spikenet.PresWave(tr.T, tr.PresTime)
	dt.SetFromSchema(sch, len(tr.T))
	for i, tv := range tr.T {
		dt.SetCellFloat("Time", i, tv)
		for j := 0; j < nc; j++ {
			dt.SetCellFloat(ss.classCol(j, nc), i, tr.Classifier.At(i, j))
		}
		dt.SetCellFloat("Correct", i, tr.Test[i])
		dt.SetCellFloat("Pres", i, wave[i])
	}
	ss.TraceLog = dt
}

func (ss *Viewer) classCol(j, nc int) string {
	if nc == 1 {
		return "Class"
	}
	return fmt.Sprintf("Class%d", j)
}

func (ss *Viewer) ConfigTracePlot(plt *eplot.Plot2D, dt *etable.Table) *eplot.Plot2D {
	plt.Params.Title = "Classifier Output"
	plt.Params.XAxisCol = "Time"
	plt.SetTable(dt)
	// order of params: on, fixMin, min, fixMax, max
	plt.SetColParams("Time", eplot.Off, eplot.FloatMin, 0, eplot.FloatMax, 0)
	for _, cl := range dt.ColNames {
		if strings.HasPrefix(cl, "Class") {
			plt.SetColParams(cl, eplot.On, eplot.FloatMin, 0, eplot.FloatMax, 0)
		}
	}
	plt.SetColParams("Correct", eplot.Off, eplot.FixMin, -0.1, eplot.FixMax, 1.1)
	plt.SetColParams("Pres", eplot.On, eplot.FixMin, 0, eplot.FixMax, 1)
	return plt
}

func (ss *Viewer) ConfigCorrectPlot(plt *eplot.Plot2D, dt *etable.Table) *eplot.Plot2D {
	plt.Params.Title = "Correct"
	plt.Params.XAxisCol = "Time"
	plt.SetTable(dt)
	plt.SetColParams("Time", eplot.Off, eplot.FloatMin, 0, eplot.FloatMax, 0)
	plt.SetColParams("Correct", eplot.On, eplot.FixMin, -0.1, eplot.FixMax, 1.1)
	plt.SetColParams("Pres", eplot.On, eplot.FixMin, 0, eplot.FixMax, 1)
	return plt
}

// SaveFigure saves the input image strip as a PNG (4x nearest-neighbor
// upscale) and the trace table alongside it as TSV -- when called with
// giv.CallMethod it will auto-prompt for filename.
func (ss *Viewer) SaveFigure(fname gi.FileName) {
	if ss.Strip == nil {
		log.Println("no image strip to save -- record has no images")
		return
	}
	h := ss.Strip.Dim(0)
	w := ss.Strip.Dim(1)
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range ss.Strip.Values {
		g := v * 255
		if g < 0 {
			g = 0
		} else if g > 255 {
			g = 255
		}
		img.Pix[i] = uint8(g)
	}
	big := transform.Resize(img, 4*w, 4*h, transform.NearestNeighbor)
	if err := imgio.Save(string(fname), big, imgio.PNGEncoder()); err != nil {
		log.Println(err)
		return
	}
	fmt.Printf("Saved image at '%s'\n", fname)
	if ss.TraceLog != nil {
		base := strings.TrimSuffix(string(fname), filepath.Ext(string(fname)))
		ss.TraceLog.SaveCSV(gi.FileName(base+".tsv"), etable.Tab, etable.Headers)
	}
}

////////////////////////////////////////////////////////////////////////////////
// 		Gui

// ConfigGui configures the GoGi gui interface for the viewer
func (ss *Viewer) ConfigGui() *gi.Window {
	width := 1600
	height := 1200

	gi.SetAppName("spikeview")
	gi.SetAppAbout(`spikeview displays saved network and spiking network results: classification error, per-layer activation histograms, input image strips, spike rasters and classifier/correctness traces.`)

	win := gi.NewWindow2D("spikeview", "Spikeview Results", width, height, true)
	ss.Win = win

	vp := win.WinViewport2D()
	updt := vp.UpdateStart()

	mfr := win.SetMainFrame()

	tbar := gi.AddNewToolBar(mfr, "tbar")
	tbar.SetStretchMaxWidth()
	ss.ToolBar = tbar

	split := gi.AddNewSplitView(mfr, "split")
	split.Dim = gi.X
	split.SetStretchMaxWidth()
	split.SetStretchMaxHeight()

	sv := giv.AddNewStructView(split, "sv")
	sv.SetStruct(ss)

	tv := gi.AddNewTabView(split, "tv")

	switch ss.Kind {
	case archive.Static:
		for i, dt := range ss.HistTabs {
			plt := tv.AddNewTab(eplot.KiT_Plot2D, fmt.Sprintf("Layer %d Hist", i)).(*eplot.Plot2D)
			ss.HistPlots = append(ss.HistPlots, ss.ConfigHistPlot(plt, dt, i))
		}
		stv := tv.AddNewTab(etview.KiT_TableView, "Stats").(*etview.TableView)
		stv.SetTable(ss.StatsLog, nil)
	case archive.Spiking:
		if ss.Strip != nil {
			tg := tv.AddNewTab(etview.KiT_TensorGrid, "Inputs").(*etview.TensorGrid)
			tg.SetStretchMax()
			tg.SetTensor(ss.Strip)
		}
		for i, ras := range ss.Rasters {
			nn := ss.Run.Layers[i].Dim(1)
			tg := tv.AddNewTab(etview.KiT_TensorGrid, fmt.Sprintf("layer %d (%d)", i+1, nn)).(*etview.TensorGrid)
			tg.SetStretchMax()
			tg.SetTensor(ras)
		}
		plt := tv.AddNewTab(eplot.KiT_Plot2D, "Classifier").(*eplot.Plot2D)
		ss.TracePlot = ss.ConfigTracePlot(plt, ss.TraceLog)
		cplt := tv.AddNewTab(eplot.KiT_Plot2D, "Correct").(*eplot.Plot2D)
		ss.CorrectPlot = ss.ConfigCorrectPlot(cplt, ss.TraceLog)
	}

	split.SetSplits(.2, .8)

	if ss.Kind == archive.Spiking {
		tbar.AddAction(gi.ActOpts{Label: "Save Figure", Icon: "file-save", Tooltip: "Saves the input strip figure (PNG) and trace table (TSV) to a chosen file."}, win.This(),
			func(recv, send ki.Ki, sig int64, data interface{}) {
				giv.CallMethod(ss, "SaveFigure", vp)
			})
	}

	tbar.AddAction(gi.ActOpts{Label: "README", Icon: "file-markdown", Tooltip: "Opens your browser on the README file that contains instructions for how to use this viewer."}, win.This(),
		func(recv, send ki.Ki, sig int64, data interface{}) {
			gi.OpenURL("https://github.com/snntools/spikeview/blob/master/README.md")
		})

	vp.UpdateEndNoSig(updt)

	// main menu
	appnm := gi.AppName()
	mmen := win.MainMenu
	mmen.ConfigMenus([]string{appnm, "File", "Edit", "Window"})

	amen := win.MainMenu.ChildByName(appnm, 0).(*gi.Action)
	amen.Menu.AddAppMenu(win)

	emen := win.MainMenu.ChildByName("Edit", 1).(*gi.Action)
	emen.Menu.AddCopyCutPaste(win)

	win.SetCloseCleanFunc(func(w *gi.Window) {
		go gi.Quit() // once main window is closed, quit
	})

	win.MainMenuUpdated()
	return win
}

// These props register the save method so it can prompt for a filename
var ViewerProps = ki.Props{
	"CallMethods": ki.PropSlice{
		{"SaveFigure", ki.Props{
			"desc": "save the figure image to file",
			"icon": "file-save",
			"Args": ki.PropSlice{
				{"File Name", ki.Props{
					"ext": ".png",
				}},
			},
		}},
	},
}
