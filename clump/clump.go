// Package clump groups nodata cells of a raster into patches. Zero valued
// cells are spread over a focal window, the spread mask is labelled with
// 8-connectivity and the labels are added to the original values.
package clump

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/airbusgeo/godal"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/erick-otenyo/gisflow/grid"
	"github.com/erick-otenyo/gisflow/raster"
	"github.com/erick-otenyo/gisflow/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

var ErrOutOfRange = errors.New("clumped values do not fit the output data type")

type Options struct {
	// Distance is the focal window size in pixels.
	Distance int
	// TileW and TileH bound a processing tile. Rasters of at most four
	// tiles are processed in one piece.
	TileW, TileH int
	// WriteTo writes tiles and the mosaic next to the input, or in
	// OutputDir when set.
	WriteTo   bool
	OutputDir string
	// DataType of the written rasters. Unknown picks Int32 when the input
	// type fits in it and Float64 otherwise.
	DataType godal.DataType
	Workers  int
}

func DefaultOptions() Options {
	return Options{Distance: 3, TileW: 1000, TileH: 1000, WriteTo: true}
}

// Result summarises a clumping run. Output is empty when nothing was
// written.
type Result struct {
	Values  []float64
	Tiles   int
	Output  string
	Elapsed time.Duration
}

// Run clumps the first band of the raster at path.
func Run(path string, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Distance < 1 {
		return nil, fmt.Errorf("distance must be at least 1, got %d", opts.Distance)
	}
	if opts.TileW < 1 || opts.TileH < 1 {
		return nil, fmt.Errorf("invalid tile size %dx%d", opts.TileW, opts.TileH)
	}

	r, err := raster.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir := opts.OutputDir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	outType := opts.DataType
	if outType == godal.Unknown {
		outType = resultType(r.DataType)
	}
	logrus.Debugf("input %s, output %s", utils.GetDataType(r.DataType), utils.GetDataType(outType))

	var res *Result
	if r.Width*r.Height > opts.TileW*opts.TileH*4 {
		logrus.Info("processing in tiles")
		res, err = runTiled(r, base, dir, outType, opts)
	} else {
		logrus.Info("processing as single raster")
		res, err = runSingle(r, base, dir, outType, opts)
	}
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	logrus.Infof("clumping complete in %.2fs", res.Elapsed.Seconds())
	return res, nil
}

func runSingle(r *raster.Reader, base, dir string, outType godal.DataType, opts Options) (*Result, error) {
	g, err := r.ReadBand(0)
	if err != nil {
		return nil, err
	}
	g.Data = Clump(g.Data, g.Width, g.Height, opts.Distance)
	res := &Result{Values: grid.Unique(g.Data), Tiles: 1}
	if opts.WriteTo {
		if err := checkRange(res.Values, outType); err != nil {
			return nil, err
		}
		res.Output = filepath.Join(dir, fmt.Sprintf("%s_CLUMP_%d.tif", base, opts.Distance))
		if err := raster.Write(res.Output, g, outType); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func runTiled(r *raster.Reader, base, dir string, outType godal.DataType, opts Options) (*Result, error) {
	tiles := raster.Tiles(r.Width, r.Height, opts.TileW, opts.TileH, opts.Distance)

	var tileDir string
	var mosaic *raster.Writer
	res := &Result{Tiles: len(tiles)}
	if opts.WriteTo {
		tileDir = filepath.Join(dir, base+"_tiles")
		if err := os.MkdirAll(tileDir, 0o755); err != nil {
			return nil, err
		}
		res.Output = filepath.Join(dir, fmt.Sprintf("%s_CLUMP_%d_FULL.tif", base, opts.Distance))
		p := r.Profile
		p.Bands = 1
		p.DataType = outType
		w, err := raster.Create(res.Output, p)
		if err != nil {
			return nil, err
		}
		mosaic = w
	}

	bar := progressbar.Default(int64(len(tiles)), "processing tiles")
	process := func(_ context.Context, t raster.Tile) (vals []float64, err error) {
		defer func() {
			_ = bar.Add(1)
			if err != nil {
				err = fmt.Errorf("tile %d,%d: %w", t.I, t.J, err)
			}
		}()
		g, err := r.ReadWindow(0, t.Buffered)
		if err != nil {
			return nil, err
		}
		g.Data = Clump(g.Data, g.Width, g.Height, opts.Distance)
		ox, oy := t.Offset()
		core := g.Sub(raster.Window{X: ox, Y: oy, W: t.Core.W, H: t.Core.H})
		if !opts.WriteTo {
			return grid.Unique(core.Data), nil
		}
		vals = grid.Unique(core.Data)
		if err := checkRange(vals, outType); err != nil {
			return nil, err
		}
		name := fmt.Sprintf("%s_CLUMP_%d_tile_%03d_%03d.tif", base, opts.Distance, t.I, t.J)
		if err := raster.Write(filepath.Join(tileDir, name), core, outType); err != nil {
			return nil, err
		}
		if err := mosaic.WriteWindow(0, t.Core, core.Data); err != nil {
			return nil, err
		}
		return vals, nil
	}

	perTile, err := utils.Concurrent(context.Background(), tiles, utils.Workers(opts.Workers, 0), process)
	if mosaic != nil {
		if cerr := mosaic.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return nil, err
	}

	values := mapset.NewThreadUnsafeSet[float64]()
	for _, vals := range perTile {
		for _, v := range vals {
			values.Add(v)
		}
	}

	res.Values = values.ToSlice()
	sort.Float64s(res.Values)
	return res, nil
}

// Clump computes labels + values for one block. Cells equal to zero are
// null; their focal sum over a size x size window marks the cells to
// label.
func Clump(values []float64, w, h, size int) []float64 {
	null := make([]bool, len(values))
	for i, v := range values {
		null[i] = v == 0
	}
	focal := grid.FocalSum(null, w, h, size)
	spread := make([]bool, len(focal))
	for i, v := range focal {
		spread[i] = v > 0
	}
	labels, _ := grid.Label(spread, w, h)

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(labels[i]) + v
	}
	return out
}

// resultType is the data type labels plus values are stored in.
func resultType(src godal.DataType) godal.DataType {
	lo, hi := utils.TypeRange(src)
	if lo >= math.MinInt32 && hi <= math.MaxInt32 {
		return godal.Int32
	}
	return godal.Float64
}

// checkRange fails when the sorted values overflow dt.
func checkRange(values []float64, dt godal.DataType) error {
	if len(values) == 0 {
		return nil
	}
	lo, hi := utils.TypeRange(dt)
	if values[0] < lo || values[len(values)-1] > hi {
		return fmt.Errorf("%v..%v as %s: %w", values[0], values[len(values)-1], utils.GetDataType(dt), ErrOutOfRange)
	}
	return nil
}
