// Package slope derives a slope raster in degrees from an elevation model.
package slope

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/erick-otenyo/gisflow/grid"
	"github.com/erick-otenyo/gisflow/raster"
	"github.com/erick-otenyo/gisflow/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

type Options struct {
	// Resolution is the ground size of a pixel in elevation units. Zero
	// takes the pixel width of the DEM.
	Resolution float64
	TileSize   int
	Workers    int
}

func DefaultOptions() Options {
	return Options{Resolution: 1, TileSize: 512}
}

// Run writes the Horn slope of the DEM at input to output as a float32
// GeoTIFF with NaN nodata. Tiles are read with a one pixel buffer so that
// only the raster edges lack neighbours.
func Run(input, output string, opts Options) (time.Duration, error) {
	start := time.Now()
	if opts.Resolution < 0 {
		return 0, fmt.Errorf("resolution must be positive, got %v", opts.Resolution)
	}
	if opts.TileSize < 1 {
		return 0, fmt.Errorf("invalid tile size %d", opts.TileSize)
	}

	src, err := raster.Open(input)
	if err != nil {
		return 0, fmt.Errorf("error opening raster file: %w", err)
	}
	defer src.Close()
	if opts.Resolution == 0 {
		px, py := src.GeoTransform.PixelSize()
		if px != py {
			logrus.Warnf("pixels are %vx%v, using the width as resolution", px, py)
		}
		opts.Resolution = px
		logrus.Infof("resolution %v taken from the raster", px)
	}

	p := src.Profile
	p.Bands = 1
	p.DataType = godal.Float32
	p.NoData, p.HasNoData = math.NaN(), true
	dst, err := raster.Create(output, p)
	if err != nil {
		return 0, err
	}

	tiles := raster.Tiles(src.Width, src.Height, opts.TileSize, opts.TileSize, 1)
	logrus.Infof("processing %dx%d raster in %d tiles of %d pixels", src.Height, src.Width, len(tiles), opts.TileSize)

	bar := progressbar.Default(int64(len(tiles)), "slope tiles")
	process := func(_ context.Context, t raster.Tile) (_ struct{}, err error) {
		defer func() {
			_ = bar.Add(1)
			if err != nil {
				err = fmt.Errorf("tile %v: %w", t.Core, err)
			}
		}()
		g, err := src.ReadWindow(0, t.Buffered)
		if err != nil {
			return struct{}{}, err
		}
		for i, v := range g.Data {
			if g.IsNoData(v) {
				g.Data[i] = math.NaN()
			}
		}
		g.Data = grid.Horn(g.Data, g.Width, g.Height, opts.Resolution)
		ox, oy := t.Offset()
		core := g.Sub(raster.Window{X: ox, Y: oy, W: t.Core.W, H: t.Core.H})
		return struct{}{}, dst.WriteWindow(0, t.Core, core.Data)
	}

	_, err = utils.Concurrent(context.Background(), tiles, utils.Workers(opts.Workers, 0), process)
	if cerr := dst.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}

	elapsed := time.Since(start)
	logrus.Infof("tiled slope complete in %.2fs", elapsed.Seconds())
	return elapsed, nil
}
