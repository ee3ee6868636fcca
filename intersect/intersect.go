// Package intersect clips a large polygon layer to a smaller one tile by
// tile, so that every GEOS intersection works on a small window.
package intersect

import (
	"context"
	"fmt"
	"runtime"

	"github.com/erick-otenyo/gisflow/utils"
	"github.com/erick-otenyo/gisflow/vector"
	"github.com/paulmach/orb"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

type Options struct {
	TilesX, TilesY int
	Parallel       bool
}

func DefaultOptions() Options {
	return Options{TilesX: 10, TilesY: 10, Parallel: true}
}

// Tiles splits b into nx by ny equal cells, x major.
func Tiles(b orb.Bound, nx, ny int) []orb.Bound {
	w := (b.Max[0] - b.Min[0]) / float64(nx)
	h := (b.Max[1] - b.Min[1]) / float64(ny)
	out := make([]orb.Bound, 0, nx*ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			out = append(out, orb.Bound{
				Min: orb.Point{b.Min[0] + float64(i)*w, b.Min[1] + float64(j)*h},
				Max: orb.Point{b.Min[0] + float64(i+1)*w, b.Min[1] + float64(j+1)*h},
			})
		}
	}
	return out
}

// Intersect cuts the features of large with a tile grid laid over the
// extent of small. Polygonal pieces keep the attributes of their large
// feature. small is reprojected into the CRS of large when they differ.
func Intersect(large, small *vector.Layer, opts Options) (*vector.Layer, error) {
	if opts.TilesX < 1 || opts.TilesY < 1 {
		return nil, fmt.Errorf("invalid tile grid %dx%d", opts.TilesX, opts.TilesY)
	}
	same, err := vector.SameCRS(large.SRS, small.SRS)
	if err != nil {
		return nil, err
	}
	if !same {
		logrus.Warn("coordinate reference systems do not match, reprojecting small layer to match large layer")
		if err := vector.Reproject(small, large.SRS); err != nil {
			return nil, err
		}
	}

	ext, ok := small.Bounds()
	out := &vector.Layer{Name: large.Name, SRS: large.SRS, Fields: large.Fields}
	if !ok {
		return out, nil
	}
	tiles := Tiles(orb.Bound{Min: orb.Point{ext[0], ext[1]}, Max: orb.Point{ext[2], ext[3]}}, opts.TilesX, opts.TilesY)

	bounds := make([]orb.Bound, len(large.Features))
	for i, f := range large.Features {
		if f.Geom != nil && !f.Geom.IsEmpty() {
			b := f.Geom.Bounds()
			bounds[i] = orb.Bound{Min: orb.Point{b.MinX, b.MinY}, Max: orb.Point{b.MaxX, b.MaxY}}
		}
	}
	bar := progressbar.Default(int64(len(tiles)), "intersecting tiles")
	process := func(_ context.Context, tile orb.Bound) ([]vector.Feature, error) {
		defer bar.Add(1)
		logrus.Debugf("processing tile with bounding box %v", tile)
		parts, err := intersectTile(large, bounds, tile)
		if err != nil {
			return nil, fmt.Errorf("tile %v: %w", tile, err)
		}
		return parts, nil
	}

	workers := 1
	if opts.Parallel {
		workers = max(runtime.NumCPU()-2, 1)
		logrus.Infof("using parallel processing with %d workers", workers)
	} else {
		logrus.Info("using sequential processing")
	}

	perTile, err := utils.Concurrent(context.Background(), tiles, workers, process)
	if err != nil {
		return nil, err
	}
	for _, parts := range perTile {
		out.Features = append(out.Features, parts...)
	}
	return out, nil
}

func intersectTile(large *vector.Layer, bounds []orb.Bound, tile orb.Bound) (parts []vector.Feature, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("intersection failed: %v", r)
		}
	}()
	tg, err := vector.FromOrb(tile.ToPolygon())
	if err != nil {
		return nil, err
	}
	for i, f := range large.Features {
		if f.Geom == nil || !bounds[i].Intersects(tile) {
			continue
		}
		piece := vector.Polygons(f.Geom.Intersection(tg))
		if piece == nil {
			continue
		}
		parts = append(parts, vector.Feature{Geom: piece, Props: f.Props})
	}
	return parts, nil
}

// Run intersects the files at largePath and smallPath and writes the result
// to output. Nothing is written when there is no intersection; the number
// of features written is returned.
func Run(largePath, smallPath, output string, opts Options) (int, error) {
	if _, err := vector.DriverFromPath(output); err != nil {
		return 0, err
	}
	large, err := vector.Read(largePath)
	if err != nil {
		return 0, err
	}
	logrus.Info("polygon 1 is successfully read")
	small, err := vector.Read(smallPath)
	if err != nil {
		return 0, err
	}
	logrus.Info("polygon 2 is successfully read")

	res, err := Intersect(large, small, opts)
	if err != nil {
		return 0, err
	}
	if len(res.Features) == 0 {
		logrus.Info("no intersections found")
		return 0, nil
	}
	logrus.Infof("number of intersected features: %d", len(res.Features))
	res.Name = vector.Stem(output)
	if err := vector.Write(output, res); err != nil {
		return 0, err
	}
	logrus.Infof("intersection results saved to %s", output)
	return len(res.Features), nil
}
