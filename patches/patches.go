// Package patches turns a directory of raster tiles into one polygon layer.
// Tiles are polygonized in parallel, batch by batch, and the polygons are
// unioned in chunks so that memory stays bounded for large tile sets.
package patches

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/airbusgeo/godal"
	"github.com/erick-otenyo/gisflow/utils"
	"github.com/erick-otenyo/gisflow/vector"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

const maxWorkers = 10

var (
	ErrNoTiles    = errors.New("no TIFF files found")
	ErrNoPolygons = errors.New("no valid polygons generated")
)

type Options struct {
	// Workers defaults to the number of CPUs and never exceeds 10.
	Workers   int
	BatchSize int
	Tolerance float64
	ChunkSize int
}

func DefaultOptions() Options {
	return Options{BatchSize: 50, Tolerance: 1.0, ChunkSize: 1000}
}

// Summary describes a finished run.
type Summary struct {
	Tiles       int
	TilesUsed   int
	Features    int
	Output      string
	TimerReport string
}

// Run polygonizes every *.tif in inputDir and writes the merged polygons,
// with an AREA attribute, to outputPath.
func Run(inputDir, outputPath string, opts Options) (*Summary, error) {
	timer := utils.NewTimer()

	if _, err := vector.DriverFromPath(outputPath); err != nil {
		return nil, err
	}
	tiles, err := filepath.Glob(filepath.Join(inputDir, "*.tif"))
	if err != nil {
		return nil, err
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoTiles, inputDir)
	}
	sort.Strings(tiles)

	workers := utils.Workers(opts.Workers, maxWorkers)
	logrus.Infof("processing %d tiles with %d workers", len(tiles), workers)

	results := processTiles(tiles, workers, opts.BatchSize)
	timer.LogLap("tile processing completed")
	if len(results) == 0 {
		return nil, ErrNoPolygons
	}

	polys, err := Merge(results, opts.Tolerance, opts.ChunkSize)
	if err != nil {
		return nil, err
	}
	timer.LogLap("spatial merging completed")

	layer := &vector.Layer{
		Name:     vector.Stem(outputPath),
		SRS:      results[0].SRS,
		Fields:   []vector.Field{{Name: "AREA", Type: godal.FTReal}},
		Features: make([]vector.Feature, 0, len(polys)),
	}
	for _, p := range polys {
		layer.Features = append(layer.Features, vector.Feature{
			Geom:  p,
			Props: map[string]any{"AREA": roundArea(p.Area())},
		})
	}
	if len(polys) == 0 {
		logrus.Warn("merge left no polygons, writing an empty layer")
	}
	if err := vector.Write(outputPath, layer); err != nil {
		return nil, err
	}
	timer.LogLap("output written")

	s := &Summary{
		Tiles:       len(tiles),
		TilesUsed:   len(results),
		Features:    len(polys),
		Output:      outputPath,
		TimerReport: timer.Summary(),
	}
	logrus.Infof("timing summary:\n%s", s.TimerReport)
	logrus.Infof("successfully saved %d features to %s", s.Features, outputPath)
	return s, nil
}

// processTiles runs ProcessTile over the tiles batch by batch. Failed tiles
// are logged and skipped.
func processTiles(tiles []string, workers, batchSize int) []*TileResult {
	var results []*TileResult
	bar := progressbar.Default(int64(len(tiles)), "tiles")
	process := func(_ context.Context, path string) (*TileResult, error) {
		defer bar.Add(1)
		res, err := ProcessTile(path)
		if err != nil {
			logrus.Errorf("error processing %s: %v", path, err)
			return nil, nil
		}
		return res, nil
	}
	for _, batch := range utils.Batches(tiles, batchSize) {
		// process never fails, so neither does the batch
		batchResults, _ := utils.Concurrent(context.Background(), batch, workers, process)
		for _, res := range batchResults {
			if res != nil {
				results = append(results, res)
			}
		}
	}
	return results
}

func roundArea(a float64) float64 {
	return math.Round(a*100) / 100
}
