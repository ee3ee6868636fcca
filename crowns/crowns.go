// Package crowns outlines tree crowns in a single band image. Pixels in a
// brightness range that also respond to a diagonal Sobel filter form the
// crown mask, whose outer contours become polygons.
package crowns

import (
	"fmt"
	"math"

	"github.com/erick-otenyo/gisflow/grid"
	"github.com/erick-otenyo/gisflow/raster"
	"github.com/erick-otenyo/gisflow/vector"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

type Options struct {
	// AOIPath optionally limits detection to the features of a vector file.
	AOIPath        string
	TargetCRS      string
	BrightnessLow  float64
	BrightnessHigh float64
	// MinArea is in square pixels.
	MinArea        float64
	SobelThreshold float64
}

func DefaultOptions() Options {
	return Options{
		TargetCRS:      "EPSG:32638",
		BrightnessLow:  30,
		BrightnessHigh: 70,
		MinArea:        15,
		SobelThreshold: 0.05,
	}
}

// Run detects crowns in band 1 of input and writes them to output. The
// output is labelled with TargetCRS; the image is expected to be in it.
func Run(input, output string, opts Options) (int, error) {
	if _, err := vector.DriverFromPath(output); err != nil {
		return 0, err
	}
	sr, err := raster.ParseCRS(opts.TargetCRS)
	if err != nil {
		return 0, fmt.Errorf("target crs %q: %w", opts.TargetCRS, err)
	}
	defer sr.Close()
	crsWKT, err := sr.WKT()
	if err != nil {
		return 0, err
	}

	logrus.Info("processing raster")
	img, err := raster.Read(input)
	if err != nil {
		return 0, err
	}
	if opts.AOIPath != "" {
		if err := maskAOI(img, opts.AOIPath, crsWKT); err != nil {
			return 0, err
		}
	}

	logrus.Info("detecting tree crowns")
	polys := Detect(img, opts)
	layer := &vector.Layer{Name: vector.Stem(output), SRS: crsWKT}
	for _, p := range polys {
		g, err := vector.FromOrb(p)
		if err != nil {
			return 0, err
		}
		layer.Features = append(layer.Features, vector.Feature{Geom: g})
	}

	logrus.Infof("saving %d crowns to %s", len(polys), output)
	if err := vector.Write(output, layer); err != nil {
		return 0, err
	}
	return len(polys), nil
}

// maskAOI zeroes the pixels whose centre falls outside every AOI feature.
// The AOI is moved to crsWKT and the image grid is taken to be in it.
func maskAOI(img *raster.Grid, path, crsWKT string) error {
	aoi, err := vector.Read(path)
	if err != nil {
		return err
	}
	if aoi.SRS != "" {
		if err := vector.Reproject(aoi, crsWKT); err != nil {
			return fmt.Errorf("aoi: %w", err)
		}
	}

	p := img.Profile
	p.Projection = ""
	inside := make([]bool, len(img.Data))
	for _, f := range aoi.Features {
		if f.Geom == nil {
			continue
		}
		g, err := vector.ToGodal(f.Geom, nil)
		if err != nil {
			return err
		}
		m, err := raster.GeometryMask(g, nil, p, false)
		g.Close()
		if err != nil {
			return err
		}
		for i, v := range m {
			inside[i] = inside[i] || v
		}
	}
	img.ApplyMask(inside, 0)
	return nil
}

// Detect returns crown polygons in the coordinates of the image
// geotransform.
func Detect(img *raster.Grid, opts Options) []orb.Polygon {
	w, h := img.Width, img.Height
	sobel := grid.Sobel(img.Data, w, h)
	mask := make([]bool, len(img.Data))
	for i, v := range img.Data {
		bright := v >= opts.BrightnessLow && v <= opts.BrightnessHigh
		mask[i] = bright && math.Abs(sobel[i]) > opts.SobelThreshold
	}

	var polys []orb.Polygon
	for _, c := range grid.Contours(mask, w, h) {
		if len(c) < 3 || grid.ContourArea(c) < opts.MinArea {
			continue
		}
		ring := make(orb.Ring, 0, len(c)+1)
		for _, pt := range c {
			x, y := img.GeoTransform.Apply(pt[0], pt[1])
			ring = append(ring, orb.Point{x, y})
		}
		ring = append(ring, ring[0])
		polys = append(polys, orb.Polygon{ring})
	}
	return polys
}
