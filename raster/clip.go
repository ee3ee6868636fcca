package raster

import (
	"errors"
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
)

var ErrNoOverlap = errors.New("geometry does not overlap the raster")

// Clip writes the part of band 1 of rasterPath covered by the first feature
// of the GeoJSON file at geomPath. Pixels outside the geometry are written
// as nodata; the band nodata value is used, or 0 when the band has none.
func Clip(rasterPath, geomPath, outPath string) error {
	fc, err := ParseGeojson(geomPath)
	if err != nil {
		return err
	}
	if len(fc.Features) == 0 {
		return fmt.Errorf("%s has no features", geomPath)
	}
	geom, err := FeatureGeometry(fc.Features[0])
	if err != nil {
		return err
	}
	defer geom.Close()
	wgs84, err := WGS84()
	if err != nil {
		return err
	}
	defer wgs84.Close()

	r, err := Open(rasterPath)
	if err != nil {
		return err
	}
	defer r.Close()

	win, err := clipWindow(r.Profile, geom, wgs84)
	if err != nil {
		return err
	}

	g, err := r.ReadWindow(0, win)
	if err != nil {
		return err
	}
	mask, err := GeometryMask(geom, wgs84, g.Profile, true)
	if err != nil {
		return err
	}
	if !g.HasNoData {
		g.NoData, g.HasNoData = 0, true
	}
	g.ApplyMask(mask, g.NoData)

	logrus.Infof("clipping %s window %v to %s", rasterPath, win, outPath)
	return Write(outPath, g, r.DataType)
}

// clipWindow is the pixel window of the raster covering the geometry
// envelope once moved into the raster CRS.
func clipWindow(p Profile, geom *godal.Geometry, srs *godal.SpatialRef) (Window, error) {
	local, err := reprojectedCopy(geom, srs, p.Projection)
	if err != nil {
		return Window{}, err
	}
	defer local.Close()
	env, err := GeometryBounds(local)
	if err != nil {
		return Window{}, err
	}

	if !env.Intersects(p.Bounds()) {
		return Window{}, ErrNoOverlap
	}
	win, err := p.GeoTransform.PixelBBox(env)
	if err != nil {
		return Window{}, err
	}
	win = win.Intersect(Window{W: p.Width, H: p.Height})
	if win.Empty() {
		return Window{}, ErrNoOverlap
	}
	return win, nil
}
