package raster

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/airbusgeo/godal"
	geo "github.com/nci/geometry"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// ParseGeojson reads a GeoJSON feature collection.
func ParseGeojson(filePath string) (geo.FeatureCollection, error) {
	var featureCol geo.FeatureCollection

	byteValue, err := os.ReadFile(filePath)
	if err != nil {
		return featureCol, err
	}

	if err := json.Unmarshal(byteValue, &featureCol); err != nil {
		return featureCol, fmt.Errorf("problem unmarshalling geometry %s: %w", filePath, err)
	}
	return featureCol, nil
}

// FeatureGeometry converts a GeoJSON feature into a GDAL geometry. Its
// coordinates are WGS84, the CRS of GeoJSON.
func FeatureGeometry(feature geo.Feature) (*godal.Geometry, error) {
	geomGeoJSON, err := json.Marshal(feature.Geometry)
	if err != nil {
		return nil, fmt.Errorf("problem marshaling GeoJSON geometry: %w", err)
	}
	g, err := godal.NewGeometryFromGeoJSON(string(geomGeoJSON))
	if err != nil {
		return nil, fmt.Errorf("geometry could not be parsed: %w", err)
	}
	return g, nil
}

// WGS84 returns the CRS of GeoJSON geometries.
func WGS84() (*godal.SpatialRef, error) {
	return godal.NewSpatialRefFromEPSG(4326)
}

// ParseCRS accepts "EPSG:<code>" or a WKT string.
func ParseCRS(s string) (*godal.SpatialRef, error) {
	s = strings.TrimSpace(s)
	if code, ok := strings.CutPrefix(strings.ToUpper(s), "EPSG:"); ok {
		n, err := strconv.Atoi(code)
		if err != nil {
			return nil, fmt.Errorf("invalid EPSG code %q", s)
		}
		return godal.NewSpatialRefFromEPSG(n)
	}
	return godal.NewSpatialRefFromWKT(s)
}

// reprojectedCopy returns a copy of g, expressed in srs, moved into the CRS
// given as WKT. An empty dstWKT or a nil srs yields a plain copy.
func reprojectedCopy(g *godal.Geometry, srs *godal.SpatialRef, dstWKT string) (*godal.Geometry, error) {
	wkb, err := g.WKB()
	if err != nil {
		return nil, err
	}
	geom, err := godal.NewGeometryFromWKB(wkb, srs)
	if err != nil {
		return nil, err
	}
	if dstWKT == "" || srs == nil {
		return geom, nil
	}
	dstSR, err := godal.NewSpatialRefFromWKT(dstWKT)
	if err != nil {
		geom.Close()
		return nil, fmt.Errorf("raster projection: %w", err)
	}
	defer dstSR.Close()
	if !srs.IsSame(dstSR) {
		if err := geom.Reproject(dstSR); err != nil {
			geom.Close()
			return nil, fmt.Errorf("reproject geometry: %w", err)
		}
	}
	return geom, nil
}

// GeometryBounds is the envelope of a GDAL geometry.
func GeometryBounds(g *godal.Geometry) (orb.Bound, error) {
	b, err := g.WKB()
	if err != nil {
		return orb.Bound{}, err
	}
	og, err := wkb.Unmarshal(b)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("decode geometry: %w", err)
	}
	return og.Bound(), nil
}

// GeometryMask rasterizes g, whose coordinates are in srs, onto the grid
// described by p and returns true for the burned cells. With allTouched
// every cell touched by the geometry is burned, otherwise only cells whose
// centre is inside.
func GeometryMask(g *godal.Geometry, srs *godal.SpatialRef, p Profile, allTouched bool) ([]bool, error) {
	geom, err := reprojectedCopy(g, srs, p.Projection)
	if err != nil {
		return nil, err
	}
	defer geom.Close()

	mem, err := godal.Create(godal.Memory, "", 1, godal.Byte, p.Width, p.Height)
	if err != nil {
		return nil, fmt.Errorf("couldn't create memory driver: %w", err)
	}
	defer mem.Close()
	if err := mem.SetGeoTransform(p.GeoTransform); err != nil {
		return nil, fmt.Errorf("couldn't set the geotransform on the mask dataset: %w", err)
	}

	opts := []godal.RasterizeGeometryOption{godal.Values(255)}
	if allTouched {
		opts = append(opts, godal.AllTouched())
	}
	if err := mem.RasterizeGeometry(geom, opts...); err != nil {
		return nil, fmt.Errorf("rasterize geometry: %w", err)
	}

	canvas := make([]uint8, p.Width*p.Height)
	if err := mem.Bands()[0].Read(0, 0, canvas, p.Width, p.Height); err != nil {
		return nil, err
	}
	mask := make([]bool, len(canvas))
	for i, v := range canvas {
		mask[i] = v == 255
	}
	return mask, nil
}

// AOIMask rasterizes the union of every feature of a GeoJSON file onto p.
func AOIMask(geojsonPath string, p Profile, allTouched bool) ([]bool, error) {
	fc, err := ParseGeojson(geojsonPath)
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("%s has no features", geojsonPath)
	}
	wgs84, err := WGS84()
	if err != nil {
		return nil, err
	}
	defer wgs84.Close()

	var mask []bool
	for _, f := range fc.Features {
		g, err := FeatureGeometry(f)
		if err != nil {
			return nil, err
		}
		m, err := GeometryMask(g, wgs84, p, allTouched)
		g.Close()
		if err != nil {
			return nil, err
		}
		if mask == nil {
			mask = m
			continue
		}
		for i := range m {
			mask[i] = mask[i] || m[i]
		}
	}
	return mask, nil
}
