package vector

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/twpayne/go-geos"
)

// SameCRS compares two WKT strings as coordinate reference systems. Two
// empty strings are the same; one empty string is not.
func SameCRS(a, b string) (bool, error) {
	if a == b {
		return true, nil
	}
	if a == "" || b == "" {
		return false, nil
	}
	sa, err := godal.NewSpatialRefFromWKT(a)
	if err != nil {
		return false, err
	}
	defer sa.Close()
	sb, err := godal.NewSpatialRefFromWKT(b)
	if err != nil {
		return false, err
	}
	defer sb.Close()
	return sa.IsSame(sb), nil
}

// Reproject moves every feature of l into the CRS dstWKT in place.
func Reproject(l *Layer, dstWKT string) error {
	if l.SRS == "" {
		return fmt.Errorf("layer %s has no CRS to reproject from", l.Name)
	}
	src, err := godal.NewSpatialRefFromWKT(l.SRS)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := godal.NewSpatialRefFromWKT(dstWKT)
	if err != nil {
		return err
	}
	defer dst.Close()

	for i, f := range l.Features {
		if f.Geom == nil {
			continue
		}
		g, err := ReprojectGeom(f.Geom, src, dst)
		if err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		l.Features[i].Geom = g
	}
	l.SRS = dstWKT
	return nil
}

// ReprojectGeom transforms a GEOS geometry between two CRS with OGR.
func ReprojectGeom(g *geos.Geom, src, dst *godal.SpatialRef) (*geos.Geom, error) {
	og, err := godal.NewGeometryFromWKB(g.ToWKB(), src)
	if err != nil {
		return nil, err
	}
	defer og.Close()
	if err := og.Reproject(dst); err != nil {
		return nil, err
	}
	b, err := og.WKB()
	if err != nil {
		return nil, err
	}
	return geos.NewGeomFromWKB(b)
}
