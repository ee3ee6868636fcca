package patches

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/erick-otenyo/gisflow/vector"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-geos"
)

// minTileArea drops polygonization slivers before they leave a tile.
const minTileArea = 0.01

// TileResult holds the polygons extracted from one raster tile.
type TileResult struct {
	Path     string
	SRS      string
	Polygons []*geos.Geom
}

// ProcessTile polygonizes the valid pixels of band 1. Pixels equal to the
// band nodata are excluded; shapes are traced with 8-connectivity. Only the
// exterior ring of each shape is kept, invalid rings are repaired with a
// zero width buffer, and polygons of area 0.01 or less are dropped. A nil
// result means the tile produced nothing.
func ProcessTile(path string) (*TileResult, error) {
	ds, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		return nil, fmt.Errorf("gdal could not open dataset %s: %w", path, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, fmt.Errorf("%s has no bands", path)
	}

	wkt := ds.Projection()
	var sr *godal.SpatialRef
	if wkt != "" {
		sr, err = godal.NewSpatialRefFromWKT(wkt)
		if err != nil {
			return nil, fmt.Errorf("%s srs: %w", path, err)
		}
		defer sr.Close()
	}

	mem, err := godal.CreateVector(godal.Memory, "")
	if err != nil {
		return nil, fmt.Errorf("create memory dataset: %w", err)
	}
	defer mem.Close()
	shapes, err := mem.CreateLayer("shapes", sr, godal.GTPolygon,
		godal.NewFieldDefinition("value", godal.FTReal))
	if err != nil {
		return nil, fmt.Errorf("create shapes layer: %w", err)
	}
	// the band's nodata mask keeps nodata pixels out of the shapes
	if err := bands[0].Polygonize(shapes, godal.PixelValueFieldIndex(0), godal.EightConnected()); err != nil {
		return nil, fmt.Errorf("polygonize %s: %w", path, err)
	}

	var polys []*geos.Geom
	shapes.ResetReading()
	for {
		feat := shapes.NextFeature()
		if feat == nil {
			break
		}
		g, err := exteriorPolygons(feat.Geometry())
		feat.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for _, p := range g {
			if p = cleanShape(p); p != nil {
				polys = append(polys, p)
			}
		}
	}
	if len(polys) == 0 {
		return nil, nil
	}
	return &TileResult{Path: path, SRS: wkt, Polygons: polys}, nil
}

// exteriorPolygons rebuilds a shape from its exterior ring(s) only.
func exteriorPolygons(g *godal.Geometry) ([]*geos.Geom, error) {
	if g == nil || g.Empty() {
		return nil, nil
	}
	gg, err := vector.FromGodal(g)
	if err != nil {
		return nil, err
	}
	og, err := vector.ToOrb(gg)
	if err != nil {
		return nil, err
	}

	var rings []orb.Ring
	switch t := og.(type) {
	case orb.Polygon:
		if len(t) > 0 {
			rings = append(rings, t[0])
		}
	case orb.MultiPolygon:
		for _, p := range t {
			if len(p) > 0 {
				rings = append(rings, p[0])
			}
		}
	}

	out := make([]*geos.Geom, 0, len(rings))
	for _, r := range rings {
		p, err := vector.FromOrb(orb.Polygon{r})
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func cleanShape(p *geos.Geom) *geos.Geom {
	p = vector.Polygons(vector.Repair(p))
	if p != nil && p.IsValid() && p.Area() > minTileArea {
		return p
	}
	return nil
}
