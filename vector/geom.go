package vector

import (
	"fmt"
	"sort"

	"github.com/airbusgeo/godal"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

var typeNames = map[geos.TypeID]string{
	geos.TypeIDPoint:              "Point",
	geos.TypeIDLineString:         "LineString",
	geos.TypeIDLinearRing:         "LinearRing",
	geos.TypeIDPolygon:            "Polygon",
	geos.TypeIDMultiPoint:         "MultiPoint",
	geos.TypeIDMultiLineString:    "MultiLineString",
	geos.TypeIDMultiPolygon:       "MultiPolygon",
	geos.TypeIDGeometryCollection: "GeometryCollection",
}

// TypeName is the OGC name of a geometry type.
func TypeName(g *geos.Geom) string {
	if name, ok := typeNames[g.TypeID()]; ok {
		return name
	}
	return "Unknown"
}

// GeometryTypes lists the distinct geometry types of a layer, sorted.
func GeometryTypes(l *Layer) []string {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, f := range l.Features {
		if f.Geom != nil {
			set.Add(TypeName(f.Geom))
		}
	}
	out := set.ToSlice()
	sort.Strings(out)
	return out
}

// IsPolygonal reports whether g is a Polygon or MultiPolygon.
func IsPolygonal(g *geos.Geom) bool {
	id := g.TypeID()
	return id == geos.TypeIDPolygon || id == geos.TypeIDMultiPolygon
}

// FromOrb converts an orb geometry to GEOS through WKB.
func FromOrb(g orb.Geometry) (*geos.Geom, error) {
	b, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}
	return geos.NewGeomFromWKB(b)
}

// ToOrb converts a GEOS geometry to orb through WKB.
func ToOrb(g *geos.Geom) (orb.Geometry, error) {
	og, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	return og, nil
}

// Explode splits multi-part geometries and collections into their parts.
func Explode(g *geos.Geom) []*geos.Geom {
	switch g.TypeID() {
	case geos.TypeIDMultiPoint, geos.TypeIDMultiLineString, geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
		n := g.NumGeometries()
		parts := make([]*geos.Geom, 0, n)
		for i := 0; i < n; i++ {
			parts = append(parts, Explode(g.Geometry(i).Clone())...)
		}
		return parts
	}
	return []*geos.Geom{g}
}

// Repair makes an invalid geometry valid: a zero width buffer first, the
// GEOS make-valid operation when that is not enough.
func Repair(g *geos.Geom) *geos.Geom {
	if g.IsValid() {
		return g
	}
	fixed := g.Buffer(0, 16)
	if fixed.IsValid() && !fixed.IsEmpty() {
		return fixed
	}
	return g.MakeValid()
}

// Polygons keeps the polygonal parts of g, nil when there are none.
func Polygons(g *geos.Geom) *geos.Geom {
	if g == nil || g.IsEmpty() {
		return nil
	}
	if IsPolygonal(g) {
		return g
	}
	var polys []*geos.Geom
	for _, p := range Explode(g) {
		if p.TypeID() == geos.TypeIDPolygon && !p.IsEmpty() {
			polys = append(polys, p)
		}
	}
	switch len(polys) {
	case 0:
		return nil
	case 1:
		return polys[0]
	}
	return geos.NewCollection(geos.TypeIDMultiPolygon, polys)
}

// FromGodal converts an OGR geometry to GEOS through WKB.
func FromGodal(g *godal.Geometry) (*geos.Geom, error) {
	b, err := g.WKB()
	if err != nil {
		return nil, fmt.Errorf("export geometry: %w", err)
	}
	return geos.NewGeomFromWKB(b)
}

// ToGodal converts a GEOS geometry to OGR, attached to sr when not nil.
func ToGodal(g *geos.Geom, sr *godal.SpatialRef) (*godal.Geometry, error) {
	return godal.NewGeometryFromWKB(g.ToWKB(), sr)
}
