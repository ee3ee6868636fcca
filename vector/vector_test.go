package vector

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-geos"
)

func init() {
	godal.RegisterAll()
}

func mustWKT(t *testing.T, wkt string) *geos.Geom {
	t.Helper()
	g, err := geos.NewGeomFromWKT(wkt)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestDriverFromPath(t *testing.T) {
	for path, want := range map[string]godal.DriverName{
		"out/a.gpkg": godal.GeoPackage,
		"b.GeoJSON":  godal.GeoJSON,
		"c.shp":      godal.Shapefile,
		"/tmp/d.fgb": "FlatGeobuf",
	} {
		got, err := DriverFromPath(path)
		if err != nil {
			t.Errorf("%s: %v", path, err)
			continue
		}
		if got != want {
			t.Errorf("%s: got %s, want %s", path, got, want)
		}
	}
	if _, err := DriverFromPath("x.kml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if Stem("/a/b/tile_01.tif") != "tile_01" {
		t.Error("stem mismatch")
	}
}

func TestExplodeAndPolygons(t *testing.T) {
	mp := mustWKT(t, "MULTIPOLYGON(((0 0,1 0,1 1,0 1,0 0)),((2 2,3 2,3 3,2 3,2 2)))")
	parts := Explode(mp)
	if len(parts) != 2 || TypeName(parts[0]) != "Polygon" {
		t.Fatalf("explode gave %d parts", len(parts))
	}

	gc := mustWKT(t, "GEOMETRYCOLLECTION(POINT(0 0),POLYGON((0 0,1 0,1 1,0 1,0 0)))")
	p := Polygons(gc)
	if p == nil || TypeName(p) != "Polygon" || p.Area() != 1 {
		t.Errorf("polygons of collection = %v", p)
	}
	if Polygons(mustWKT(t, "LINESTRING(0 0,1 1)")) != nil {
		t.Error("line should have no polygonal part")
	}
}

func TestRepair(t *testing.T) {
	bowtie := mustWKT(t, "POLYGON((0 0,2 2,2 0,0 2,0 0))")
	if bowtie.IsValid() {
		t.Fatal("bowtie should be invalid")
	}
	fixed := Repair(bowtie)
	if !fixed.IsValid() || fixed.IsEmpty() {
		t.Errorf("repaired geometry invalid: %s", fixed.ToWKT())
	}
}

func TestOrbBridge(t *testing.T) {
	poly := orb.Polygon{{{0, 0}, {4, 0}, {4, 2}, {0, 2}, {0, 0}}}
	g, err := FromOrb(poly)
	if err != nil {
		t.Fatal(err)
	}
	if g.Area() != 8 {
		t.Errorf("area = %v", g.Area())
	}
	back, err := ToOrb(g)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, poly) {
		t.Errorf("round trip = %v", back)
	}
}

func TestGeometryTypesAndBounds(t *testing.T) {
	l := &Layer{Features: []Feature{
		{Geom: mustWKT(t, "POINT(1 5)")},
		{Geom: mustWKT(t, "POLYGON((0 0,3 0,3 3,0 3,0 0))")},
		{Geom: mustWKT(t, "POINT(-1 2)")},
	}}
	if got := GeometryTypes(l); !reflect.DeepEqual(got, []string{"Point", "Polygon"}) {
		t.Errorf("types = %v", got)
	}
	b, ok := l.Bounds()
	if !ok || b != [4]float64{-1, 0, 3, 5} {
		t.Errorf("bounds = %v", b)
	}
	l.AddField("name", godal.FTString)
	l.AddField("name", godal.FTInt)
	if len(l.Fields) != 1 || l.Fields[0].Type != godal.FTString {
		t.Errorf("fields = %v", l.Fields)
	}
}

func TestWriteRead(t *testing.T) {
	sr, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		t.Fatal(err)
	}
	defer sr.Close()
	wkt, _ := sr.WKT()

	l := &Layer{
		Name:   "patches",
		SRS:    wkt,
		Fields: []Field{{Name: "AREA", Type: godal.FTReal}, {Name: "name", Type: godal.FTString}},
		Features: []Feature{
			{Geom: mustWKT(t, "POLYGON((0 0,1 0,1 1,0 1,0 0))"), Props: map[string]any{"AREA": 1.0, "name": "a"}},
			{Geom: mustWKT(t, "POLYGON((2 2,4 2,4 4,2 4,2 2))"), Props: map[string]any{"AREA": 4.0, "name": nil}},
		},
	}
	path := filepath.Join(t.TempDir(), "nested", "out.gpkg")
	if err := Write(path, l); err != nil {
		t.Fatal(err)
	}

	back, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Name != "patches" || len(back.Features) != 2 {
		t.Fatalf("read back %s with %d features", back.Name, len(back.Features))
	}
	if same, err := SameCRS(back.SRS, wkt); err != nil || !same {
		t.Errorf("crs changed: %v", err)
	}
	if back.Features[1].Props["AREA"] != 4.0 || !blank(back.Features[1].Props["name"]) {
		t.Errorf("props = %v", back.Features[1].Props)
	}
	if back.Features[0].Geom.Area() != 1 {
		t.Errorf("geometry area = %v", back.Features[0].Geom.Area())
	}
}

// blank reports a missing value. A NULL column may come back from the
// driver as a set field holding the zero value.
func blank(v any) bool {
	return v == nil || reflect.ValueOf(v).IsZero()
}

func TestReproject(t *testing.T) {
	wgs, _ := godal.NewSpatialRefFromEPSG(4326)
	defer wgs.Close()
	merc, _ := godal.NewSpatialRefFromEPSG(3857)
	defer merc.Close()
	wgsWKT, _ := wgs.WKT()
	mercWKT, _ := merc.WKT()

	l := &Layer{SRS: wgsWKT, Features: []Feature{{Geom: mustWKT(t, "POINT(0 0)")}}}
	if err := Reproject(l, mercWKT); err != nil {
		t.Fatal(err)
	}
	if same, _ := SameCRS(l.SRS, mercWKT); !same {
		t.Error("layer srs not updated")
	}
	b := l.Features[0].Geom.Bounds()
	if b.MinX > 1e-6 || b.MinX < -1e-6 {
		t.Errorf("origin moved: %v", b)
	}

	if same, _ := SameCRS("", ""); !same {
		t.Error("two unknown crs should compare equal")
	}
	if same, _ := SameCRS(wgsWKT, ""); same {
		t.Error("known and unknown crs should differ")
	}
}

func TestWriteReadFieldTypes(t *testing.T) {
	l := &Layer{
		Name: "plots",
		Fields: []Field{
			{Name: "id", Type: godal.FTInt},
			{Name: "big", Type: godal.FTInt64},
			{Name: "height", Type: godal.FTReal},
			{Name: "surveyed", Type: godal.FTDate},
			{Name: "label", Type: godal.FTString},
		},
		Features: []Feature{
			// values of mismatched types, as left by merging layers of different schemas
			{Geom: mustWKT(t, "POINT(1 1)"), Props: map[string]any{
				"id": int64(7), "big": 3, "height": "12.5", "surveyed": "2024-03-05", "label": 4.0,
			}},
			{Geom: mustWKT(t, "POINT(2 2)"), Props: map[string]any{
				"id": "n/a", "big": int64(1) << 40, "height": 2, "surveyed": time.Date(2023, 11, 30, 0, 0, 0, 0, time.UTC), "label": "b",
			}},
		},
	}
	path := filepath.Join(t.TempDir(), "plots.gpkg")
	if err := Write(path, l); err != nil {
		t.Fatal(err)
	}
	back, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(back.Features) != 2 {
		t.Fatalf("read back %d features", len(back.Features))
	}
	first, second := back.Features[0].Props, back.Features[1].Props
	if first["id"] != 7 || first["big"] != int64(3) || first["height"] != 12.5 || first["label"] != "4" {
		t.Errorf("first props = %#v", first)
	}
	if !blank(second["id"]) || second["big"] != int64(1)<<40 || second["height"] != 2.0 {
		t.Errorf("second props = %#v", second)
	}
	for i, want := range []string{"2024-03-05", "2023-11-30"} {
		d, ok := back.Features[i].Props["surveyed"].(time.Time)
		if !ok {
			t.Fatalf("surveyed %d = %#v", i, back.Features[i].Props["surveyed"])
		}
		if got := d.Format("2006-01-02"); got != want {
			t.Errorf("surveyed %d = %s, want %s", i, got, want)
		}
	}

	// values read back are accepted unchanged by a second write
	if err := Write(filepath.Join(t.TempDir(), "again.gpkg"), back); err != nil {
		t.Fatal(err)
	}
}

func TestFieldValue(t *testing.T) {
	for _, c := range []struct {
		v    any
		ft   godal.FieldType
		want any
	}{
		{int64(3), godal.FTInt, 3},
		{"42", godal.FTInt64, int64(42)},
		{"1.9", godal.FTInt, 1},
		{true, godal.FTInt, 1},
		{7, godal.FTReal, 7.0},
		{2.5, godal.FTString, "2.5"},
		{[]int64{1, 2}, godal.FTIntList, []int{1, 2}},
		{"2020-01-02 03:04:05", godal.FTDateTime, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)},
	} {
		got, err := fieldValue(c.v, c.ft)
		if err != nil {
			t.Errorf("%#v: %v", c.v, err)
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("%#v as %v = %#v, want %#v", c.v, c.ft, got, c.want)
		}
	}
	for _, c := range []struct {
		v  any
		ft godal.FieldType
	}{
		{"abc", godal.FTInt},
		{"soon", godal.FTDate},
		{[]string{"a"}, godal.FTRealList},
	} {
		if _, err := fieldValue(c.v, c.ft); !errors.Is(err, ErrUnsupportedValue) {
			t.Errorf("%#v as %v: got %v", c.v, c.ft, err)
		}
	}
}
