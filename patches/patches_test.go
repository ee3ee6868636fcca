package patches

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/erick-otenyo/gisflow/raster"
	"github.com/erick-otenyo/gisflow/vector"
	"github.com/twpayne/go-geos"
)

func init() {
	godal.RegisterAll()
}

func utmWKT(t *testing.T, epsg int) string {
	t.Helper()
	sr, err := godal.NewSpatialRefFromEPSG(epsg)
	if err != nil {
		t.Fatal(err)
	}
	defer sr.Close()
	wkt, err := sr.WKT()
	if err != nil {
		t.Fatal(err)
	}
	return wkt
}

func mustWKT(t *testing.T, wkt string) *geos.Geom {
	t.Helper()
	g, err := geos.NewGeomFromWKT(wkt)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// writeTile writes a 10x10 tile of 10m pixels whose columns in [c0, c1)
// are 1 and the rest nodata.
func writeTile(t *testing.T, path string, originX float64, c0, c1 int, wkt string) {
	t.Helper()
	g := raster.NewGrid(raster.Profile{
		Width: 10, Height: 10, NoData: 0, HasNoData: true,
		GeoTransform: raster.GeoTransform{originX, 10, 0, 4000000, 0, -10},
		Projection:   wkt,
	})
	for y := 0; y < 10; y++ {
		for x := c0; x < c1; x++ {
			g.Set(x, y, 1)
		}
	}
	if err := raster.Write(path, g, godal.Byte); err != nil {
		t.Fatal(err)
	}
}

func TestProcessTile(t *testing.T) {
	dir := t.TempDir()
	wkt := utmWKT(t, 32638)

	path := filepath.Join(dir, "a.tif")
	writeTile(t, path, 500000, 2, 6, wkt)
	res, err := ProcessTile(path)
	if err != nil {
		t.Fatal(err)
	}
	if res == nil || len(res.Polygons) != 1 {
		t.Fatalf("expected one polygon, got %+v", res)
	}
	if a := res.Polygons[0].Area(); math.Abs(a-4000) > 1e-6 {
		t.Errorf("area = %v, want 4000", a)
	}

	empty := filepath.Join(dir, "empty.tif")
	writeTile(t, empty, 500000, 0, 0, wkt)
	res, err = ProcessTile(empty)
	if err != nil {
		t.Fatal(err)
	}
	if res != nil {
		t.Errorf("nodata tile should give no result, got %d polygons", len(res.Polygons))
	}

	if _, err := ProcessTile(filepath.Join(dir, "missing.tif")); err == nil {
		t.Error("expected an error for a missing tile")
	}
}

func TestMerge(t *testing.T) {
	results := []*TileResult{
		{Path: "a", Polygons: []*geos.Geom{
			mustWKT(t, "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))"),
			mustWKT(t, "POLYGON ((50 50, 50.2 50, 50.2 50.2, 50 50.2, 50 50))"),
		}},
		{Path: "b", Polygons: []*geos.Geom{
			mustWKT(t, "POLYGON ((10 0, 20 0, 20 10, 10 10, 10 0))"),
			mustWKT(t, "POLYGON ((30 0, 40 0, 40 10, 30 10, 30 0))"),
		}},
	}
	for _, chunk := range []int{1, 2, 1000} {
		polys, err := Merge(results, 0.5, chunk)
		if err != nil {
			t.Fatal(err)
		}
		if len(polys) != 2 {
			t.Fatalf("chunk %d: got %d polygons, want 2", chunk, len(polys))
		}
		var total float64
		for _, p := range polys {
			if p.TypeID() != geos.TypeIDPolygon {
				t.Errorf("chunk %d: part is %v", chunk, p.TypeID())
			}
			total += p.Area()
		}
		if math.Abs(total-300) > 1e-9 {
			t.Errorf("chunk %d: total area %v, want 300", chunk, total)
		}
	}
}

func TestMergeKeepsFailedPolygons(t *testing.T) {
	union = func(merged *geos.Geom, chunk []*geos.Geom) (*geos.Geom, error) {
		if len(chunk) > 1 || chunk[0].Bounds().MinX == 30 {
			return nil, errors.New("TopologyException")
		}
		return unionChunk(merged, chunk)
	}
	defer func() { union = unionChunk }()

	results := []*TileResult{{Path: "a", Polygons: []*geos.Geom{
		mustWKT(t, "POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))"),
		mustWKT(t, "POLYGON ((10 0, 20 0, 20 10, 10 10, 10 0))"),
		mustWKT(t, "POLYGON ((30 0, 40 0, 40 10, 30 10, 30 0))"),
	}}}
	polys, err := Merge(results, 0.5, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(polys) != 2 {
		t.Fatalf("got %d polygons, want 2", len(polys))
	}
	// the first two merged on the retry, the third is kept unmerged
	if a := polys[0].Area(); math.Abs(a-200) > 1e-9 {
		t.Errorf("merged area %v, want 200", a)
	}
	if b := polys[1].Bounds(); b.MinX != 30 || polys[1].Area() != 100 {
		t.Errorf("unmerged polygon %s", polys[1].ToWKT())
	}
}

func TestCleanShape(t *testing.T) {
	bowtie := mustWKT(t, "POLYGON ((0 0, 2 2, 2 0, 0 2, 0 0))")
	fixed := cleanShape(bowtie)
	if fixed == nil || !fixed.IsValid() || fixed.Area() <= minTileArea {
		t.Errorf("repaired bowtie = %v", fixed)
	}
	if cleanShape(mustWKT(t, "POLYGON ((0 0, 0.1 0, 0.1 0.1, 0 0.1, 0 0))")) != nil {
		t.Error("sliver should be dropped")
	}
}

func TestMergeMixedCRS(t *testing.T) {
	sq := "POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))"
	results := []*TileResult{
		{Path: "a", SRS: utmWKT(t, 32638), Polygons: []*geos.Geom{mustWKT(t, sq)}},
		{Path: "b", SRS: utmWKT(t, 32637), Polygons: []*geos.Geom{mustWKT(t, sq)}},
	}
	if _, err := Merge(results, 1, 10); !errors.Is(err, ErrMixedCRS) {
		t.Errorf("expected ErrMixedCRS, got %v", err)
	}
}

func TestRun(t *testing.T) {
	in := t.TempDir()
	wkt := utmWKT(t, 32638)
	// two tiles whose patches touch across the tile edge
	writeTile(t, filepath.Join(in, "t_000.tif"), 500000, 5, 10, wkt)
	writeTile(t, filepath.Join(in, "t_001.tif"), 500100, 0, 5, wkt)
	writeTile(t, filepath.Join(in, "t_002.tif"), 500200, 0, 0, wkt)

	out := filepath.Join(t.TempDir(), "nested", "patches.gpkg")
	opts := DefaultOptions()
	opts.Workers = 2
	opts.BatchSize = 2
	s, err := Run(in, out, opts)
	if err != nil {
		t.Fatal(err)
	}
	if s.Tiles != 3 || s.TilesUsed != 2 || s.Features != 1 {
		t.Errorf("summary = %+v", s)
	}

	l, err := vector.Read(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Features) != 1 {
		t.Fatalf("got %d features", len(l.Features))
	}
	if a := l.Features[0].Props["AREA"]; a != 10000.0 {
		t.Errorf("AREA = %v, want 10000", a)
	}
}

func TestRunErrors(t *testing.T) {
	in := t.TempDir()
	if _, err := Run(in, filepath.Join(in, "out.gpkg"), DefaultOptions()); !errors.Is(err, ErrNoTiles) {
		t.Errorf("expected ErrNoTiles, got %v", err)
	}
	if _, err := Run(in, filepath.Join(in, "out.csv"), DefaultOptions()); !errors.Is(err, vector.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}

	writeTile(t, filepath.Join(in, "blank.tif"), 500000, 0, 0, utmWKT(t, 32638))
	if _, err := Run(in, filepath.Join(in, "out.gpkg"), DefaultOptions()); !errors.Is(err, ErrNoPolygons) {
		t.Errorf("expected ErrNoPolygons, got %v", err)
	}
}

func TestRoundArea(t *testing.T) {
	if roundArea(12.3456) != 12.35 || roundArea(0.004) != 0 {
		t.Error("rounding mismatch")
	}
}
