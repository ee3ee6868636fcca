package slope

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/airbusgeo/godal"
	"github.com/erick-otenyo/gisflow/grid"
	"github.com/erick-otenyo/gisflow/raster"
)

func init() {
	godal.RegisterAll()
}

func TestRunMatchesUntiled(t *testing.T) {
	dir := t.TempDir()
	const w, h = 7, 5
	dem := raster.NewGrid(raster.Profile{
		Width: w, Height: h, NoData: -9999, HasNoData: true,
		GeoTransform: raster.GeoTransform{0, 2, 0, 10, 0, -2},
	})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dem.Set(x, y, float64(x*x)+0.5*float64(y))
		}
	}
	dem.Set(4, 2, -9999)
	in := filepath.Join(dir, "dem.tif")
	if err := raster.Write(in, dem, godal.Float32); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "slope.tif")
	if _, err := Run(in, out, Options{Resolution: 2, TileSize: 2, Workers: 3}); err != nil {
		t.Fatal(err)
	}
	got, err := raster.Read(out)
	if err != nil {
		t.Fatal(err)
	}
	if got.DataType != godal.Float32 || !math.IsNaN(got.NoData) {
		t.Errorf("output type %v nodata %v", got.DataType, got.NoData)
	}

	ref := make([]float64, len(dem.Data))
	for i, v := range dem.Data {
		ref[i] = v
		if v == -9999 {
			ref[i] = math.NaN()
		}
	}
	want := grid.Horn(ref, w, h, 2)
	for i := range want {
		wv, gv := want[i], got.Data[i]
		if math.IsNaN(wv) != math.IsNaN(gv) {
			t.Errorf("cell %d: got %v want %v", i, gv, wv)
			continue
		}
		if !math.IsNaN(wv) && math.Abs(wv-gv) > 1e-4 {
			t.Errorf("cell %d: got %v want %v", i, gv, wv)
		}
	}
	// the nodata cell and its neighbours have no slope
	if !math.IsNaN(got.At(3, 1)) || !math.IsNaN(got.At(4, 2)) {
		t.Error("nodata neighbourhood should be NaN")
	}
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	if _, err := Run(filepath.Join(dir, "none.tif"), filepath.Join(dir, "out.tif"), DefaultOptions()); err == nil {
		t.Error("expected an error for a missing DEM")
	}
}

func TestRunResolutionFromRaster(t *testing.T) {
	dir := t.TempDir()
	dem := raster.NewGrid(raster.Profile{
		Width: 3, Height: 3,
		GeoTransform: raster.GeoTransform{0, 5, 0, 15, 0, -5},
	})
	// rises 5 per 5 m pixel eastwards, a 45 degree slope
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			dem.Set(x, y, float64(5*x))
		}
	}
	in := filepath.Join(dir, "dem.tif")
	if err := raster.Write(in, dem, godal.Float32); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "slope.tif")
	if _, err := Run(in, out, Options{TileSize: 8}); err != nil {
		t.Fatal(err)
	}
	got, err := raster.Read(out)
	if err != nil {
		t.Fatal(err)
	}
	if v := got.At(1, 1); math.Abs(v-45) > 1e-4 {
		t.Errorf("centre slope = %v, want 45", v)
	}
	if _, err := Run(in, out, Options{Resolution: -1, TileSize: 8}); err == nil {
		t.Error("expected an error for a negative resolution")
	}
}
