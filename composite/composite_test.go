package composite

import (
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/erick-otenyo/gisflow/raster"
)

func init() {
	godal.RegisterAll()
}

var testGT = raster.GeoTransform{500000, 10, 0, 4000000, 0, -10}

func writeBand(t *testing.T, path string, w, h int, data []float64) {
	t.Helper()
	g := raster.NewGrid(raster.Profile{Width: w, Height: h, GeoTransform: testGT})
	copy(g.Data, data)
	if err := raster.Write(path, g, godal.UInt16); err != nil {
		t.Fatal(err)
	}
}

// writeCatalog lays out three 2x2 scenes. s1 and s2 are clear enough to be
// used in January; s3 is too cloudy.
func writeCatalog(t *testing.T, dir string) string {
	t.Helper()
	red := []float64{1000, 1000, 1000, 1000}
	scenes := []struct {
		id      string
		nir, qa []float64
	}{
		{"s1", []float64{3000, 1000, 3000, 3000}, []float64{0, 0, 1024, 0}},
		{"s2", []float64{1000, 3000, 1000, 1000}, []float64{0, 0, 0, 2048}},
		{"s3", []float64{3000, 3000, 3000, 3000}, []float64{0, 0, 0, 0}},
	}
	for _, s := range scenes {
		writeBand(t, filepath.Join(dir, s.id+"_B4.tif"), 2, 2, red)
		writeBand(t, filepath.Join(dir, s.id+"_B8.tif"), 2, 2, s.nir)
		writeBand(t, filepath.Join(dir, s.id+"_QA60.tif"), 2, 2, s.qa)
	}
	catalog := `id,date,cloud,red,nir,qa
s2,2024-01-10,10,s2_B4.tif,s2_B8.tif,s2_QA60.tif
s1,2024-01-03,10,s1_B4.tif,s1_B8.tif,s1_QA60.tif
s3,2024-01-12,80,s3_B4.tif,s3_B8.tif,s3_QA60.tif
`
	path := filepath.Join(dir, "catalog.csv")
	if err := os.WriteFile(path, []byte(catalog), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBiWeekly(t *testing.T) {
	ps := BiWeekly(2024, 12, 21)
	if len(ps) != 24 {
		t.Fatalf("got %d periods", len(ps))
	}
	p := ps[1]
	if p.Number != 2 || p.Label != "2024-01-16" ||
		p.OutputEnd.Format(dateLayout) != "2024-01-30" ||
		p.AcquisitionEnd.Format(dateLayout) != "2024-02-06" || p.WindowDays() != 21 {
		t.Errorf("period 2 = %+v", p)
	}
	last := ps[23]
	if last.Label != "2024-12-11" || last.OutputEnd.Format(dateLayout) != "2024-12-25" {
		t.Errorf("period 24 = %+v", last)
	}
}

func TestMonthly(t *testing.T) {
	ps := Monthly(2024, 2, 3)
	if len(ps) != 2 {
		t.Fatalf("got %d periods", len(ps))
	}
	if ps[0].Label != "2024-02" || ps[0].OutputEnd.Format(dateLayout) != "2024-02-29" || ps[0].Number != 2 {
		t.Errorf("february = %+v", ps[0])
	}
}

func TestContinuous(t *testing.T) {
	ps := Continuous(2024, 15)
	if len(ps) != 24 {
		t.Fatalf("got %d periods", len(ps))
	}
	if ps[0].Label != "2024-01-01_2024-01-16" || ps[0].OutputEnd.Format(dateLayout) != "2024-01-15" || ps[0].WindowDays() != 15 {
		t.Errorf("first period = %+v", ps[0])
	}
	if last := ps[23]; last.Number != 24 || last.Label != "2024-12-11_2024-12-26" {
		t.Errorf("last period = %+v", last)
	}

	// 364 days split in weeks end exactly on December 31st, which stays out
	weeks := Continuous(2023, 7)
	if len(weeks) != 52 || weeks[51].AcquisitionEnd.Format(dateLayout) != "2023-12-31" {
		t.Errorf("got %d weeks ending %s", len(weeks), weeks[len(weeks)-1].AcquisitionEnd.Format(dateLayout))
	}
}

func TestReadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir)
	scenes, err := ReadCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, s := range scenes {
		ids = append(ids, s.ID)
	}
	if !reflect.DeepEqual(ids, []string{"s1", "s2", "s3"}) {
		t.Errorf("ids = %v", ids)
	}
	if scenes[0].Red != filepath.Join(dir, "s1_B4.tif") {
		t.Errorf("red = %s", scenes[0].Red)
	}

	sel := Select(scenes, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC), 40)
	if len(sel) != 2 {
		t.Errorf("selected %d scenes", len(sel))
	}

	bad := filepath.Join(dir, "bad.csv")
	os.WriteFile(bad, []byte("id,date,red\n"), 0o644)
	if _, err := ReadCatalog(bad); err == nil || !strings.Contains(err.Error(), "missing column") {
		t.Errorf("err = %v", err)
	}
	empty := filepath.Join(dir, "empty.csv")
	os.WriteFile(empty, []byte("id,date,cloud,red,nir,qa\n"), 0o644)
	if _, err := ReadCatalog(empty); !errors.Is(err, ErrEmptyCatalog) {
		t.Errorf("err = %v", err)
	}
}

func TestComposite(t *testing.T) {
	dir := t.TempDir()
	scenes, err := ReadCatalog(writeCatalog(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	prof, err := raster.Info(scenes[0].Red)
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	p := BiWeekly(2024, 1, 21)[0]
	res, err := Composite(Select(scenes, p.Start, p.AcquisitionEnd, opts.CloudMax), p, outputProfile(prof), nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	// the latest clear scene wins, masked cells fall through to older ones
	if !reflect.DeepEqual(res.VC, []float64{0, 1, 0, 1}) {
		t.Errorf("vc = %v", res.VC)
	}
	want := []float64{0.25, 0.25, 0, 0.5}
	for i := range want {
		if math.Abs(res.NDVI[i]-want[i]) > 1e-9 {
			t.Errorf("ndvi[%d] = %v, want %v", i, res.NDVI[i], want[i])
		}
	}
	if res.Coverage != 50 || math.Abs(res.MeanNDVI-0.25) > 1e-9 {
		t.Errorf("coverage %v, mean %v", res.Coverage, res.MeanNDVI)
	}

	empty, err := Composite(nil, p, outputProfile(prof), []bool{true, false, true, true}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if empty.VC[0] != 0 || !math.IsNaN(empty.VC[1]) || empty.NDVI[0] != NoObservation {
		t.Errorf("empty period = %v %v", empty.VC, empty.NDVI)
	}
	if empty.Coverage != 0 || !math.IsNaN(empty.MeanNDVI) {
		t.Errorf("empty coverage %v, mean %v", empty.Coverage, empty.MeanNDVI)
	}
}

func TestGridMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeCatalog(t, dir)
	writeBand(t, filepath.Join(dir, "s2_B8.tif"), 3, 3, make([]float64, 9))
	opts := DefaultOptions()
	opts.Year = 2024
	opts.Months = 1
	if _, err := Run(path, filepath.Join(dir, "out"), opts); !errors.Is(err, ErrGridMismatch) {
		t.Errorf("err = %v", err)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func TestRunBiWeekly(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	opts := DefaultOptions()
	opts.Year = 2024
	opts.Months = 1
	opts.ExportNDVI = true
	opts.Workers = 2
	sum, err := Run(writeCatalog(t, dir), out, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Periods) != 2 || sum.Periods[0].Number != 1 {
		t.Fatalf("periods = %d", len(sum.Periods))
	}
	wantFiles := []string{
		filepath.Join(out, "2024_BiWeekly_VC_01_02.tif"),
		filepath.Join(out, "2024_BiWeekly_NDVI_01_02.tif"),
	}
	if !reflect.DeepEqual(sum.Files, wantFiles) {
		t.Errorf("files = %v", sum.Files)
	}

	r, err := raster.Open(wantFiles[0])
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	second, err := r.ReadBand(1)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(second.Data, []float64{0, 0, 0, 0}) {
		t.Errorf("second period vc = %v", second.Data)
	}

	rows := readCSV(t, sum.Metadata)
	if filepath.Base(sum.Metadata) != "2024_BiWeekly_VC_NDVI_Metadata.csv" || len(rows) != 4 {
		t.Fatalf("metadata %s has %d rows", sum.Metadata, len(rows))
	}
	first := rows[1]
	if first[3] != "2024-01-01" || first[7] != "2024-01-22" || first[9] != "2" ||
		first[10] != "True" || first[11] != "s1, s2" || first[14] != "VC" || first[16] != "50.00" {
		t.Errorf("first row = %v", first)
	}
	if rows[2][14] != "NDVI_mean" || rows[3][9] != "0" || rows[3][10] != "False" || rows[3][17] != "" {
		t.Errorf("rows = %v", rows[2:])
	}
}

func TestRunMonthly(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	opts := DefaultOptions()
	opts.Mode = MonthlyMode
	opts.Year = 2024
	opts.StartMonth, opts.EndMonth = 1, 2
	sum, err := Run(writeCatalog(t, dir), out, opts)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range sum.Files {
		names = append(names, filepath.Base(f))
	}
	want := []string{"VC_2024-01_thr_0_15.tif", "VC_2024-02_thr_0_15.tif", "VC_Annual_2024_thr_0_15.tif"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("files = %v", names)
	}
	info, err := raster.Info(sum.Files[2])
	if err != nil {
		t.Fatal(err)
	}
	if info.Bands != 2 {
		t.Errorf("annual stack has %d bands", info.Bands)
	}
	rows := readCSV(t, sum.Metadata)
	if len(rows) != 3 || rows[1][1] != "1" || rows[1][3] != "2" || rows[1][4] != "50.00" || rows[1][5] != "VC_2024-01_thr_0_15" {
		t.Errorf("rows = %v", rows)
	}
}

func TestInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.Months = 13
	if _, err := Run("catalog.csv", t.TempDir(), opts); err == nil {
		t.Error("expected an error for 13 months")
	}
	opts = DefaultOptions()
	opts.Mode = "weekly"
	if _, err := Run("catalog.csv", t.TempDir(), opts); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestRunContinuous(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	opts := DefaultOptions()
	opts.Mode = ContinuousMode
	opts.Year = 2024
	opts.Days = 15
	sum, err := Run(writeCatalog(t, dir), out, opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.Files) != 24 || filepath.Base(sum.Files[0]) != "VC_2024-01-01_2024-01-16.tif" {
		t.Fatalf("files = %v", sum.Files)
	}
	first, err := raster.Read(sum.Files[0])
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Data, []float64{0, 1, 0, 1}) {
		t.Errorf("first period vc = %v", first.Data)
	}

	rows := readCSV(t, sum.Metadata)
	if filepath.Base(sum.Metadata) != "2024_Consecutive_15Day_VC_Metadata.csv" || len(rows) != 25 {
		t.Fatalf("metadata %s has %d rows", sum.Metadata, len(rows))
	}
	if !reflect.DeepEqual(rows[1], []string{"2024_01_01_2024_01_16", "s1, s2", "2", "50.00"}) {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][1] != "" || rows[2][2] != "0" {
		t.Errorf("second row = %v", rows[2])
	}
}

// writeLandsatCatalog lays out three 2x2 Landsat 8 scenes, two in January
// and one in February.
func writeLandsatCatalog(t *testing.T, dir string) string {
	t.Helper()
	scenes := []struct {
		id     string
		st, qa []float64
	}{
		// cell 1 is cloud, cell 3 shadow
		{"L1", []float64{40000, 40000, 40000, 40000}, []float64{0, 1 << 3, 0, 1 << 5}},
		// cell 2 has no data
		{"L2", []float64{42000, 42000, 0, 42000}, []float64{0, 0, 0, 0}},
		// only cell 3 is not fill
		{"L3", []float64{40000, 40000, 40000, 40000}, []float64{1, 1, 1, 0}},
	}
	for _, s := range scenes {
		writeBand(t, filepath.Join(dir, s.id+"_ST_B10.tif"), 2, 2, s.st)
		writeBand(t, filepath.Join(dir, s.id+"_QA_PIXEL.tif"), 2, 2, s.qa)
	}
	catalog := `id,date,cloud,st,qa
L1,2024-01-05 10:30:00,5,L1_ST_B10.tif,L1_QA_PIXEL.tif
L2,2024-01-21 10:30:00,12.5,L2_ST_B10.tif,L2_QA_PIXEL.tif
L3,2024-02-06 10:30:00,8,L3_ST_B10.tif,L3_QA_PIXEL.tif
`
	path := filepath.Join(dir, "landsat.csv")
	if err := os.WriteFile(path, []byte(catalog), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSurfaceTemperature(t *testing.T) {
	if got := SurfaceTemperature(300); math.Abs(got-27.868) > 1e-3 {
		t.Errorf("lst of 300K = %v", got)
	}
}

func TestRunLST(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	opts := DefaultOptions()
	opts.Mode = MonthlyMode
	opts.Product = LSTProduct
	opts.Year = 2024
	opts.StartMonth, opts.EndMonth = 1, 2
	sum, err := Run(writeLandsatCatalog(t, dir), out, opts)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range sum.Files {
		names = append(names, filepath.Base(f))
	}
	want := []string{"LST_Mosaic_2024_01.tif", "LST_Mosaic_2024_02.tif", "LST_Annual_Composite_2024.tif"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("files = %v", names)
	}

	lst := func(dn float64) float64 { return SurfaceTemperature(dn*thermalScale + thermalOffset) }
	jan, err := raster.Read(sum.Files[0])
	if err != nil {
		t.Fatal(err)
	}
	wantJan := []float64{(lst(40000) + lst(42000)) / 2, lst(42000), lst(40000), lst(42000)}
	for i := range wantJan {
		if math.Abs(jan.Data[i]-wantJan[i]) > 1e-3 {
			t.Errorf("january lst[%d] = %v, want %v", i, jan.Data[i], wantJan[i])
		}
	}
	if sum.Periods[0].Coverage != 100 || sum.Periods[1].Coverage != 25 {
		t.Errorf("coverage %v, %v", sum.Periods[0].Coverage, sum.Periods[1].Coverage)
	}

	feb, err := raster.Read(sum.Files[1])
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(feb.Data[0]) || math.Abs(feb.Data[3]-lst(40000)) > 1e-3 {
		t.Errorf("february lst = %v", feb.Data)
	}
	info, err := raster.Info(sum.Files[2])
	if err != nil {
		t.Fatal(err)
	}
	if info.Bands != 2 {
		t.Errorf("annual stack has %d bands", info.Bands)
	}

	rows := readCSV(t, sum.Metadata)
	if filepath.Base(sum.Metadata) != "2024_LST_Metadata.csv" || len(rows) != 4 {
		t.Fatalf("metadata %s has %d rows", sum.Metadata, len(rows))
	}
	if !reflect.DeepEqual(rows[2], []string{"2024_01", "L2", "12.5", "2024-01-21 10:30:00"}) {
		t.Errorf("second row = %v", rows[2])
	}
}

func TestLSTOptions(t *testing.T) {
	dir := t.TempDir()
	catalog := writeLandsatCatalog(t, dir)
	opts := DefaultOptions()
	opts.Product = LSTProduct
	if _, err := Run(catalog, dir, opts); err == nil || !strings.Contains(err.Error(), "monthly") {
		t.Errorf("bi-weekly lst: err = %v", err)
	}
	// Landsat scenes have no red or near infrared rasters
	opts = DefaultOptions()
	opts.Mode = MonthlyMode
	if _, err := Run(catalog, dir, opts); !errors.Is(err, ErrMissingBand) {
		t.Errorf("vc from landsat: err = %v", err)
	}
}
