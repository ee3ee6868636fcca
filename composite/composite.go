// Package composite builds Sentinel-2 vegetation cover (VC) composites and
// Landsat 8 land surface temperature (LST) composites.
// For VC the cloud-filtered scenes of a period are QA masked, NDVI is
// derived and thresholded, and the scenes are mosaicked with the latest
// acquisition on top. The mean NDVI of the period is kept alongside.
// For LST every clear pixel of a month is converted to degrees Celsius and
// averaged.
package composite

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/airbusgeo/godal"
	"github.com/erick-otenyo/gisflow/grid"
	"github.com/erick-otenyo/gisflow/raster"
	"github.com/erick-otenyo/gisflow/utils"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// NoObservation is the NDVI written where no clear pixel was seen.
const NoObservation = -9999

const (
	reflectanceScale = 10000
	// QA60 bit 10 flags opaque clouds, bit 11 cirrus.
	cloudBits = 1<<10 | 1<<11

	// ST_B10 digital numbers scale to brightness temperature in Kelvin.
	thermalScale  = 0.00341802
	thermalOffset = 149.0
	emissivity    = 0.986
	// QA_PIXEL bit 0 flags fill, bit 3 cloud and bit 5 cloud shadow.
	lstMaskBits = 1<<0 | 1<<3 | 1<<5
)

var ErrGridMismatch = errors.New("scene is not on the reference grid")

type Mode string

const (
	BiWeeklyMode   Mode = "biweekly"
	MonthlyMode    Mode = "monthly"
	ContinuousMode Mode = "continuous"
)

// Product is the quantity composited.
type Product string

const (
	VCProduct  Product = "vc"
	LSTProduct Product = "lst"
)

type Options struct {
	Mode    Mode
	Product Product
	Year    int
	// Months is the number of months covered by bi-weekly periods.
	Months int
	// StartMonth and EndMonth bound monthly composites, inclusive.
	StartMonth int
	EndMonth   int
	// Window is the bi-weekly acquisition window in days.
	Window int
	// Days is the length of continuous periods.
	Days       int
	Threshold  float64
	CloudMax   float64
	AOIPath    string
	ExportNDVI bool
	Workers    int
}

func DefaultOptions() Options {
	return Options{
		Mode:       BiWeeklyMode,
		Product:    VCProduct,
		Year:       time.Now().Year(),
		Months:     12,
		StartMonth: 1,
		EndMonth:   12,
		Window:     21,
		Days:       15,
		Threshold:  0.15,
		CloudMax:   40,
		Workers:    6,
	}
}

func (o Options) validate() error {
	if o.Threshold < -1 || o.Threshold > 1 {
		return fmt.Errorf("NDVI threshold %v outside [-1, 1]", o.Threshold)
	}
	switch o.Mode {
	case BiWeeklyMode:
		if o.Months < 1 || o.Months > 12 {
			return fmt.Errorf("months must be within 1..12, got %d", o.Months)
		}
		if o.Window < 1 {
			return fmt.Errorf("acquisition window must be positive, got %d", o.Window)
		}
	case MonthlyMode:
		if o.StartMonth < 1 || o.EndMonth > 12 || o.StartMonth > o.EndMonth {
			return fmt.Errorf("invalid month range %d..%d", o.StartMonth, o.EndMonth)
		}
	case ContinuousMode:
		if o.Days < 1 || o.Days > 364 {
			return fmt.Errorf("period length must be within 1..364 days, got %d", o.Days)
		}
	default:
		return fmt.Errorf("unknown composite mode %q", o.Mode)
	}
	switch o.Product {
	case VCProduct:
	case LSTProduct:
		if o.Mode != MonthlyMode {
			return fmt.Errorf("%s composites are monthly, got mode %q", o.Product, o.Mode)
		}
	default:
		return fmt.Errorf("unknown product %q", o.Product)
	}
	return nil
}

func (o Options) periods() []Period {
	switch o.Mode {
	case MonthlyMode:
		return Monthly(o.Year, o.StartMonth, o.EndMonth)
	case ContinuousMode:
		return Continuous(o.Year, o.Days)
	}
	return BiWeekly(o.Year, o.Months, o.Window)
}

// PeriodResult is the composite of one period. VC and NDVI are set for VC
// composites and LST for LST composites. All are full grids; cells outside
// the AOI are NaN.
type PeriodResult struct {
	Period
	Scenes []Scene
	VC     []float64
	NDVI   []float64
	LST    []float64
	// Coverage is the percentage of AOI cells flagged as vegetation, or for
	// LST the percentage of AOI cells with a clear observation.
	Coverage float64
	// MeanNDVI and MeanLST are NaN when nothing was observed.
	MeanNDVI float64
	MeanLST  float64
}

// Summary describes a finished run.
type Summary struct {
	Periods  []*PeriodResult
	Files    []string
	Metadata string
	Elapsed  time.Duration
}

// Run composites the scenes of the catalog for every period of opts and
// writes the GeoTIFFs and the metadata CSV to outputDir.
func Run(catalogPath, outputDir string, opts Options) (*Summary, error) {
	timer := utils.NewTimer()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	scenes, err := ReadCatalog(catalogPath)
	if err != nil {
		return nil, err
	}
	for _, s := range scenes {
		for _, b := range s.bands(opts.Product) {
			if b == "" {
				return nil, fmt.Errorf("scene %s: %w", s.ID, ErrMissingBand)
			}
		}
	}
	ref, err := raster.Info(scenes[0].bands(opts.Product)[0])
	if err != nil {
		return nil, err
	}
	prof := outputProfile(ref)

	var aoi []bool
	if opts.AOIPath != "" {
		if aoi, err = raster.AOIMask(opts.AOIPath, prof, false); err != nil {
			return nil, fmt.Errorf("aoi: %w", err)
		}
	}

	periods := opts.periods()
	logrus.Infof("compositing %d %s %s periods of %d from %d scenes", len(periods), opts.Mode, opts.Product, opts.Year, len(scenes))
	results, err := compositeAll(scenes, periods, prof, aoi, opts)
	if err != nil {
		return nil, err
	}
	timer.LogLap("compositing completed")

	var files []string
	var metadata string
	switch {
	case opts.Product == LSTProduct:
		files, metadata, err = exportLST(outputDir, prof, results, opts)
	case opts.Mode == MonthlyMode:
		files, metadata, err = exportMonthly(outputDir, prof, results, opts)
	case opts.Mode == ContinuousMode:
		files, metadata, err = exportContinuous(outputDir, prof, results, opts)
	default:
		files, metadata, err = exportBiWeekly(outputDir, prof, results, opts)
	}
	if err != nil {
		return nil, err
	}
	timer.LogLap("exports written")
	logrus.Infof("wrote %d rasters and %s", len(files), metadata)
	return &Summary{Periods: results, Files: files, Metadata: metadata, Elapsed: timer.Toc()}, nil
}

func outputProfile(ref raster.Profile) raster.Profile {
	p := ref
	p.Bands = 1
	p.DataType = godal.Float32
	p.NoData = math.NaN()
	p.HasNoData = true
	return p
}

// compositeAll runs Composite over the periods concurrently and returns the
// results in period order.
func compositeAll(scenes []Scene, periods []Period, prof raster.Profile, aoi []bool, opts Options) ([]*PeriodResult, error) {
	workers := utils.Workers(opts.Workers, len(periods))
	bar := progressbar.Default(int64(len(periods)), "periods")
	process := func(_ context.Context, p Period) (*PeriodResult, error) {
		defer bar.Add(1)
		selected := Select(scenes, p.Start, p.AcquisitionEnd, opts.CloudMax)
		build := Composite
		if opts.Product == LSTProduct {
			build = CompositeLST
		}
		r, err := build(selected, p, prof, aoi, opts)
		if err != nil {
			return nil, fmt.Errorf("period %s: %w", p.Label, err)
		}
		logrus.Debugf("period %d (%s): %d images, coverage %.2f%%", r.Number, r.Label, len(r.Scenes), r.Coverage)
		return r, nil
	}

	results, err := utils.Concurrent(context.Background(), periods, workers, process)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Composite mosaics scenes, given oldest first, on the grid of prof. A
// period without scenes yields a VC of zeros and an NDVI of NoObservation.
func Composite(scenes []Scene, p Period, prof raster.Profile, aoi []bool, opts Options) (*PeriodResult, error) {
	n := prof.Width * prof.Height
	vc := make([]float64, n)
	sum := make([]float64, n)
	count := make([]int, n)

	for _, s := range scenes {
		red, nir, qa, err := loadScene(s, prof)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			ndvi, ok := pixelNDVI(red, nir, qa, i)
			if !ok {
				continue
			}
			if ndvi >= opts.Threshold {
				vc[i] = 1
			} else {
				vc[i] = 0
			}
			sum[i] += ndvi
			count[i]++
		}
	}

	ndvi := make([]float64, n)
	for i := range ndvi {
		if count[i] > 0 {
			ndvi[i] = sum[i] / float64(count[i])
		} else {
			ndvi[i] = NoObservation
		}
	}

	// Bi-weekly coverage counts unobserved cells as bare; monthly coverage
	// only looks at observed cells.
	cover := make([]float64, 0, n)
	observedNDVI := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if aoi != nil && !aoi[i] {
			vc[i] = math.NaN()
			ndvi[i] = math.NaN()
			continue
		}
		if count[i] > 0 {
			observedNDVI = append(observedNDVI, ndvi[i])
			cover = append(cover, vc[i])
		} else if opts.Mode != MonthlyMode {
			cover = append(cover, 0)
		}
	}
	coverage := grid.Summarize(cover).Mean() * 100
	if math.IsNaN(coverage) {
		coverage = 0
	}

	return &PeriodResult{
		Period:   p,
		Scenes:   scenes,
		VC:       vc,
		NDVI:     ndvi,
		Coverage: coverage,
		MeanNDVI: grid.Summarize(observedNDVI).Mean(),
		MeanLST:  math.NaN(),
	}, nil
}

// CompositeLST averages the clear land surface temperatures of scenes on
// the grid of prof. Cells never observed are NaN.
func CompositeLST(scenes []Scene, p Period, prof raster.Profile, aoi []bool, opts Options) (*PeriodResult, error) {
	n := prof.Width * prof.Height
	sum := make([]float64, n)
	count := make([]int, n)
	for _, s := range scenes {
		st, err := readBand(s.Thermal, s.ID, prof)
		if err != nil {
			return nil, err
		}
		qa, err := readBand(s.QA, s.ID, prof)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			if t, ok := pixelLST(st, qa, i); ok {
				sum[i] += t
				count[i]++
			}
		}
	}

	lst := make([]float64, n)
	observed := make([]float64, 0, n)
	inside := 0
	for i := range lst {
		lst[i] = math.NaN()
		if aoi != nil && !aoi[i] {
			continue
		}
		inside++
		if count[i] > 0 {
			lst[i] = sum[i] / float64(count[i])
			observed = append(observed, lst[i])
		}
	}
	coverage := 0.0
	if inside > 0 {
		coverage = float64(len(observed)) / float64(inside) * 100
	}
	return &PeriodResult{
		Period:   p,
		Scenes:   scenes,
		LST:      lst,
		Coverage: coverage,
		MeanNDVI: math.NaN(),
		MeanLST:  grid.Summarize(observed).Mean(),
	}, nil
}

func loadScene(s Scene, prof raster.Profile) (red, nir, qa *raster.Grid, err error) {
	if red, err = readBand(s.Red, s.ID, prof); err != nil {
		return
	}
	if nir, err = readBand(s.NIR, s.ID, prof); err != nil {
		return
	}
	qa, err = readBand(s.QA, s.ID, prof)
	return
}

func readBand(path, id string, prof raster.Profile) (*raster.Grid, error) {
	g, err := raster.Read(path)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", id, err)
	}
	if g.Width != prof.Width || g.Height != prof.Height || g.GeoTransform != prof.GeoTransform {
		return nil, fmt.Errorf("scene %s (%s): %w", id, path, ErrGridMismatch)
	}
	return g, nil
}

// pixelNDVI returns the NDVI of cell i, or false when the cell is cloudy,
// nodata or has no reflectance.
func pixelNDVI(red, nir, qa *raster.Grid, i int) (float64, bool) {
	q, r, n := qa.Data[i], red.Data[i], nir.Data[i]
	if qa.IsNoData(q) || red.IsNoData(r) || nir.IsNoData(n) {
		return 0, false
	}
	if int64(q)&cloudBits != 0 {
		return 0, false
	}
	r /= reflectanceScale
	n /= reflectanceScale
	if n+r == 0 {
		return 0, false
	}
	return (n - r) / (n + r), true
}

// pixelLST returns the land surface temperature of cell i in degrees
// Celsius, or false when the cell is fill, cloud, shadow or nodata.
func pixelLST(st, qa *raster.Grid, i int) (float64, bool) {
	q, dn := qa.Data[i], st.Data[i]
	if qa.IsNoData(q) || st.IsNoData(dn) || dn == 0 {
		return 0, false
	}
	if int64(q)&lstMaskBits != 0 {
		return 0, false
	}
	return SurfaceTemperature(dn*thermalScale + thermalOffset), true
}

// SurfaceTemperature corrects a brightness temperature in Kelvin for a
// constant emissivity of 0.986 and returns it in degrees Celsius.
func SurfaceTemperature(tb float64) float64 {
	return tb/(1+0.00115*(tb/1.438)*math.Log(emissivity)) - 273.15
}
