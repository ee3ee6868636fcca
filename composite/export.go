package composite

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/erick-otenyo/gisflow/raster"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	maxSourceIDs    = 10
)

var biWeeklyColumns = []string{
	"Year", "Months_Processed", "Period_Number", "Period_Label",
	"Output_Start", "Output_End", "Acquisition_Start", "Acquisition_End",
	"Acquisition_Window_Days", "Image_Count", "QA_Flag", "Source_Images",
	"NDVI_Threshold", "Cloud_Cover_Max", "Data_Type", "Processing_Date",
	"Coverage_Percent", "Mean_NDVI",
}

var monthlyColumns = []string{
	"Year", "Month", "DataType", "ImageCount", "CoveragePercent",
	"VC_Filename", "Threshold", "CloudCoverMax", "Processing_Date",
}

// exportBiWeekly writes consecutive periods two by two as
// <year>_BiWeekly_VC_<aa>_<bb>.tif, with the NDVI counterparts when asked.
func exportBiWeekly(dir string, prof raster.Profile, results []*PeriodResult, opts Options) ([]string, string, error) {
	var files []string
	for i := 0; i+1 < len(results); i += 2 {
		a, b := results[i], results[i+1]
		labels := []string{a.Label, b.Label}
		name := fmt.Sprintf("%d_BiWeekly_VC_%02d_%02d.tif", opts.Year, a.Number, b.Number)
		path := filepath.Join(dir, name)
		if err := raster.WriteBands(path, prof, [][]float64{a.VC, b.VC}, labels); err != nil {
			return nil, "", err
		}
		files = append(files, path)
		if opts.ExportNDVI {
			name := fmt.Sprintf("%d_BiWeekly_NDVI_%02d_%02d.tif", opts.Year, a.Number, b.Number)
			path := filepath.Join(dir, name)
			if err := raster.WriteBands(path, prof, [][]float64{a.NDVI, b.NDVI}, labels); err != nil {
				return nil, "", err
			}
			files = append(files, path)
		}
	}

	now := time.Now().Format(timestampLayout)
	rows := [][]string{biWeeklyColumns}
	for _, r := range results {
		row := []string{
			strconv.Itoa(opts.Year),
			strconv.Itoa(opts.Months),
			strconv.Itoa(r.Number),
			r.Label,
			r.Start.Format(dateLayout),
			r.OutputEnd.Format(dateLayout),
			r.Start.Format(dateLayout),
			r.AcquisitionEnd.Format(dateLayout),
			strconv.Itoa(r.WindowDays()),
			strconv.Itoa(len(r.Scenes)),
			titleBool(len(r.Scenes) > 0),
			sourceImages(r.Scenes),
			formatFloat(opts.Threshold),
			formatFloat(opts.CloudMax),
			"VC",
			now,
			fmt.Sprintf("%.2f", r.Coverage),
			formatMean(r.MeanNDVI),
		}
		rows = append(rows, row)
		if opts.ExportNDVI && len(r.Scenes) > 0 {
			ndviRow := append([]string(nil), row...)
			ndviRow[14] = "NDVI_mean"
			rows = append(rows, ndviRow)
		}
	}
	meta := filepath.Join(dir, fmt.Sprintf("%d_BiWeekly_VC_NDVI_Metadata.csv", opts.Year))
	if err := writeCSV(meta, rows); err != nil {
		return nil, "", err
	}
	return files, meta, nil
}

// exportMonthly writes one VC GeoTIFF per month plus an annual stack with a
// band per month.
func exportMonthly(dir string, prof raster.Profile, results []*PeriodResult, opts Options) ([]string, string, error) {
	thr := strings.ReplaceAll(formatFloat(opts.Threshold), ".", "_")
	now := time.Now().Format(timestampLayout)

	var files []string
	rows := [][]string{monthlyColumns}
	bands := make([][]float64, 0, len(results))
	labels := make([]string, 0, len(results))
	for _, r := range results {
		stem := fmt.Sprintf("VC_%s_thr_%s", r.Label, thr)
		path := filepath.Join(dir, stem+".tif")
		if err := raster.WriteBands(path, prof, [][]float64{r.VC}, []string{r.Label}); err != nil {
			return nil, "", err
		}
		files = append(files, path)
		bands = append(bands, r.VC)
		labels = append(labels, r.Label)
		rows = append(rows, []string{
			strconv.Itoa(opts.Year),
			strconv.Itoa(r.Number),
			"VC",
			strconv.Itoa(len(r.Scenes)),
			fmt.Sprintf("%.2f", r.Coverage),
			stem,
			formatFloat(opts.Threshold),
			formatFloat(opts.CloudMax),
			now,
		})
	}
	if len(bands) > 0 {
		path := filepath.Join(dir, fmt.Sprintf("VC_Annual_%d_thr_%s.tif", opts.Year, thr))
		if err := raster.WriteBands(path, prof, bands, labels); err != nil {
			return nil, "", err
		}
		files = append(files, path)
	}

	meta := filepath.Join(dir, fmt.Sprintf("%d_Monthly_VC_Metadata.csv", opts.Year))
	if err := writeCSV(meta, rows); err != nil {
		return nil, "", err
	}
	return files, meta, nil
}

var lstColumns = []string{"YYYY_MM", "Sourcename", "Cloud_cover", "Time_stamp"}

var continuousColumns = []string{"Date_Range", "Sourcenames", "Image_Count", "Coverage_Percent"}

// exportLST writes LST_Mosaic_<YYYY_MM>.tif per month, an annual stack with
// a band per month and one metadata row per scene used.
func exportLST(dir string, prof raster.Profile, results []*PeriodResult, opts Options) ([]string, string, error) {
	var files []string
	rows := [][]string{lstColumns}
	bands := make([][]float64, 0, len(results))
	labels := make([]string, 0, len(results))
	for _, r := range results {
		month := strings.ReplaceAll(r.Label, "-", "_")
		label := "LST_" + month
		path := filepath.Join(dir, fmt.Sprintf("LST_Mosaic_%s.tif", month))
		if err := raster.WriteBands(path, prof, [][]float64{r.LST}, []string{label}); err != nil {
			return nil, "", err
		}
		files = append(files, path)
		bands = append(bands, r.LST)
		labels = append(labels, label)
		for _, s := range r.Scenes {
			rows = append(rows, []string{month, s.ID, formatFloat(s.Cloud), s.Date.Format(timestampLayout)})
		}
	}
	if len(bands) > 0 {
		path := filepath.Join(dir, fmt.Sprintf("LST_Annual_Composite_%d.tif", opts.Year))
		if err := raster.WriteBands(path, prof, bands, labels); err != nil {
			return nil, "", err
		}
		files = append(files, path)
	}

	meta := filepath.Join(dir, fmt.Sprintf("%d_LST_Metadata.csv", opts.Year))
	if err := writeCSV(meta, rows); err != nil {
		return nil, "", err
	}
	return files, meta, nil
}

// exportContinuous writes VC_<start>_<end>.tif per period, with the NDVI
// counterparts when asked.
func exportContinuous(dir string, prof raster.Profile, results []*PeriodResult, opts Options) ([]string, string, error) {
	var files []string
	rows := [][]string{continuousColumns}
	for _, r := range results {
		path := filepath.Join(dir, fmt.Sprintf("VC_%s.tif", r.Label))
		if err := raster.WriteBands(path, prof, [][]float64{r.VC}, []string{r.Label}); err != nil {
			return nil, "", err
		}
		files = append(files, path)
		if opts.ExportNDVI {
			path := filepath.Join(dir, fmt.Sprintf("NDVI_%s.tif", r.Label))
			if err := raster.WriteBands(path, prof, [][]float64{r.NDVI}, []string{r.Label}); err != nil {
				return nil, "", err
			}
			files = append(files, path)
		}
		ids := make([]string, len(r.Scenes))
		for i, s := range r.Scenes {
			ids[i] = s.ID
		}
		rows = append(rows, []string{
			strings.ReplaceAll(r.Label, "-", "_"),
			strings.Join(ids, ", "),
			strconv.Itoa(len(r.Scenes)),
			fmt.Sprintf("%.2f", r.Coverage),
		})
	}

	meta := filepath.Join(dir, fmt.Sprintf("%d_Consecutive_%dDay_VC_Metadata.csv", opts.Year, opts.Days))
	if err := writeCSV(meta, rows); err != nil {
		return nil, "", err
	}
	return files, meta, nil
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// sourceImages lists the first ten scene ids, with an ellipsis when there
// are more.
func sourceImages(scenes []Scene) string {
	ids := make([]string, 0, maxSourceIDs)
	for i, s := range scenes {
		if i == maxSourceIDs {
			break
		}
		ids = append(ids, s.ID)
	}
	out := strings.Join(ids, ", ")
	if len(scenes) > maxSourceIDs {
		out += "..."
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatMean(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.4f", v)
}

func titleBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
