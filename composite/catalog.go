package composite

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var ErrEmptyCatalog = errors.New("scene catalog is empty")

var ErrMissingBand = errors.New("scene has no raster for a required band")

// Scene is one acquisition. Sentinel-2 scenes carry red (B4), near infrared
// (B8) and a QA60 raster; Landsat 8 scenes carry the surface temperature
// band (ST_B10) as Thermal and QA_PIXEL as QA.
type Scene struct {
	ID      string
	Date    time.Time
	Cloud   float64
	Red     string
	NIR     string
	Thermal string
	QA      string
}

// bands lists the rasters product needs, the first one setting the grid.
func (s Scene) bands(p Product) []string {
	if p == LSTProduct {
		return []string{s.Thermal, s.QA}
	}
	return []string{s.Red, s.NIR, s.QA}
}

var catalogColumns = []string{"id", "date", "cloud", "qa"}

// ReadCatalog loads a scene catalog CSV with the header
// id,date,cloud,qa followed by red,nir for Sentinel-2 scenes and st for
// Landsat 8 scenes. Dates are either YYYY-MM-DD or YYYY-MM-DD HH:MM:SS.
// Relative raster paths are resolved against the catalog's directory.
// Scenes are returned by date.
func ReadCatalog(path string) ([]Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyCatalog)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range catalogColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, c)
		}
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	var scenes []Scene
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		field := func(col string) string {
			if i, ok := idx[col]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		date, err := time.Parse(timestampLayout, field("date"))
		if err != nil {
			date, err = time.Parse(dateLayout, field("date"))
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		cloud, err := strconv.ParseFloat(field("cloud"), 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: cloud: %w", path, line, err)
		}
		scenes = append(scenes, Scene{
			ID:      field("id"),
			Date:    date,
			Cloud:   cloud,
			Red:     resolve(field("red")),
			NIR:     resolve(field("nir")),
			Thermal: resolve(field("st")),
			QA:      resolve(field("qa")),
		})
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyCatalog)
	}
	sort.SliceStable(scenes, func(i, j int) bool { return scenes[i].Date.Before(scenes[j].Date) })
	return scenes, nil
}

// Select returns the scenes acquired in [start, end) with cloud cover below
// cloudMax, in catalog order.
func Select(scenes []Scene, start, end time.Time, cloudMax float64) []Scene {
	var out []Scene
	for _, s := range scenes {
		if !s.Date.Before(start) && s.Date.Before(end) && s.Cloud < cloudMax {
			out = append(out, s)
		}
	}
	return out
}
