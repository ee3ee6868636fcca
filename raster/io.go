package raster

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/sirupsen/logrus"
)

// Creation options for every GeoTIFF written by gisflow.
var createOptions = []string{"COMPRESS=PACKBITS", "TILED=YES", "BIGTIFF=YES", "INTERLEAVE=BAND"}

func profileOf(ds *godal.Dataset) (Profile, error) {
	st := ds.Structure()
	p := Profile{
		Width:      st.SizeX,
		Height:     st.SizeY,
		Bands:      st.NBands,
		DataType:   st.DataType,
		Projection: ds.Projection(),
	}
	if p.Bands == 0 {
		return p, fmt.Errorf("dataset has no raster bands")
	}
	gt, err := ds.GeoTransform()
	if err != nil {
		return p, fmt.Errorf("couldn't get the geotransform from the source dataset: %w", err)
	}
	p.GeoTransform = gt
	p.NoData, p.HasNoData = ds.Bands()[0].NoData()
	return p, nil
}

// Info returns the profile of a raster file.
func Info(path string) (Profile, error) {
	ds, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		return Profile{}, fmt.Errorf("gdal could not open dataset %s: %w", path, err)
	}
	defer ds.Close()
	return profileOf(ds)
}

// Reader serializes windowed reads of one open dataset. GDAL datasets must
// not be used from several goroutines at once.
type Reader struct {
	Profile
	ds *godal.Dataset
	mu sync.Mutex
}

func Open(path string) (*Reader, error) {
	ds, err := godal.Open(path, godal.RasterOnly())
	if err != nil {
		return nil, fmt.Errorf("gdal could not open dataset %s: %w", path, err)
	}
	p, err := profileOf(ds)
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Reader{Profile: p, ds: ds}, nil
}

// ReadWindow reads a window of band (0 based).
func (r *Reader) ReadWindow(band int, w Window) (*Grid, error) {
	if band < 0 || band >= r.Bands {
		return nil, fmt.Errorf("band %d out of range (dataset has %d)", band+1, r.Bands)
	}
	g := NewGrid(r.Profile.Sub(w))
	g.Bands = 1
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ds.Bands()[band].Read(w.X, w.Y, g.Data, w.W, w.H); err != nil {
		return nil, fmt.Errorf("read window %v: %w", w, err)
	}
	return g, nil
}

// ReadBand reads a whole band (0 based).
func (r *Reader) ReadBand(band int) (*Grid, error) {
	return r.ReadWindow(band, Window{W: r.Width, H: r.Height})
}

func (r *Reader) Close() error {
	return r.ds.Close()
}

// Read loads band 1 of a raster file.
func Read(path string) (*Grid, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.ReadBand(0)
}

// Writer is a single or multi band GeoTIFF accepting concurrent windowed
// writes.
type Writer struct {
	ds *godal.Dataset
	mu sync.Mutex
}

// Create creates a GeoTIFF described by p, replacing any existing file.
// Missing parent directories are created.
func Create(path string, p Profile) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	_ = os.Remove(path)

	bands := p.Bands
	if bands < 1 {
		bands = 1
	}
	ds, err := godal.Create(godal.GTiff, path, bands, p.DataType, p.Width, p.Height,
		godal.CreationOption(createOptions...))
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("error creating raster %s: %w", path, err)
	}
	if p.GeoTransform != (GeoTransform{}) {
		if err := ds.SetGeoTransform(p.GeoTransform); err != nil {
			ds.Close()
			return nil, fmt.Errorf("couldn't set the geotransform on the destination dataset: %w", err)
		}
	}
	if p.Projection != "" {
		if err := ds.SetProjection(p.Projection); err != nil {
			ds.Close()
			return nil, fmt.Errorf("couldn't set the projection on the destination dataset: %w", err)
		}
	}
	if p.HasNoData {
		for _, b := range ds.Bands() {
			if err := b.SetNoData(p.NoData); err != nil {
				ds.Close()
				return nil, fmt.Errorf("set nodata: %w", err)
			}
		}
	}
	return &Writer{ds: ds}, nil
}

// WriteWindow writes data (w.W*w.H cells) into band (0 based).
func (wr *Writer) WriteWindow(band int, w Window, data []float64) error {
	if len(data) < w.W*w.H {
		return fmt.Errorf("no data to write for window %v", w)
	}
	wr.mu.Lock()
	defer wr.mu.Unlock()
	if err := wr.ds.Bands()[band].Write(w.X, w.Y, data, w.W, w.H); err != nil {
		return fmt.Errorf("error writing raster band: %w", err)
	}
	return nil
}

// Describe sets the description of band (0 based).
func (wr *Writer) Describe(band int, desc string) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()
	return wr.ds.Bands()[band].SetDescription(desc)
}

func (wr *Writer) Close() error {
	return wr.ds.Close()
}

// Write writes g as a single band GeoTIFF of type dt.
func Write(path string, g *Grid, dt godal.DataType) error {
	p := g.Profile
	p.Bands = 1
	p.DataType = dt
	w, err := Create(path, p)
	if err != nil {
		return err
	}
	if err := w.WriteWindow(0, Window{W: g.Width, H: g.Height}, g.Data); err != nil {
		w.Close()
		return err
	}
	logrus.Debugf("wrote %s (%dx%d %s)", path, g.Width, g.Height, dt)
	return w.Close()
}

// WriteBands writes grids sharing a profile as the bands of one GeoTIFF.
// descriptions may be shorter than bands.
func WriteBands(path string, p Profile, bands [][]float64, descriptions []string) error {
	p.Bands = len(bands)
	w, err := Create(path, p)
	if err != nil {
		return err
	}
	full := Window{W: p.Width, H: p.Height}
	for i, data := range bands {
		if err := w.WriteWindow(i, full, data); err != nil {
			w.Close()
			return err
		}
		if i < len(descriptions) {
			if err := w.Describe(i, descriptions[i]); err != nil {
				w.Close()
				return fmt.Errorf("describe band %d: %w", i+1, err)
			}
		}
	}
	return w.Close()
}
