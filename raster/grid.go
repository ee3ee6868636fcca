package raster

import (
	"math"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
)

// Profile describes the georeferencing and storage of a raster.
type Profile struct {
	Width, Height int
	Bands         int
	DataType      godal.DataType
	NoData        float64
	HasNoData     bool
	GeoTransform  GeoTransform
	Projection    string
}

func (p Profile) Bounds() orb.Bound {
	return p.GeoTransform.Bounds(p.Width, p.Height)
}

// Sub returns the profile of a window of p.
func (p Profile) Sub(w Window) Profile {
	out := p
	out.Width, out.Height = w.W, w.H
	out.GeoTransform = p.GeoTransform.Window(w.X, w.Y)
	return out
}

// Grid is one raster band held in memory as float64, row-major.
type Grid struct {
	Profile
	Data []float64
}

func NewGrid(p Profile) *Grid {
	return &Grid{Profile: p, Data: make([]float64, p.Width*p.Height)}
}

func (g *Grid) At(x, y int) float64 {
	return g.Data[y*g.Width+x]
}

func (g *Grid) Set(x, y int, v float64) {
	g.Data[y*g.Width+x] = v
}

// IsNoData reports whether v is NaN or the nodata value.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return g.HasNoData && v == g.NoData
}

// Sub copies a window out of g.
func (g *Grid) Sub(w Window) *Grid {
	out := NewGrid(g.Profile.Sub(w))
	for y := 0; y < w.H; y++ {
		copy(out.Data[y*w.W:(y+1)*w.W], g.Data[(w.Y+y)*g.Width+w.X:(w.Y+y)*g.Width+w.X+w.W])
	}
	return out
}

// Paste copies src into g with its top-left corner at (x, y).
func (g *Grid) Paste(x, y int, src *Grid) {
	for row := 0; row < src.Height; row++ {
		copy(g.Data[(y+row)*g.Width+x:(y+row)*g.Width+x+src.Width], src.Data[row*src.Width:(row+1)*src.Width])
	}
}

// ApplyMask replaces every cell where mask is false with fill.
func (g *Grid) ApplyMask(mask []bool, fill float64) {
	for i, in := range mask {
		if !in {
			g.Data[i] = fill
		}
	}
}
