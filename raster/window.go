package raster

import "fmt"

// Window is a rectangular block of pixels.
type Window struct {
	X, Y, W, H int
}

func (w Window) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", w.X, w.Y, w.W, w.H)
}

func (w Window) Empty() bool {
	return w.W <= 0 || w.H <= 0
}

// Intersect returns the overlap of two windows.
func (w Window) Intersect(o Window) Window {
	x0, y0 := max(w.X, o.X), max(w.Y, o.Y)
	x1, y1 := min(w.X+w.W, o.X+o.W), min(w.Y+w.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Window{X: x0, Y: y0}
	}
	return Window{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Tile is a processing unit of a tiled raster. Core is the part of the
// raster the tile is responsible for and Buffered adds the overlap read
// around it, clipped to the raster.
type Tile struct {
	I, J     int
	Core     Window
	Buffered Window
}

// Offset is the position of Core inside Buffered.
func (t Tile) Offset() (int, int) {
	return t.Core.X - t.Buffered.X, t.Core.Y - t.Buffered.Y
}

// Tiles splits a width x height raster into tileW x tileH tiles. Tiles are
// ordered column by column: I walks x and J walks y.
func Tiles(width, height, tileW, tileH, overlap int) []Tile {
	if tileW <= 0 || tileH <= 0 {
		return nil
	}
	nx := (width + tileW - 1) / tileW
	ny := (height + tileH - 1) / tileH
	full := Window{W: width, H: height}

	tiles := make([]Tile, 0, nx*ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			core := Window{X: i * tileW, Y: j * tileH}
			core.W = min(tileW, width-core.X)
			core.H = min(tileH, height-core.Y)
			buf := Window{
				X: core.X - overlap,
				Y: core.Y - overlap,
				W: core.W + 2*overlap,
				H: core.H + 2*overlap,
			}
			tiles = append(tiles, Tile{I: i, J: j, Core: core, Buffered: buf.Intersect(full)})
		}
	}
	return tiles
}
