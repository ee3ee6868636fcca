package raster

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

// GeoTransform is a GDAL affine transform: x = gt[0] + px*gt[1] + py*gt[2],
// y = gt[3] + px*gt[4] + py*gt[5].
type GeoTransform [6]float64

var ErrNotInvertible = errors.New("invert geo transform failed")

func (gt GeoTransform) Apply(px, py float64) (float64, float64) {
	return gt[0] + px*gt[1] + py*gt[2], gt[3] + px*gt[4] + py*gt[5]
}

// Invert returns the transform mapping georeferenced coordinates back to
// pixel/line space.
func (gt GeoTransform) Invert() (GeoTransform, error) {
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if math.Abs(det) < 1e-15 {
		return GeoTransform{}, ErrNotInvertible
	}
	inv := 1 / det
	return GeoTransform{
		(gt[2]*gt[3] - gt[0]*gt[5]) * inv,
		gt[5] * inv,
		-gt[2] * inv,
		(-gt[1]*gt[3] + gt[0]*gt[4]) * inv,
		-gt[4] * inv,
		gt[1] * inv,
	}, nil
}

// Window returns the transform of a sub-window starting at pixel (xoff, yoff).
func (gt GeoTransform) Window(xoff, yoff int) GeoTransform {
	x, y := gt.Apply(float64(xoff), float64(yoff))
	out := gt
	out[0], out[3] = x, y
	return out
}

// PixelSize returns the absolute pixel width and height.
func (gt GeoTransform) PixelSize() (float64, float64) {
	return math.Hypot(gt[1], gt[4]), math.Hypot(gt[2], gt[5])
}

// Bounds is the envelope of a width x height raster.
func (gt GeoTransform) Bounds(width, height int) orb.Bound {
	b := orb.Bound{Min: orb.Point{math.Inf(1), math.Inf(1)}, Max: orb.Point{math.Inf(-1), math.Inf(-1)}}
	for _, c := range [][2]float64{{0, 0}, {float64(width), 0}, {0, float64(height)}, {float64(width), float64(height)}} {
		x, y := gt.Apply(c[0], c[1])
		b = b.Extend(orb.Point{x, y})
	}
	return b
}

// PixelBBox converts an envelope into the pixel window that covers it,
// rounding offsets to the nearest pixel. Negative offsets are clamped to
// zero and empty windows grow to one pixel.
func (gt GeoTransform) PixelBBox(env orb.Bound) (Window, error) {
	inv, err := gt.Invert()
	if err != nil {
		return Window{}, err
	}
	x0, y0 := inv.Apply(env.Min[0], env.Min[1])
	x1, y1 := inv.Apply(env.Max[0], env.Max[1])

	offMinX, offMaxX := math.Min(x0, x1), math.Max(x0, x1)
	offMinY, offMaxY := math.Min(y0, y1), math.Max(y0, y1)

	w := Window{
		X: int(offMinX + 0.5),
		Y: int(offMinY + 0.5),
		W: int(offMaxX - offMinX + 0.5),
		H: int(offMaxY - offMinY + 0.5),
	}
	if w.W == 0 {
		w.W++
	}
	if w.H == 0 {
		w.H++
	}
	if w.X < 0 {
		w.X = 0
	}
	if w.Y < 0 {
		w.Y = 0
	}
	return w, nil
}
