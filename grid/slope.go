package grid

import "math"

// Horn computes slope in degrees with Horn's 3x3 finite differences divided
// by 8*res. A cell yields NaN when any cell of its 3x3 neighbourhood is NaN
// or falls outside the grid.
func Horn(elev []float64, w, h int, res float64) []float64 {
	out := make([]float64, w*h)
	for i := range out {
		out[i] = math.NaN()
	}
	if w < 3 || h < 3 || res == 0 {
		return out
	}

	div := 8 * res
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			a := elev[(y-1)*w+x-1]
			b := elev[(y-1)*w+x]
			c := elev[(y-1)*w+x+1]
			d := elev[y*w+x-1]
			e := elev[y*w+x]
			f := elev[y*w+x+1]
			g := elev[(y+1)*w+x-1]
			hh := elev[(y+1)*w+x]
			i := elev[(y+1)*w+x+1]
			if math.IsNaN(a + b + c + d + e + f + g + hh + i) {
				continue
			}
			dzdx := ((c + 2*f + i) - (a + 2*d + g)) / div
			dzdy := ((a + 2*b + c) - (g + 2*hh + i)) / div
			out[y*w+x] = math.Atan(math.Hypot(dzdx, dzdy)) * 180 / math.Pi
		}
	}
	return out
}
