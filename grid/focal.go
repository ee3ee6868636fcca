package grid

// FocalSum counts the true cells of mask inside a size x size window around
// every cell. Cells outside the grid count as zero. For even sizes the window
// runs from size/2 cells before the centre to size-1-size/2 cells after it.
func FocalSum(mask []bool, w, h, size int) []float64 {
	out := make([]float64, w*h)
	if size <= 0 || w == 0 || h == 0 {
		return out
	}

	// summed area table with a zero row and column in front
	sw := w + 1
	sat := make([]int, sw*(h+1))
	for y := 0; y < h; y++ {
		rowSum := 0
		for x := 0; x < w; x++ {
			if mask[y*w+x] {
				rowSum++
			}
			sat[(y+1)*sw+x+1] = sat[y*sw+x+1] + rowSum
		}
	}

	before := size / 2
	after := size - 1 - before
	for y := 0; y < h; y++ {
		y0 := clamp(y-before, 0, h)
		y1 := clamp(y+after+1, 0, h)
		for x := 0; x < w; x++ {
			x0 := clamp(x-before, 0, w)
			x1 := clamp(x+after+1, 0, w)
			s := sat[y1*sw+x1] - sat[y0*sw+x1] - sat[y1*sw+x0] + sat[y0*sw+x0]
			out[y*w+x] = float64(s)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
