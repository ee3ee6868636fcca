package grid

// Sobel returns the mixed second derivative d²I/dxdy of a 3x3 Sobel
// operator, [[1,0,-1],[0,0,0],[-1,0,1]] applied as a correlation. Borders
// are reflected without repeating the edge cell (reflect-101).
func Sobel(img []float64, w, h int) []float64 {
	out := make([]float64, w*h)
	if w == 0 || h == 0 {
		return out
	}
	at := func(x, y int) float64 {
		return img[reflect101(y, h)*w+reflect101(x, w)]
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = at(x-1, y-1) - at(x+1, y-1) - at(x-1, y+1) + at(x+1, y+1)
		}
	}
	return out
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
