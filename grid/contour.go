package grid

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// chain code directions, counter-clockwise on screen starting east
var chainDX = [8]int{1, 1, 0, -1, -1, -1, 0, 1}
var chainDY = [8]int{0, -1, -1, -1, 0, 1, 1, 1}

func chainDir(dx, dy int) int {
	for d := 0; d < 8; d++ {
		if chainDX[d] == dx && chainDY[d] == dy {
			return d
		}
	}
	return -1
}

// Contours traces the outer border of every 8-connected foreground component
// of mask that is not nested inside a hole of another component. Points are
// pixel indices (x = column, y = row); runs of cells in one direction are
// reduced to their end points. The one cell frame of the grid is treated as
// background.
func Contours(mask []bool, w, h int) []orb.Ring {
	if w < 3 || h < 3 {
		return nil
	}
	fg := make([]bool, len(mask))
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			fg[y*w+x] = mask[y*w+x]
		}
	}

	outside := outerBackground(fg, w, h)
	labels, n := Label(fg, w, h)
	done := make([]bool, n+1)

	var rings []orb.Ring
	for idx, l := range labels {
		if l == 0 || done[l] {
			continue
		}
		done[l] = true
		// the cell left of the first scanned cell lies in the region that
		// encloses the component
		if !outside[idx-1] {
			continue
		}
		rings = append(rings, compressChain(traceBorder(fg, w, h, idx%w, idx/w)))
	}
	return rings
}

// outerBackground flood fills background cells 4-connected to the frame.
func outerBackground(fg []bool, w, h int) []bool {
	out := make([]bool, len(fg))
	stack := make([]int, 0, 2*(w+h))
	push := func(i int) {
		if !fg[i] && !out[i] {
			out[i] = true
			stack = append(stack, i)
		}
	}
	for x := 0; x < w; x++ {
		push(x)
		push((h-1)*w + x)
	}
	for y := 0; y < h; y++ {
		push(y * w)
		push(y*w + w - 1)
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		if x > 0 {
			push(i - 1)
		}
		if x < w-1 {
			push(i + 1)
		}
		if y > 0 {
			push(i - w)
		}
		if y < h-1 {
			push(i + w)
		}
	}
	return out
}

// traceBorder follows the outer border starting at its top-left cell
// (Suzuki and Abe border following).
func traceBorder(fg []bool, w, h, x0, y0 int) []orb.Point {
	isFg := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && fg[y*w+x]
	}

	// clockwise search from the west neighbour for the last border cell
	first := -1
	for k := 0; k < 8; k++ {
		d := (4 - k + 8) % 8
		if isFg(x0+chainDX[d], y0+chainDY[d]) {
			first = d
			break
		}
	}
	if first < 0 {
		return []orb.Point{{float64(x0), float64(y0)}}
	}
	x1, y1 := x0+chainDX[first], y0+chainDY[first]

	var pts []orb.Point
	x2, y2 := x1, y1
	x3, y3 := x0, y0
	for {
		prev := chainDir(x2-x3, y2-y3)
		x4, y4 := x2, y2
		for k := 1; k <= 8; k++ {
			d := (prev + k) % 8
			if isFg(x3+chainDX[d], y3+chainDY[d]) {
				x4, y4 = x3+chainDX[d], y3+chainDY[d]
				break
			}
		}
		pts = append(pts, orb.Point{float64(x3), float64(y3)})
		if x4 == x0 && y4 == y0 && x3 == x1 && y3 == y1 {
			return pts
		}
		x2, y2 = x3, y3
		x3, y3 = x4, y4
	}
}

// compressChain drops the cells where the chain keeps its direction.
func compressChain(pts []orb.Point) orb.Ring {
	n := len(pts)
	if n < 3 {
		return orb.Ring(pts)
	}
	ring := make(orb.Ring, 0, n)
	for k := 0; k < n; k++ {
		prev, cur, next := pts[(k-1+n)%n], pts[k], pts[(k+1)%n]
		din := chainDir(int(cur[0]-prev[0]), int(cur[1]-prev[1]))
		dout := chainDir(int(next[0]-cur[0]), int(next[1]-cur[1]))
		if din != dout {
			ring = append(ring, cur)
		}
	}
	return ring
}

// ContourArea is the absolute shoelace area of an open or closed ring.
func ContourArea(r orb.Ring) float64 {
	if len(r) < 3 {
		return 0
	}
	if !r.Closed() {
		r = append(append(orb.Ring{}, r...), r[0])
	}
	return math.Abs(planar.Area(r))
}
