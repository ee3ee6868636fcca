package grid

var neighbours8 = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Label assigns 8-connected components of mask the labels 1..n in the order
// they are first met in a row-major scan. Background cells are 0.
func Label(mask []bool, w, h int) ([]int32, int) {
	labels := make([]int32, w*h)
	var n int32
	stack := make([]int, 0, 64)

	for start := range mask {
		if !mask[start] || labels[start] != 0 {
			continue
		}
		n++
		labels[start] = n
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%w, idx/w
			for _, d := range neighbours8 {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				if mask[ni] && labels[ni] == 0 {
					labels[ni] = n
					stack = append(stack, ni)
				}
			}
		}
	}
	return labels, int(n)
}
