package cellgrid

// Reader is the read-only view both a live CellGrid and a published Snapshot
// satisfy. CopySlice and CopyPerimeter are implemented once against this
// interface so the tick-hot mutable grid and the immutable per-tick snapshot
// can't drift in how they lay out a viewport.
type Reader interface {
	Get(p Point) CellState
}

// CopySlice reads out the h x w rectangle at (x,y) from r, row-major by
// increasing y then increasing x. Row r, column c corresponds to
// Point{x+c, y+r}. Absent points read as Empty.
func CopySlice(r Reader, x, y, w, h int32) [][]CellState {
	rows := make([][]CellState, h)
	for row := int32(0); row < h; row++ {
		cells := make([]CellState, w)
		for col := int32(0); col < w; col++ {
			cells[col] = r.Get(Point{X: x + col, Y: y + row})
		}
		rows[row] = cells
	}
	return rows
}

// CopyPerimeter reads out the counter-clockwise perimeter ring of the
// viewport (x,y,w,h): down the left column (y=0..h-1), right across the
// bottom row (x=1..w-1), up the right column (y=h-2..0), left across the top
// row (x=w-2..1). Its length is 2w+2h-4 for w,h >= 2. For w<2 or h<2 the ring
// traversal isn't well-formed, so every distinct point in the (degenerate)
// rectangle is returned instead.
func CopyPerimeter(r Reader, x, y, w, h int32) []CellState {
	if w < 2 || h < 2 {
		return copyDegenerateRect(r, x, y, w, h)
	}

	out := make([]CellState, 0, 2*w+2*h-4)
	for dy := int32(0); dy < h; dy++ {
		out = append(out, r.Get(Point{X: x, Y: y + dy}))
	}
	for dx := int32(1); dx < w; dx++ {
		out = append(out, r.Get(Point{X: x + dx, Y: y + h - 1}))
	}
	for dy := h - 2; dy >= 0; dy-- {
		out = append(out, r.Get(Point{X: x + w - 1, Y: y + dy}))
	}
	for dx := w - 2; dx >= 1; dx-- {
		out = append(out, r.Get(Point{X: x + dx, Y: y}))
	}
	return out
}

func copyDegenerateRect(r Reader, x, y, w, h int32) []CellState {
	out := make([]CellState, 0, w*h)
	for dy := int32(0); dy < h; dy++ {
		for dx := int32(0); dx < w; dx++ {
			out = append(out, r.Get(Point{X: x + dx, Y: y + dy}))
		}
	}
	return out
}
