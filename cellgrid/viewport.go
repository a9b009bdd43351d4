package cellgrid

// Viewport is a rectangle in tile coordinates, covering points with
// X <= px < X+W and Y <= py < Y+H.
type Viewport struct {
	X, Y, W, H int32
}

// Contains reports whether p falls within the viewport.
func (v Viewport) Contains(p Point) bool {
	return p.X >= v.X && p.X < v.X+v.W && p.Y >= v.Y && p.Y < v.Y+v.H
}

// PerimeterLen returns the number of cells CopyPerimeter would produce for
// this viewport: 2W+2H-4 for W,H >= 2, and W*H for a degenerate rectangle.
func (v Viewport) PerimeterLen() int {
	if v.W < 2 || v.H < 2 {
		if v.W <= 0 || v.H <= 0 {
			return 0
		}
		return int(v.W * v.H)
	}
	return int(2*v.W + 2*v.H - 4)
}
