package cellgrid

// Point is a coordinate on the unbounded lattice. X increases rightward, Y
// increases downward. Point is a plain comparable struct so it can be used
// directly as a map key.
type Point struct {
	X, Y int32
}

// neighborOffsets is the king-move 8-neighborhood, in no particular order;
// callers that care about order (there are none in this package) must sort.
var neighborOffsets = [8]Point{
	{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: -1, Y: 0}, {X: 1, Y: 0},
	{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
