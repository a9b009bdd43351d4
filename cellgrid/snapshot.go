package cellgrid

// Snapshot is an immutable, shared-ownership copy of a CellGrid taken at
// publish time. The tick engine builds one per tick and never mutates it
// again; sessions read it without any synchronization beyond whatever
// atomic pointer hands it to them (see package engine). Copying the dense
// vectors up front, rather than snapshotting with a generation counter, is
// what lets Get/CopySlice/CopyPerimeter be called concurrently by every
// subscriber without touching the live grid at all.
type Snapshot struct {
	Version uint64

	states []CellState
	points []Point
	idOf   map[Point]int32

	haveBounds             bool
	minX, minY, maxX, maxY int32
}

var _ Reader = (*Snapshot)(nil)

// Snapshot copies the grid's current state into an immutable Snapshot
// tagged with the given version.
func (g *CellGrid) Snapshot(version uint64) *Snapshot {
	states := make([]CellState, len(g.states))
	copy(states, g.states)
	points := make([]Point, len(g.points))
	copy(points, g.points)
	idOf := make(map[Point]int32, len(g.idOf))
	for p, id := range g.idOf {
		idOf[p] = id
	}

	return &Snapshot{
		Version:    version,
		states:     states,
		points:     points,
		idOf:       idOf,
		haveBounds: g.haveBounds,
		minX:       g.minX,
		minY:       g.minY,
		maxX:       g.maxX,
		maxY:       g.maxY,
	}
}

// Get returns the state at p, or Empty if p has no entry in this snapshot.
func (s *Snapshot) Get(p Point) CellState {
	id, ok := s.idOf[p]
	if !ok {
		return Empty
	}
	return s.states[id]
}

// CopySlice reads out the h x w rectangle at (x,y) from this snapshot.
func (s *Snapshot) CopySlice(x, y, w, h int32) [][]CellState {
	return CopySlice(s, x, y, w, h)
}

// CopyPerimeter reads out the counter-clockwise perimeter ring of the
// viewport (x,y,w,h) from this snapshot.
func (s *Snapshot) CopyPerimeter(x, y, w, h int32) []CellState {
	return CopyPerimeter(s, x, y, w, h)
}

// Bounds returns the minimal box containing every non-empty cell in this
// snapshot. ok is false for an empty snapshot.
func (s *Snapshot) Bounds() (min, max Point, ok bool) {
	if !s.haveBounds {
		return Point{}, Point{}, false
	}
	return Point{X: s.minX, Y: s.minY}, Point{X: s.maxX, Y: s.maxY}, true
}

// Len returns the number of non-empty cells in this snapshot.
func (s *Snapshot) Len() int {
	return len(s.states)
}
