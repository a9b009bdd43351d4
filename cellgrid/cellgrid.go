// Package cellgrid implements the sparse, incrementally-maintained Wireworld
// automaton state: a map from Point to NonEmptyCellState, plus a parallel
// index-based neighbor adjacency graph that makes Step linear in the number of
// stored cells rather than the size of some bounding box.
//
// The representation is a dense-vector arena with swap-remove compaction:
//
//	states[i]  NonEmptyCellState for internal id i
//	points[i]  the Point that id i currently denotes
//	nbors[i]   ids of i's currently-stored king-neighbors
//	idOf[p]    the id currently denoting Point p
//
// Removing a cell swaps the last element into the freed slot and rewrites the
// bidirectional maps for whatever moved, rather than leaving a hole. This
// keeps iteration and Step dense, at the cost of O(degree^2) bookkeeping per
// removal. A CellGrid is not safe for concurrent use; the system's ownership
// discipline gives exactly one goroutine (the tick engine) write access.
package cellgrid

var _ Reader = (*CellGrid)(nil)

// CellGrid is a sparse Wireworld board. The zero value is not usable; use New.
type CellGrid struct {
	states []CellState
	points []Point
	nbors  [][]int32
	idOf   map[Point]int32

	haveBounds             bool
	minX, minY, maxX, maxY int32
}

// New returns an empty CellGrid.
func New() *CellGrid {
	return &CellGrid{
		idOf: make(map[Point]int32),
	}
}

// Len returns the number of non-empty cells currently stored.
func (g *CellGrid) Len() int {
	return len(g.states)
}

// Get returns the state at p, or Empty if p has no entry.
func (g *CellGrid) Get(p Point) CellState {
	id, ok := g.idOf[p]
	if !ok {
		return Empty
	}
	return g.states[id]
}

// Set stores s at p. Setting Empty removes any existing entry. Setting a
// non-empty state inserts a new cell (wiring up its neighbor adjacency) or
// overwrites the state of an existing one (adjacency is unaffected, since the
// point didn't move).
func (g *CellGrid) Set(p Point, s CellState) {
	id, exists := g.idOf[p]
	switch {
	case s == Empty && exists:
		g.remove(id)
	case s == Empty:
		// removing an already-absent point is a no-op
	case exists:
		g.states[id] = s
	default:
		g.insert(p, s)
	}
	g.checkInvariants()
}

func (g *CellGrid) insert(p Point, s CellState) {
	id := int32(len(g.states))
	g.states = append(g.states, s)
	g.points = append(g.points, p)
	g.nbors = append(g.nbors, nil)
	g.idOf[p] = id

	for _, off := range neighborOffsets {
		np := Point{X: p.X + off.X, Y: p.Y + off.Y}
		if jid, ok := g.idOf[np]; ok {
			g.nbors[id] = append(g.nbors[id], jid)
			g.nbors[jid] = append(g.nbors[jid], id)
		}
	}

	g.extendBounds(p)
}

func (g *CellGrid) remove(id int32) {
	p := g.points[id]

	for _, j := range g.nbors[id] {
		g.nbors[j] = removeID(g.nbors[j], id)
	}

	last := int32(len(g.states) - 1)
	if id != last {
		g.states[id] = g.states[last]
		g.points[id] = g.points[last]
		g.nbors[id] = g.nbors[last]
		g.idOf[g.points[id]] = id

		for _, j := range g.nbors[id] {
			g.nbors[j] = replaceID(g.nbors[j], last, id)
		}
	}

	g.states = g.states[:last]
	g.points = g.points[:last]
	g.nbors = g.nbors[:last]
	delete(g.idOf, p)

	g.shrinkBoundsIfExtremum(p)
}

func removeID(ids []int32, target int32) []int32 {
	for i, v := range ids {
		if v == target {
			last := len(ids) - 1
			ids[i] = ids[last]
			return ids[:last]
		}
	}
	return ids
}

func replaceID(ids []int32, from, to int32) []int32 {
	for i, v := range ids {
		if v == from {
			ids[i] = to
		}
	}
	return ids
}

// Step advances the grid by one Wireworld tick, evaluated entirely from the
// prior-tick state: Alive->Dead, Dead->Wire, Wire->Alive iff it saw 1 or 2
// Alive king-neighbors in the prior state (else stays Wire). Step never
// inserts or removes cells; growth into previously-empty points requires an
// explicit Set.
func (g *CellGrid) Step() {
	aliveNeighbors := make([]uint8, len(g.states))
	for i, s := range g.states {
		if s != Alive {
			continue
		}
		for _, j := range g.nbors[i] {
			aliveNeighbors[j]++
		}
	}

	next := make([]CellState, len(g.states))
	for i, s := range g.states {
		switch s {
		case Alive:
			next[i] = Dead
		case Dead:
			next[i] = Wire
		case Wire:
			if n := aliveNeighbors[i]; n == 1 || n == 2 {
				next[i] = Alive
			} else {
				next[i] = Wire
			}
		}
	}
	g.states = next
	g.checkInvariants()
}

// CopySlice reads out the h x w rectangle at (x,y), row-major by increasing y
// then increasing x. Row r, column c corresponds to Point{x+c, y+r}. Absent
// points read as Empty.
func (g *CellGrid) CopySlice(x, y, w, h int32) [][]CellState {
	return CopySlice(g, x, y, w, h)
}

// CopyPerimeter reads out the counter-clockwise perimeter ring of the
// viewport (x,y,w,h). See the package-level CopyPerimeter for the exact
// traversal order.
func (g *CellGrid) CopyPerimeter(x, y, w, h int32) []CellState {
	return CopyPerimeter(g, x, y, w, h)
}

// Bounds returns the minimal axis-aligned box containing every stored cell.
// Both min and max are inclusive: max is the largest stored coordinate
// itself, not max+1. ok is false for an empty grid.
func (g *CellGrid) Bounds() (min, max Point, ok bool) {
	if !g.haveBounds {
		return Point{}, Point{}, false
	}
	return Point{X: g.minX, Y: g.minY}, Point{X: g.maxX, Y: g.maxY}, true
}

func (g *CellGrid) extendBounds(p Point) {
	if !g.haveBounds {
		g.minX, g.maxX, g.minY, g.maxY = p.X, p.X, p.Y, p.Y
		g.haveBounds = true
		return
	}
	if p.X < g.minX {
		g.minX = p.X
	}
	if p.X > g.maxX {
		g.maxX = p.X
	}
	if p.Y < g.minY {
		g.minY = p.Y
	}
	if p.Y > g.maxY {
		g.maxY = p.Y
	}
}

// shrinkBoundsIfExtremum recomputes the bounding box from scratch, but only
// when the just-removed point was itself on the boundary -- the common case
// of removing an interior cell leaves the box untouched.
func (g *CellGrid) shrinkBoundsIfExtremum(removed Point) {
	if len(g.states) == 0 {
		g.haveBounds = false
		return
	}
	if removed.X != g.minX && removed.X != g.maxX && removed.Y != g.minY && removed.Y != g.maxY {
		return
	}
	g.minX, g.maxX = g.points[0].X, g.points[0].X
	g.minY, g.maxY = g.points[0].Y, g.points[0].Y
	for _, p := range g.points[1:] {
		if p.X < g.minX {
			g.minX = p.X
		}
		if p.X > g.maxX {
			g.maxX = p.X
		}
		if p.Y < g.minY {
			g.minY = p.Y
		}
		if p.Y > g.maxY {
			g.maxY = p.Y
		}
	}
}
