//go:build debug

package cellgrid

import "fmt"

// checkInvariants panics if the neighbor-graph bookkeeping has drifted from the
// bidirectional-map/symmetric-adjacency contract. Only compiled into debug
// builds (`go build -tags debug`); production builds pay nothing for it.
func (g *CellGrid) checkInvariants() {
	if len(g.states) != len(g.points) || len(g.states) != len(g.nbors) {
		panic("cellgrid: parallel vector length mismatch")
	}
	for i, p := range g.points {
		if id, ok := g.idOf[p]; !ok || int(id) != i {
			panic(fmt.Sprintf("cellgrid: idOf/points mismatch at id %d, point %v", i, p))
		}
		for _, j := range g.nbors[i] {
			if int(j) == i {
				panic(fmt.Sprintf("cellgrid: self-reference in nbors at id %d", i))
			}
			found := false
			for _, k := range g.nbors[j] {
				if int(k) == i {
					found = true
					break
				}
			}
			if !found {
				panic(fmt.Sprintf("cellgrid: asymmetric adjacency between %d and %d", i, j))
			}
			dx := abs32(g.points[j].X - p.X)
			dy := abs32(g.points[j].Y - p.Y)
			if dx > 1 || dy > 1 {
				panic(fmt.Sprintf("cellgrid: neighbor %v is not king-adjacent to %v", g.points[j], p))
			}
		}
	}
}
