//go:build !debug

package cellgrid

func (g *CellGrid) checkInvariants() {}
