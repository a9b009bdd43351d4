package engine

import "wireworld/cellgrid"

// Edit is a single pending mutation to apply to the grid.
type Edit struct {
	Point cellgrid.Point
	State cellgrid.CellState
}

// EditQueue is the MPSC channel from sessions to the tick engine. It is
// bounded: it buffers up to the capacity given to NewEditQueue, and Push
// blocks while that buffer is full. Ordering between producers is
// unspecified; ordering from a single producer is FIFO by ordinary Go
// channel semantics. A dropped session's in-flight
// sends still land here, since a send that already completed is queued
// regardless of the sender's later disappearance.
type EditQueue struct {
	ch chan Edit
}

// NewEditQueue returns a queue buffered to capacity. A Go channel send still
// blocks once the buffer is full, so callers that must never block (session
// goroutines) should select against a context or ticket deadline around
// Push, or size capacity generously relative to expected edit volume.
func NewEditQueue(capacity int) *EditQueue {
	return &EditQueue{ch: make(chan Edit, capacity)}
}

// Push enqueues an edit from a session. It blocks only if the buffer is full.
func (q *EditQueue) Push(e Edit) {
	q.ch <- e
}

// Drain non-blockingly removes and returns every edit currently queued, in
// FIFO order. Called once per tick by the engine.
func (q *EditQueue) Drain() []Edit {
	var edits []Edit
	for {
		select {
		case e := <-q.ch:
			edits = append(edits, e)
		default:
			return edits
		}
	}
}
