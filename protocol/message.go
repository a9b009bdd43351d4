// Package protocol defines the wire messages exchanged over /ws and the
// codecs that (de)serialize them. Every message carries a one-byte
// discriminant ahead of its encoded payload so a single stream can multiplex
// the handful of message shapes without a self-describing envelope per
// message -- the same "small tagged value with a stable ordinal" idiom
// CellState already uses one level down.
package protocol

import "wireworld/cellgrid"

// Kind identifies which message shape follows the discriminant byte.
type Kind uint8

const (
	KindModifyCell Kind = iota
	KindSetView
	KindStartStream
	KindFullRefresh
	KindPartialRefresh
)

// ModifyCell is sent by a client to set a single cell's state.
type ModifyCell struct {
	X, Y int32
	Cell cellgrid.CellState
}

// SetView is sent by a client to change the viewport it wants streamed.
// Per the distilled spec, receiving this always marks the session unsynced,
// forcing the next outbound message to be a FullRefresh.
type SetView struct {
	X, Y, W, H int32
}

// StartStream is sent once by a client to begin receiving world updates.
type StartStream struct{}

// FullRefresh carries a complete rectangular snapshot of a session's
// viewport, anchored at (X,Y). Tiles is row-major, Tiles[row][col]
// corresponding to Point{X+col, Y+row}.
type FullRefresh struct {
	X, Y  int32
	Tiles [][]cellgrid.CellState
}

// PartialRefresh carries only the viewport's perimeter ring, in the
// counter-clockwise traversal order CopyPerimeter defines. It is valid only
// relative to a FullRefresh the client already has; the server never sends
// one to an unsynced session.
type PartialRefresh struct {
	Tiles []cellgrid.CellState
}
