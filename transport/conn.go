// Package transport wraps a gorilla/websocket connection with the
// serialized-read/write discipline the protocol requires (gorilla permits
// at most one concurrent reader and one concurrent writer), adapted from
// the teacher's fastview.websock.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readDeadline     = time.Second
	writeDeadline    = time.Second
	closeGracePeriod = 10 * time.Second
	// Maximum message size accepted from a peer.
	MaxMessageSize = 8192
)

// ErrCongested indicates there were already too many waiters on the
// connection for a given read or write.
var ErrCongested = errors.New("transport: operation failed due to congestion")

// Conn serializes reads and writes to a websocket.Conn, whose underlying
// requirement is that there be at most one concurrent reader and one
// concurrent writer.
type Conn struct {
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

// New wraps an already-upgraded websocket connection.
func New(ws *websocket.Conn) *Conn {
	ws.SetReadLimit(MaxMessageSize)
	return &Conn{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// WS returns the underlying websocket connection. Intended for
// non-concurrent setup, e.g. installing a pong handler before Sync starts.
func (c *Conn) WS() *websocket.Conn {
	return c.ws
}

// ReadMessage serializes a single binary read. It blocks until either the
// read completes, ctx is done, or the connection is too congested.
func (c *Conn) ReadMessage(ctx context.Context) ([]byte, error) {
	var data []byte
	err := c.withSem(ctx, c.readSem, readDeadline, func() error {
		stop := context.AfterFunc(ctx, func() { _ = c.ws.SetReadDeadline(time.Now()) })
		defer stop()
		_, msg, err := c.ws.ReadMessage()
		data = msg
		return err
	})
	return data, err
}

// WriteMessage serializes a single binary write.
func (c *Conn) WriteMessage(ctx context.Context, data []byte) error {
	return c.withSem(ctx, c.writeSem, writeDeadline, func() error {
		if err := c.ws.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
			return err
		}
		return c.ws.WriteMessage(websocket.BinaryMessage, data)
	})
}

// Ping writes a control ping frame.
func (c *Conn) Ping(ctx context.Context) error {
	return c.withSem(ctx, c.writeSem, writeDeadline, func() error {
		return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline))
	})
}

func (c *Conn) withSem(
	ctx context.Context,
	sem chan struct{},
	deadline time.Duration,
	fn func() error,
) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case sem <- struct{}{}:
		defer func() { <-sem }()
		return fn()
	case <-time.After(deadline):
		return ErrCongested
	}
}

// Close sends a close frame and tears down the connection after a grace
// period for in-flight peer writes to finish.
func (c *Conn) Close() {
	c.readSem <- struct{}{}
	c.writeSem <- struct{}{}

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
	_ = c.ws.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	_ = c.ws.Close()
}

// IsUnexpectedClose reports whether err represents an abnormal close that
// should be logged, as opposed to a normal shutdown.
func IsUnexpectedClose(err error) bool {
	return err != nil && websocket.IsUnexpectedCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway)
}
