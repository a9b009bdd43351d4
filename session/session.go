// Package session implements the per-connection state machine: a client's
// viewport, its sync status, and the translation between inbound protocol
// messages / bus events and outbound refresh frames. Each session runs as
// an errgroup of pumps (read / ping / publish) plus a stream-start timer,
// in the idiom of the teacher's fastview.client[T].Sync.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	channerics "github.com/niceyeti/channerics/channels"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wireworld/broadcast"
	"wireworld/cellgrid"
	"wireworld/engine"
	"wireworld/protocol"
	"wireworld/transport"
)

const (
	pingResolution = 200 * time.Millisecond
	pongWait       = pingResolution * 4
)

// ErrPongDeadlineExceeded is returned by the ping pump when a peer stops
// answering liveness pings.
var ErrPongDeadlineExceeded = errors.New("session: pong deadline exceeded")

// ErrStreamNeverStarted is returned when a client never sends StartStream
// within its grace period.
var ErrStreamNeverStarted = errors.New("session: client never sent StartStream")

// ErrBusClosed is returned by the publish pump when the broadcast bus shuts
// down, so the session tears down along with it.
var ErrBusClosed = errors.New("session: broadcast bus closed")

// Session is one client's connection state machine.
type Session struct {
	ID uuid.UUID

	conn  *transport.Conn
	codec protocol.Codec
	edits *engine.EditQueue
	bus   *broadcast.Bus[*cellgrid.Snapshot]
	eng   *engine.Engine

	streamStartGrace time.Duration
	logger           *zap.SugaredLogger

	view    cellgrid.Viewport
	sending bool
	synced  bool
}

// New constructs a session over an already-upgraded connection. defaultView
// seeds the session's viewport until the client sends its own SetView.
func New(
	conn *transport.Conn,
	codec protocol.Codec,
	edits *engine.EditQueue,
	bus *broadcast.Bus[*cellgrid.Snapshot],
	eng *engine.Engine,
	streamStartGrace time.Duration,
	defaultView cellgrid.Viewport,
	logger *zap.SugaredLogger,
) *Session {
	return &Session{
		ID:               uuid.New(),
		conn:             conn,
		codec:            codec,
		edits:            edits,
		bus:              bus,
		eng:              eng,
		streamStartGrace: streamStartGrace,
		logger:           logger,
		view:             defaultView,
	}
}

// Sync runs the session to completion: reading client messages, answering
// pings, and publishing refreshes, until the connection ends or ctx is
// cancelled.
func (s *Session) Sync(ctx context.Context) error {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return s.readPump(groupCtx)
	})
	group.Go(func() error {
		return s.pingPump(groupCtx)
	})
	group.Go(func() error {
		return s.publishPump(groupCtx, sub)
	})
	group.Go(func() error {
		return s.streamStartTimeout(groupCtx)
	})

	err := group.Wait()
	if s.logger != nil {
		s.logger.Infow("session ended", "session_id", s.ID, "err", err)
	}
	return err
}

// streamStartTimeout closes the session if StartStream never arrives.
func (s *Session) streamStartTimeout(ctx context.Context) error {
	timer := time.NewTimer(s.streamStartGrace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
		if !s.sending {
			return ErrStreamNeverStarted
		}
		return nil
	}
}

func (s *Session) pingPump(ctx context.Context) error {
	pong := make(chan struct{}, 1)
	s.conn.WS().SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	ticker := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := s.conn.Ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (s *Session) readPump(ctx context.Context) error {
	for {
		data, err := s.conn.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		msg, err := s.codec.Decode(data)
		if err != nil {
			// Unparseable client message: ignore silently.
			continue
		}

		if err := s.handle(msg); err != nil {
			return err
		}
	}
}

func (s *Session) handle(msg any) error {
	switch m := msg.(type) {
	case *protocol.StartStream:
		return s.onStartStream()
	case *protocol.SetView:
		s.onSetView(m)
	case *protocol.ModifyCell:
		s.onModifyCell(m)
	}
	return nil
}

func (s *Session) onStartStream() error {
	snap := s.eng.LastWorld()
	if err := s.sendFullRefresh(snap); err != nil {
		return err
	}
	s.sending = true
	s.synced = true
	return nil
}

func (s *Session) onSetView(m *protocol.SetView) {
	s.view = cellgrid.Viewport{X: m.X, Y: m.Y, W: m.W, H: m.H}
	s.synced = false
}

func (s *Session) onModifyCell(m *protocol.ModifyCell) {
	s.edits.Push(engine.Edit{
		Point: cellgrid.Point{X: m.X, Y: m.Y},
		State: m.Cell,
	})
}

func (s *Session) publishPump(ctx context.Context, sub *broadcast.Subscription[*cellgrid.Snapshot]) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case item, ok := <-sub.C():
			if !ok {
				return ErrBusClosed
			}
			if err := s.onBusItem(item); err != nil {
				return err
			}
		}
	}
}

func (s *Session) onBusItem(item broadcast.Item[*cellgrid.Snapshot]) error {
	if item.Lagged > 0 {
		s.synced = false
		return nil
	}

	if !s.sending {
		return nil
	}

	if s.synced {
		return s.sendPartialRefresh(item.Value)
	}
	return s.sendFullRefreshAndMarkSynced(item.Value)
}

func (s *Session) sendFullRefreshAndMarkSynced(snap *cellgrid.Snapshot) error {
	if err := s.sendFullRefresh(snap); err != nil {
		return err
	}
	s.synced = true
	return nil
}

func (s *Session) sendFullRefresh(snap *cellgrid.Snapshot) error {
	tiles := snap.CopySlice(s.view.X, s.view.Y, s.view.W, s.view.H)
	data, err := s.codec.Encode(&protocol.FullRefresh{X: s.view.X, Y: s.view.Y, Tiles: tiles})
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(context.Background(), data)
}

func (s *Session) sendPartialRefresh(snap *cellgrid.Snapshot) error {
	ring := snap.CopyPerimeter(s.view.X, s.view.Y, s.view.W, s.view.H)
	data, err := s.codec.Encode(&protocol.PartialRefresh{Tiles: ring})
	if err != nil {
		return err
	}
	return s.conn.WriteMessage(context.Background(), data)
}
