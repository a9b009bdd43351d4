package session

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"wireworld/broadcast"
	"wireworld/cellgrid"
	"wireworld/engine"
	"wireworld/protocol"
)

func newTestEditQueue(t *testing.T) *engine.EditQueue {
	t.Helper()
	return engine.NewEditQueue(8)
}

func laggedItem(n uint64) broadcast.Item[*cellgrid.Snapshot] {
	return broadcast.Item[*cellgrid.Snapshot]{Lagged: n}
}

func versionItem(version uint64, snap *cellgrid.Snapshot) broadcast.Item[*cellgrid.Snapshot] {
	return broadcast.Item[*cellgrid.Snapshot]{Version: version, Value: snap}
}

// These tests exercise the state-machine transitions directly against the
// unexported handlers, since Sync itself requires a live websocket. Sync is
// driven end to end in session_integration_test.go, and the wire layer is
// covered separately by the protocol package tests.

func newTestSession() *Session {
	return &Session{
		view: cellgrid.Viewport{X: 0, Y: 0, W: 30, H: 30},
	}
}

func TestSetViewMarksUnsynced(t *testing.T) {
	Convey("Given a session that is currently synced", t, func() {
		s := newTestSession()
		s.sending = true
		s.synced = true

		Convey("SetView updates the viewport and clears synced", func() {
			s.onSetView(&protocol.SetView{X: 5, Y: 5, W: 10, H: 10})

			So(s.view, ShouldResemble, cellgrid.Viewport{X: 5, Y: 5, W: 10, H: 10})
			So(s.synced, ShouldBeFalse)
		})
	})
}

func TestModifyCellEnqueuesEdit(t *testing.T) {
	Convey("Given a session with an edit queue", t, func() {
		s := newTestSession()
		edits := newTestEditQueue(t)
		s.edits = edits

		Convey("ModifyCell enqueues the point and state, producing no direct response", func() {
			s.onModifyCell(&protocol.ModifyCell{X: 3, Y: 4, Cell: cellgrid.Wire})

			got := edits.Drain()
			So(len(got), ShouldEqual, 1)
			So(got[0].Point, ShouldResemble, cellgrid.Point{X: 3, Y: 4})
			So(got[0].State, ShouldEqual, cellgrid.Wire)
		})
	})
}

func TestBusLaggedMarksUnsynced(t *testing.T) {
	Convey("Given a synced, sending session", t, func() {
		s := newTestSession()
		s.sending = true
		s.synced = true

		Convey("A Lagged bus item marks the session unsynced and sends nothing", func() {
			err := s.onBusItem(laggedItem(3))
			So(err, ShouldBeNil)
			So(s.synced, ShouldBeFalse)
		})
	})
}

func TestBusItemIgnoredWhenNotSending(t *testing.T) {
	Convey("Given a session that has not started streaming", t, func() {
		s := newTestSession()
		s.sending = false

		Convey("A new-version bus item produces no send and no panic", func() {
			err := s.onBusItem(versionItem(1, nil))
			So(err, ShouldBeNil)
		})
	})
}

func TestStreamStartTimeoutFiresWhenClientNeverStarts(t *testing.T) {
	Convey("Given a session whose client never sends StartStream", t, func() {
		s := newTestSession()
		s.streamStartGrace = 10 * time.Millisecond

		Convey("streamStartTimeout returns ErrStreamNeverStarted once the grace period elapses", func() {
			err := s.streamStartTimeout(context.Background())
			So(err, ShouldEqual, ErrStreamNeverStarted)
		})
	})
}

func TestStreamStartTimeoutIsSilentOnceStreamingStarted(t *testing.T) {
	Convey("Given a session whose client already sent StartStream", t, func() {
		s := newTestSession()
		s.streamStartGrace = 10 * time.Millisecond
		s.sending = true

		Convey("streamStartTimeout returns nil once the grace period elapses", func() {
			err := s.streamStartTimeout(context.Background())
			So(err, ShouldBeNil)
		})
	})
}

func TestPublishPumpReturnsErrBusClosedWhenBusCloses(t *testing.T) {
	Convey("Given a session subscribed to a bus", t, func() {
		s := newTestSession()
		bus := broadcast.New[*cellgrid.Snapshot](1)
		sub := bus.Subscribe()

		Convey("Closing the bus makes publishPump return ErrBusClosed", func() {
			bus.Close()

			err := s.publishPump(context.Background(), sub)
			So(err, ShouldEqual, ErrBusClosed)
		})
	})
}
