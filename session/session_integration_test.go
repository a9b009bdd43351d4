package session

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"wireworld/broadcast"
	"wireworld/cellgrid"
	"wireworld/engine"
	"wireworld/protocol"
	"wireworld/transport"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	testDefaultViewW = 30
	testDefaultViewH = 30
)

var testDefaultView = cellgrid.Viewport{X: 0, Y: 0, W: testDefaultViewW, H: testDefaultViewH}

// dialSession spins up a single-connection websocket server backed by a
// freshly built Session, and returns a client-side websocket.Conn wired to
// it plus the shared bus/edits/engine for the test to manipulate.
func dialSession(t *testing.T, grace time.Duration) (
	client *websocket.Conn,
	bus *broadcast.Bus[*cellgrid.Snapshot],
	edits *engine.EditQueue,
	eng *engine.Engine,
) {
	t.Helper()

	grid := cellgrid.New()
	grid.Set(cellgrid.Point{X: 1, Y: 0}, cellgrid.Alive)
	grid.Set(cellgrid.Point{X: 0, Y: 1}, cellgrid.Dead)
	grid.Set(cellgrid.Point{X: 1, Y: 2}, cellgrid.Wire)
	grid.Set(cellgrid.Point{X: 2, Y: 1}, cellgrid.Wire)

	edits = engine.NewEditQueue(8)
	bus = broadcast.New[*cellgrid.Snapshot](4)
	eng = engine.New(grid, edits, bus, time.Hour, nil)
	codec := protocol.NewMsgpackCodec()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conn := transport.New(ws)
		s := New(conn, codec, edits, bus, eng, grace, testDefaultView, nil)
		s.Sync(r.Context())
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return client, bus, edits, eng
}

func sendMsg(t *testing.T, conn *websocket.Conn, codec protocol.Codec, msg any) {
	t.Helper()
	data, err := codec.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recvMsg(t *testing.T, conn *websocket.Conn, codec protocol.Codec) any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	msg, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestStartStreamSendsFullRefresh(t *testing.T) {
	Convey("Given a freshly dialed session", t, func() {
		client, _, _, _ := dialSession(t, time.Minute)
		codec := protocol.NewMsgpackCodec()

		Convey("StartStream produces an immediate full refresh of the default viewport", func() {
			sendMsg(t, client, codec, &protocol.StartStream{})

			reply := recvMsg(t, client, codec)
			full, ok := reply.(*protocol.FullRefresh)
			So(ok, ShouldBeTrue)
			So(full.X, ShouldEqual, 0)
			So(full.Y, ShouldEqual, 0)
			So(len(full.Tiles), ShouldEqual, testDefaultViewH)
			So(len(full.Tiles[0]), ShouldEqual, testDefaultViewW)
		})
	})
}

func TestPerimeterDeltaOnNextVersion(t *testing.T) {
	Convey("Given a session that has already synced once", t, func() {
		client, bus, _, eng := dialSession(t, time.Minute)
		codec := protocol.NewMsgpackCodec()

		sendMsg(t, client, codec, &protocol.StartStream{})
		_ = recvMsg(t, client, codec) // initial full refresh

		Convey("The next published version arrives as a perimeter-only partial refresh", func() {
			bus.Publish(1, eng.LastWorld())

			reply := recvMsg(t, client, codec)
			partial, ok := reply.(*protocol.PartialRefresh)
			So(ok, ShouldBeTrue)
			So(len(partial.Tiles), ShouldEqual, cellgrid.Viewport{W: testDefaultViewW, H: testDefaultViewH}.PerimeterLen())
		})
	})
}

func TestViewChangeForcesFullResync(t *testing.T) {
	Convey("Given a session that has already synced once", t, func() {
		client, bus, _, eng := dialSession(t, time.Minute)
		codec := protocol.NewMsgpackCodec()

		sendMsg(t, client, codec, &protocol.StartStream{})
		_ = recvMsg(t, client, codec) // initial full refresh

		Convey("Changing the viewport forces the next delivery to be a full refresh of the new viewport", func() {
			sendMsg(t, client, codec, &protocol.SetView{X: 5, Y: 5, W: 8, H: 6})
			bus.Publish(1, eng.LastWorld())

			reply := recvMsg(t, client, codec)
			full, ok := reply.(*protocol.FullRefresh)
			So(ok, ShouldBeTrue)
			So(full.X, ShouldEqual, 5)
			So(full.Y, ShouldEqual, 5)
			So(len(full.Tiles), ShouldEqual, 6)
			So(len(full.Tiles[0]), ShouldEqual, 8)
		})
	})
}

func TestModifyCellRoundTripsThroughEditQueue(t *testing.T) {
	Convey("Given a dialed session", t, func() {
		client, _, edits, _ := dialSession(t, time.Minute)
		codec := protocol.NewMsgpackCodec()

		Convey("A ModifyCell message lands on the shared edit queue", func() {
			sendMsg(t, client, codec, &protocol.ModifyCell{X: 9, Y: 9, Cell: cellgrid.Wire})

			var got []engine.Edit
			for i := 0; i < 50 && len(got) == 0; i++ {
				got = edits.Drain()
				if len(got) == 0 {
					time.Sleep(10 * time.Millisecond)
				}
			}
			So(len(got), ShouldEqual, 1)
			So(got[0].Point, ShouldResemble, cellgrid.Point{X: 9, Y: 9})
			So(got[0].State, ShouldEqual, cellgrid.Wire)
		})
	})
}

func TestStreamNeverStartedClosesSession(t *testing.T) {
	const grace = 30 * time.Millisecond

	Convey("Given a session whose client never sends StartStream", t, func() {
		start := time.Now()
		client, _, _, _ := dialSession(t, grace)

		Convey("The server closes the connection within a bound derived from the grace period", func() {
			// The deadline is well past grace so a correctly-timed close always
			// beats it; only a genuinely hung session would trip it.
			client.SetReadDeadline(time.Now().Add(20 * grace))
			_, _, err := client.ReadMessage()
			elapsed := time.Since(start)

			So(err, ShouldNotBeNil)
			if netErr, ok := err.(net.Error); ok {
				// A timeout here means our own deadline fired, not the server
				// closing -- i.e. the grace timeout never triggered at all.
				So(netErr.Timeout(), ShouldBeFalse)
			}
			So(elapsed, ShouldBeGreaterThanOrEqualTo, grace)
			So(elapsed, ShouldBeLessThan, 10*grace)
		})
	})
}
