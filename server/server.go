// Package server wires the HTTP surface: the /ws upgrade endpoint that
// spawns a session per connection, static asset serving, and a /healthz
// diagnostic endpoint. Replaces the teacher's single-client, single-view
// server.go with one that serves an unbounded number of concurrent
// sessions fanned out from the broadcast bus.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"wireworld/broadcast"
	"wireworld/cellgrid"
	"wireworld/engine"
	"wireworld/protocol"
	"wireworld/session"
	"wireworld/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server serves /ws, static assets, and /healthz for the simulation engine.
type Server struct {
	addr             string
	staticDir        string
	defaultCodec     string
	streamStartGrace time.Duration
	defaultViewport  cellgrid.Viewport

	edits  *engine.EditQueue
	bus    *broadcast.Bus[*cellgrid.Snapshot]
	engine *engine.Engine
	logger *zap.SugaredLogger

	mux *http.ServeMux
}

// Config holds the subset of startup configuration the HTTP surface needs.
type Config struct {
	Addr             string
	StaticDir        string
	Codec            string
	StreamStartGrace time.Duration
	DefaultViewportW int32
	DefaultViewportH int32
}

// New builds a Server around an already-constructed engine and bus.
func New(
	cfg Config,
	edits *engine.EditQueue,
	bus *broadcast.Bus[*cellgrid.Snapshot],
	eng *engine.Engine,
	logger *zap.SugaredLogger,
) *Server {
	s := &Server{
		addr:             cfg.Addr,
		staticDir:        cfg.StaticDir,
		defaultCodec:     cfg.Codec,
		streamStartGrace: cfg.StreamStartGrace,
		defaultViewport:  cellgrid.Viewport{X: 0, Y: 0, W: cfg.DefaultViewportW, H: cfg.DefaultViewportH},
		edits:            edits,
		bus:              bus,
		engine:           eng,
		logger:           logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWebsocket)
	mux.HandleFunc("/healthz", s.serveHealthz)
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	} else {
		mux.HandleFunc("/", notFound)
	}
	s.mux = mux

	return s
}

// Serve blocks, listening on cfg.Addr until ctx is cancelled or an
// unrecoverable error occurs.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.addr,
		Handler: s.mux,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if s.logger != nil {
			s.logger.Warnw("websocket upgrade failed", "err", err)
		}
		return
	}

	conn := transport.New(ws)
	codec := protocol.ForName(s.codecForRequest(r))
	sess := session.New(conn, codec, s.edits, s.bus, s.engine, s.streamStartGrace, s.defaultViewport, s.logger)

	if err := sess.Sync(r.Context()); err != nil && s.logger != nil {
		s.logger.Infow("session closed", "session_id", sess.ID, "err", err)
	}
	conn.Close()
}

func (s *Server) codecForRequest(r *http.Request) string {
	if c := r.URL.Query().Get("codec"); c != "" {
		return c
	}
	return s.defaultCodec
}

type healthzResponse struct {
	Version   uint64         `json:"version"`
	LiveCells int            `json:"live_cells"`
	Bounds    *healthzBounds `json:"bounds,omitempty"`
}

type healthzBounds struct {
	Min cellgrid.Point `json:"min"`
	Max cellgrid.Point `json:"max"`
}

func (s *Server) serveHealthz(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.LastWorld()

	resp := healthzResponse{
		Version:   snap.Version,
		LiveCells: snap.Len(),
	}
	if min, max, ok := snap.Bounds(); ok {
		resp.Bounds = &healthzBounds{Min: min, Max: max}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "not found", http.StatusNotFound)
}
