// Package httpapi implements the loopback-only HTTP command mirror
// (SPEC_FULL.md §12.1/§12.2): the same six dispatcher operations
// reachable over HTTP instead of a `pin://` URL activation, plus a
// websocket stream that pushes AgentStatus on every change. It never
// binds beyond 127.0.0.1 — this is a local convenience surface, not a
// network API.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/southflowpeak/pin/internal/capture"
	"github.com/southflowpeak/pin/internal/debugframe"
	"github.com/southflowpeak/pin/internal/dispatch"
	"github.com/southflowpeak/pin/internal/model"
	"github.com/southflowpeak/pin/internal/pinlog"
)

var log = pinlog.Component("httpapi")

// StatusSource is polled at statusPushInterval to detect changes to
// push to websocket subscribers; the state machine itself has no
// built-in pub/sub, so this polls rather than subscribes, matching
// the geometry/liveness poll style used elsewhere in this module.
type StatusSource interface {
	Status() model.AgentStatus
}

// FrameSource exposes the active capture session's most recent frame
// to the /debug-frame endpoint (SPEC_FULL.md §12.5).
type FrameSource interface {
	LastFrame() (capture.RawFrame, bool)
}

const statusPushInterval = 250 * time.Millisecond

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the C6 dispatcher's HTTP front end.
type Server struct {
	dispatcher *dispatch.Dispatcher
	status     StatusSource
	frames     FrameSource
	httpServer *http.Server

	subMu sync.Mutex
	subs  map[*websocket.Conn]struct{}

	stopStatusLoop chan struct{}
}

// New builds a Server bound to addr (spec.md's HTTP addr default is
// 127.0.0.1:47710; see internal/config). status and frames are
// typically the same *agent.Agent value, split into two interfaces so
// tests can supply narrower fakes.
func New(addr string, d *dispatch.Dispatcher, status StatusSource, frames FrameSource) *Server {
	s := &Server{
		dispatcher: d,
		status:     status,
		frames:     frames,
		subs:       make(map[*websocket.Conn]struct{}),
	}

	router := mux.NewRouter()
	router.HandleFunc("/pin", s.handleCommand("pin")).Methods(http.MethodPost)
	router.HandleFunc("/pin-window", s.handleCommand("pin-window")).Methods(http.MethodPost)
	router.HandleFunc("/list-windows", s.handleCommand("list-windows")).Methods(http.MethodGet)
	router.HandleFunc("/unpin", s.handleCommand("unpin")).Methods(http.MethodPost)
	router.HandleFunc("/panic", s.handleCommand("panic")).Methods(http.MethodPost)
	router.HandleFunc("/status", s.handleCommand("status")).Methods(http.MethodGet)
	router.HandleFunc("/status/stream", s.handleStatusStream)
	router.HandleFunc("/debug-frame", s.handleDebugFrame).Methods(http.MethodGet)

	s.httpServer = &http.Server{Addr: addr, Handler: router}
	return s
}

// ListenAndServe blocks serving on 127.0.0.1 only, regardless of what
// addr's host portion says, so a misconfigured addr never exposes the
// command surface beyond loopback.
func (s *Server) ListenAndServe() error {
	host, port, err := net.SplitHostPort(s.httpServer.Addr)
	if err != nil {
		return err
	}
	if host != "127.0.0.1" && host != "localhost" {
		log.Warn().Str("configured_host", host).Msg("httpapi: forcing loopback bind regardless of configured host")
		host = "127.0.0.1"
	}
	s.httpServer.Addr = net.JoinHostPort(host, port)

	s.stopStatusLoop = make(chan struct{})
	go s.statusPushLoop()

	log.Info().Str("addr", s.httpServer.Addr).Msg("httpapi listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server and status push loop.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopStatusLoop != nil {
		close(s.stopStatusLoop)
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleCommand(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		args := make(map[string]string, len(r.URL.Query()))
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				args[k] = v[0]
			}
		}
		resp := s.dispatcher.Handle(dispatch.Command{Name: name, Args: args})

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error().Err(err).Msg("httpapi: failed to encode response")
		}
	}
}

func (s *Server) handleDebugFrame(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.frames.LastFrame()
	if !ok {
		http.Error(w, "no frame available", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "image/bmp")
	if err := debugframe.EncodeBMP(w, frame); err != nil {
		log.Error().Err(err).Msg("httpapi: failed to encode debug frame")
	}
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("httpapi: websocket upgrade failed")
		return
	}

	s.subMu.Lock()
	s.subs[conn] = struct{}{}
	s.subMu.Unlock()

	// Send the current status immediately so a subscriber does not
	// wait a full poll interval for its first frame.
	_ = conn.WriteJSON(s.status.Status())

	go s.drainClient(conn)
}

// drainClient reads (and discards) client frames only to detect
// disconnects; the stream is push-only.
func (s *Server) drainClient(conn *websocket.Conn) {
	defer func() {
		s.subMu.Lock()
		delete(s.subs, conn)
		s.subMu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) statusPushLoop() {
	ticker := time.NewTicker(statusPushInterval)
	defer ticker.Stop()

	var last model.AgentStatus
	first := true
	for {
		select {
		case <-s.stopStatusLoop:
			return
		case <-ticker.C:
			current := s.status.Status()
			if !first && current == last {
				continue
			}
			first = false
			last = current
			s.broadcast(current)
		}
	}
}

func (s *Server) broadcast(status model.AgentStatus) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for conn := range s.subs {
		if err := conn.WriteJSON(status); err != nil {
			conn.Close()
			delete(s.subs, conn)
		}
	}
}
