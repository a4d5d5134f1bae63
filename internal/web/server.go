// Package web exposes display frames over HTTP: a one-shot /frame endpoint
// and a /ws websocket stream, mirroring what the IPC socket carries.
package web

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "web").Logger()

type Server struct {
	addr       string
	httpServer *http.Server
	upgrader   websocket.Upgrader

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]string

	frameMu   sync.Mutex
	lastFrame []byte
}

func NewServer(addr string) *Server {
	s := &Server{
		addr:    addr,
		clients: make(map[*websocket.Conn]string),
		upgrader: websocket.Upgrader{
			// Frames are public read-only state; any local page may read them.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/frame", s.handleFrame)
	mux.HandleFunc("/ws", s.handleWS)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

func (s *Server) Start() error {
	ln := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.addr).Msg("Web server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Web server stopped")
			ln <- err
		}
	}()
	// Give a bad address a moment to surface.
	select {
	case err := <-ln:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.frameMu.Lock()
	frame := s.lastFrame
	s.frameMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if len(frame) == 0 {
		w.Write([]byte(`{}`))
		return
	}
	w.Write(frame)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}

	clientID := uuid.NewString()

	// Replay the last frame before registering, so this write cannot race
	// with a concurrent Broadcast on the same connection.
	s.frameMu.Lock()
	frame := s.lastFrame
	s.frameMu.Unlock()
	if len(frame) > 0 {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logger.Error().Err(err).Str("client_id", clientID).Msg("Failed to send initial frame")
		}
	}

	s.clientsMu.Lock()
	s.clients[conn] = clientID
	s.clientsMu.Unlock()
	logger.Info().Str("client_id", clientID).Msg("Websocket client connected")

	// Drain the read side so pings and closes are processed.
	go func() {
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, conn)
			s.clientsMu.Unlock()
			conn.Close()
			logger.Info().Str("client_id", clientID).Msg("Websocket client disconnected")
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast pushes a frame to every websocket client and keeps it for the
// /frame endpoint and late joiners.
func (s *Server) Broadcast(frame []byte) {
	s.frameMu.Lock()
	s.lastFrame = frame
	s.frameMu.Unlock()

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn, clientID := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			logger.Error().Err(err).Str("client_id", clientID).Msg("Failed to write to websocket client, removing")
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.httpServer.Shutdown(ctx)

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for conn := range s.clients {
		conn.Close()
		delete(s.clients, conn)
	}
}
