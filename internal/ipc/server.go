// Package ipc pushes display frames to local clients over a unix socket,
// one JSON frame per line. New clients immediately receive the last frame
// so they never start blank.
package ipc

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Server struct {
	socketPath   string
	listener     net.Listener
	clients      map[net.Conn]string
	clientsLock  sync.Mutex
	lastFrame    []byte
	frameLock    sync.Mutex
	lockFile     *os.File
	lockFilePath string
}

func NewServer(socketPath string) *Server {
	return &Server{
		socketPath:   socketPath,
		clients:      make(map[net.Conn]string),
		lockFilePath: socketPath + ".lock",
	}
}

// checkAndCleanOldLock removes a stale lock file left by a dead process.
func (s *Server) checkAndCleanOldLock() {
	content, err := os.ReadFile(s.lockFilePath)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		log.Warn().Msg("Invalid PID in lock file, removing it")
		os.Remove(s.lockFilePath)
		return
	}

	// kill(pid, 0) probes for existence without signalling.
	if syscall.Kill(pid, 0) != nil {
		log.Info().Int("old_pid", pid).Msg("Lock holder is gone, removing lock file")
		os.Remove(s.lockFilePath)
		return
	}
	log.Info().Int("existing_pid", pid).Msg("Another instance still holds the lock")
}

func (s *Server) acquireLock() error {
	s.checkAndCleanOldLock()

	file, err := os.OpenFile(s.lockFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if err == syscall.EWOULDBLOCK {
			return fmt.Errorf("another lyricd instance is already running")
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if _, err := file.WriteString(fmt.Sprintf("%d\n", os.Getpid())); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}

	s.lockFile = file
	log.Info().Str("lock_file", s.lockFilePath).Int("pid", os.Getpid()).Msg("Acquired process lock")
	return nil
}

func (s *Server) releaseLock() {
	if s.lockFile != nil {
		syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
		s.lockFile.Close()
		os.Remove(s.lockFilePath)
		s.lockFile = nil
	}
}

func (s *Server) Start() error {
	if err := s.acquireLock(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		s.releaseLock()
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.releaseLock()
		return err
	}
	s.listener = listener

	log.Info().Str("socket_path", s.socketPath).Msg("IPC server listening")
	go s.acceptConnections()
	return nil
}

func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if strings.Contains(err.Error(), "use of closed network connection") {
				return
			}
			log.Error().Err(err).Msg("Failed to accept IPC connection")
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	clientID := uuid.NewString()

	s.clientsLock.Lock()
	s.clients[conn] = clientID
	s.clientsLock.Unlock()

	log.Info().Str("client_id", clientID).Msg("IPC client connected")

	s.frameLock.Lock()
	frame := s.lastFrame
	s.frameLock.Unlock()
	if len(frame) > 0 {
		if _, err := conn.Write(append(frame, '\n')); err != nil {
			log.Error().Err(err).Str("client_id", clientID).Msg("Failed to send initial frame")
		}
	}

	// Block until the client hangs up; clients never send anything.
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			break
		}
	}

	s.clientsLock.Lock()
	delete(s.clients, conn)
	s.clientsLock.Unlock()
	conn.Close()
	log.Info().Str("client_id", clientID).Msg("IPC client disconnected")
}

// Broadcast sends one frame to every connected client and keeps it for
// late joiners.
func (s *Server) Broadcast(frame []byte) {
	s.frameLock.Lock()
	s.lastFrame = frame
	s.frameLock.Unlock()

	payload := append(append([]byte{}, frame...), '\n')

	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()
	for conn, clientID := range s.clients {
		if _, err := conn.Write(payload); err != nil {
			log.Error().Err(err).Str("client_id", clientID).Msg("Failed to write to client, removing")
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.releaseLock()
}
