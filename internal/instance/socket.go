package instance

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/voslin/gantry/internal/paths"
)

// MessageType identifies an instance-channel message.
type MessageType string

const (
	// MsgSurface asks the owning instance to bring its window to the front.
	// Sent by a second launch attempt that lost the lock race.
	MsgSurface MessageType = "surface"

	// MsgQuit asks the owning instance to begin its shutdown sequence.
	MsgQuit MessageType = "quit"

	// MsgPing checks whether an owning instance is listening.
	MsgPing MessageType = "ping"
)

// Message is the envelope for instance-channel requests and replies.
type Message struct {
	Type MessageType `json:"type"`
	PID  int         `json:"pid,omitempty"`
	OK   bool        `json:"ok,omitempty"`
}

// DialTimeout bounds connection attempts to the owner's socket.
const DialTimeout = 2 * time.Second

// Listener receives surface/quit requests from later launch attempts.
// One-way from the perspective of the owner's UI: requests arrive, the
// registered handlers fire, and a minimal acknowledgement is written back.
type Listener struct {
	socketPath string
	onSurface  func()
	onQuit     func()

	mu sync.Mutex
	// +checklocks:mu
	listener net.Listener
	// +checklocks:mu
	started bool
	done    chan struct{}
}

// DefaultSocketPath returns the default instance socket path.
func DefaultSocketPath() string {
	return paths.SocketPath()
}

// NewListener creates a listener for the instance socket. onSurface and
// onQuit fire on the accept goroutine; they must hand off to the UI rather
// than block.
func NewListener(socketPath string, onSurface, onQuit func()) *Listener {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	return &Listener{
		socketPath: socketPath,
		onSurface:  onSurface,
		onQuit:     onQuit,
		done:       make(chan struct{}),
	}
}

// SocketPath returns the socket path this listener is bound to.
func (l *Listener) SocketPath() string {
	return l.socketPath
}

// Start begins listening on the instance socket.
func (l *Listener) Start() error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return errors.New("instance listener already started")
	}
	l.mu.Unlock()

	dir := filepath.Dir(l.socketPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}

	// Remove stale socket file if it exists
	if err := os.Remove(l.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", l.socketPath)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}

	if err := os.Chmod(l.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("set socket permissions: %w", err)
	}

	l.mu.Lock()
	l.listener = listener
	l.started = true
	l.mu.Unlock()

	slog.Info("instance listener started", "socket", l.socketPath)

	go l.acceptLoop()

	return nil
}

// Stop closes the instance socket.
func (l *Listener) Stop() {
	l.mu.Lock()
	listener := l.listener
	l.listener = nil
	l.mu.Unlock()

	if listener != nil {
		listener.Close()
		_ = os.Remove(l.socketPath)
	}
	close(l.done)
}

func (l *Listener) acceptLoop() {
	l.mu.Lock()
	listener := l.listener
	l.mu.Unlock()
	if listener == nil {
		return
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-l.done:
				return
			default:
			}
			slog.Warn("instance accept failed", "error", err)
			return
		}
		go l.handleConn(conn)
	}
}

func (l *Listener) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(DialTimeout))

	var msg Message
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		slog.Warn("instance message decode failed", "error", err)
		return
	}

	slog.Debug("instance message received", "type", msg.Type, "from_pid", msg.PID)

	switch msg.Type {
	case MsgSurface:
		if l.onSurface != nil {
			l.onSurface()
		}
	case MsgQuit:
		if l.onQuit != nil {
			l.onQuit()
		}
	case MsgPing:
		// Acknowledgement below is the whole reply.
	default:
		slog.Warn("unknown instance message", "type", msg.Type)
		return
	}

	_ = json.NewEncoder(conn).Encode(Message{Type: msg.Type, PID: os.Getpid(), OK: true})
}

// Notify sends a message to the owning instance's socket and waits for the
// acknowledgement. Used by losing launch attempts (surface) and by the stop
// command (quit).
func Notify(socketPath string, msgType MessageType) error {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}

	conn, err := net.DialTimeout("unix", socketPath, DialTimeout)
	if err != nil {
		return fmt.Errorf("dial instance socket: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(DialTimeout))

	if err := json.NewEncoder(conn).Encode(Message{Type: msgType, PID: os.Getpid()}); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}

	var reply Message
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return fmt.Errorf("read %s reply: %w", msgType, err)
	}
	if !reply.OK {
		return fmt.Errorf("%s rejected by instance", msgType)
	}
	return nil
}
