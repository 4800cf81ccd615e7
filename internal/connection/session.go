package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcphub/mcphub/internal/common"
	"github.com/mcphub/mcphub/internal/config"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
	StateClosed       State = "closed"
)

// Event names forwarded by a Session to its subscribers.
const (
	EventConnecting   = "connecting"
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventReconnecting = "reconnecting"
	EventFailed       = "failed"
	EventError        = "error"
)

// Lifecycle is delivered to Manager subscribers on every Session state
// transition or error.
type Lifecycle struct {
	ServerName string
	Event      string
	Err        error
	At         time.Time
}

// Session is a live connection to one downstream. Exclusively owned by the
// Manager; the Router borrows it only through Manager.Get. Grounded on the
// teacher's DownstreamConnection (proxy/downstream_connection.go),
// generalized into a long-lived, reconnecting, event-emitting session.
type Session struct {
	Name   string
	Config *config.ServerConfig

	mu              sync.RWMutex
	state           State
	client          *mcp.Client
	session         *mcp.ClientSession
	createdAt       time.Time
	lastPing        time.Time
	reconnectAttempt int
	lastErr         error

	emit func(Lifecycle)
}

func newSession(name string, cfg *config.ServerConfig, emit func(Lifecycle)) *Session {
	return &Session{
		Name:      name,
		Config:    cfg,
		state:     StateIdle,
		createdAt: time.Now(),
		emit:      emit,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsConnected reports whether the Session's state is connected.
func (s *Session) IsConnected() bool {
	return s.State() == StateConnected
}

func (s *Session) setState(state State, event string, err error) {
	s.mu.Lock()
	s.state = state
	s.lastErr = err
	s.mu.Unlock()
	if s.emit != nil {
		s.emit(Lifecycle{ServerName: s.Name, Event: event, Err: err, At: time.Now()})
	}
}

// connect opens the transport and session, and performs the initial tool
// discovery handshake is left to the discovery engine — this only
// establishes the MCP session itself.
func (s *Session) connect(ctx context.Context, authHeaders map[string]string) error {
	s.setState(StateConnecting, EventConnecting, nil)

	transport, err := newTransport(s.Name, s.Config, authHeaders)
	if err != nil {
		s.setState(StateFailed, EventFailed, err)
		return err
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    s.Name,
		Version: "1.0.0",
	}, nil)

	mcpSession, err := client.Connect(ctx, transport, nil)
	if err != nil {
		s.setState(StateFailed, EventFailed, err)
		return fmt.Errorf("connect %s: %w", s.Name, err)
	}

	s.mu.Lock()
	s.client = client
	s.session = mcpSession
	s.reconnectAttempt = 0
	s.lastPing = time.Now()
	s.mu.Unlock()

	s.setState(StateConnected, EventConnected, nil)
	return nil
}

// ListTools enumerates tools from this downstream.
func (s *Session) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	s.mu.RLock()
	mcpSession := s.session
	connected := s.state == StateConnected
	s.mu.RUnlock()

	if !connected || mcpSession == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrServerNotConnected, s.Name)
	}
	result, err := mcpSession.ListTools(ctx, nil)
	if err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool forwards a tool call using the downstream's original name.
func (s *Session) CallTool(ctx context.Context, originalName string, args map[string]any) (*mcp.CallToolResult, error) {
	s.mu.RLock()
	mcpSession := s.session
	connected := s.state == StateConnected
	s.mu.RUnlock()

	if !connected || mcpSession == nil {
		return nil, fmt.Errorf("%w: %s", common.ErrServerNotConnected, s.Name)
	}
	return mcpSession.CallTool(ctx, &mcp.CallToolParams{
		Name:      originalName,
		Arguments: args,
	})
}

// Ping performs a lightweight liveness check by listing tools with a short
// deadline. The SDK has no bare ping RPC exposed on ClientSession, so
// list_tools doubles as the liveness probe, matching the capability set's
// documented semantics ("lightweight liveness check") without adding a
// protocol operation the SDK doesn't have.
func (s *Session) Ping(ctx context.Context) bool {
	s.mu.RLock()
	mcpSession := s.session
	connected := s.state == StateConnected
	s.mu.RUnlock()
	if !connected || mcpSession == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := mcpSession.ListTools(pingCtx, nil)
	ok := err == nil
	if ok {
		s.mu.Lock()
		s.lastPing = time.Now()
		s.mu.Unlock()
	}
	return ok
}

// Close terminates the session. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	mcpSession := s.session
	s.session = nil
	s.client = nil
	s.mu.Unlock()

	if mcpSession != nil {
		_ = mcpSession.Close()
	}
	s.setState(StateClosed, EventDisconnected, nil)
	return nil
}

// CreatedAt, LastPing, ReconnectAttempt, LastError expose Session
// attributes.
func (s *Session) CreatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createdAt
}

func (s *Session) LastPing() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPing
}

func (s *Session) ReconnectAttempt() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reconnectAttempt
}

func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}
