// Package connection implements the Downstream Connection Manager: a
// bounded pool of long-lived Sessions to heterogeneous MCP servers, with
// health checks, exponential-backoff reconnects, and lifecycle events.
package connection

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mcphub/mcphub/internal/common"
	"github.com/mcphub/mcphub/internal/config"
)

// Health-check and backoff tuning.
const (
	DefaultHealthCheckInterval = 30 * time.Second
	backoffBase                = 1 * time.Second
	backoffFactor              = 2.0
	backoffCap                 = 60 * time.Second
	backoffJitter              = 0.2
)

// Manager owns the pool of Sessions: a persistent pool independent of
// any one front-end request.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	sem      *semaphore.Weighted
	logger   *common.Logger

	healthInterval time.Duration

	handlersMu sync.Mutex
	handlers   map[string][]func(Lifecycle)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewManager constructs a Manager. maxConcurrentConnections bounds how many
// connect attempts may be in flight at once.
func NewManager(maxConcurrentConnections int, logger *common.Logger) *Manager {
	if maxConcurrentConnections <= 0 {
		maxConcurrentConnections = 10
	}
	return &Manager{
		sessions:       make(map[string]*Session),
		sem:            semaphore.NewWeighted(int64(maxConcurrentConnections)),
		logger:         logger,
		healthInterval: DefaultHealthCheckInterval,
		handlers:       make(map[string][]func(Lifecycle)),
		stopCh:         make(chan struct{}),
	}
}

// Initialize registers configurations without connecting, applying the
// self-reference guard to drop Sessions that would point back at this
// process.
func (m *Manager) Initialize(servers map[string]*config.ServerConfig) []Warning {
	m.mu.Lock()
	defer m.mu.Unlock()

	var warnings []Warning
	for name, cfg := range servers {
		if reason, matched := selfReferenceMatch(cfg); matched {
			warnings = append(warnings, Warning{ServerName: name, Reason: reason})
			continue
		}
		m.sessions[name] = newSession(name, cfg, m.dispatch)
	}
	return warnings
}

// Warning is a non-fatal condition surfaced during initialization.
type Warning struct {
	ServerName string
	Reason     string
}

// Start attempts to open each Session in parallel, bounded by the
// semaphore passed at construction. Partial failure is non-fatal: a
// Session whose connect fails stays in the failed state. The health loop
// pings only connected Sessions, so it does not retry failed ones. Start
// also launches the background health-check loop.
func (m *Manager) Start(ctx context.Context, authHeaders map[string]string) error {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	// Deterministic connect order keeps lifecycle-event ordering stable
	// across runs, which matters for tests asserting on event sequences.
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Name < sessions[j].Name })

	g, gctx := errgroup.WithContext(ctx)
	for _, session := range sessions {
		session := session
		g.Go(func() error {
			if err := m.sem.Acquire(gctx, 1); err != nil {
				return nil // context cancelled; don't fail the whole Start
			}
			defer m.sem.Release(1)
			if err := session.connect(gctx, authHeaders); err != nil {
				if m.logger != nil {
					m.logger.Warn("connect failed for %s: %v", session.Name, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.wg.Add(1)
	go m.healthLoop(authHeaders)
	return nil
}

// Stop concurrently closes all Sessions, swallowing individual errors, and
// halts the health-check loop.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()

	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			_ = s.Close()
		}(s)
	}
	wg.Wait()
}

// Get returns the named Session, or nil if unknown.
func (m *Manager) Get(name string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[name]
}

// IsConnected reports whether the named Session is currently connected.
func (m *Manager) IsConnected(name string) bool {
	s := m.Get(name)
	return s != nil && s.IsConnected()
}

// ConnectedNames returns the names of all currently connected Sessions.
func (m *Manager) ConnectedNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.sessions))
	for name, s := range m.sessions {
		if s.IsConnected() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// All returns every registered Session, connected or not.
func (m *Manager) All() map[string]*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*Session, len(m.sessions))
	for k, v := range m.sessions {
		out[k] = v
	}
	return out
}

// On subscribes handler to lifecycle events. event is one of the
// EventXxx constants, or "" to receive every event.
func (m *Manager) On(event string, handler func(Lifecycle)) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers[event] = append(m.handlers[event], handler)
}

func (m *Manager) dispatch(ev Lifecycle) {
	m.handlersMu.Lock()
	handlers := append(append([]func(Lifecycle){}, m.handlers[ev.Event]...), m.handlers[""]...)
	m.handlersMu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// healthLoop pings every connected Session on a timer; a ping failure
// transitions the Session into reconnecting with exponential backoff.
func (m *Manager) healthLoop(authHeaders map[string]string) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.healthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.checkAll(authHeaders)
		}
	}
}

func (m *Manager) checkAll(authHeaders map[string]string) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		if !s.IsConnected() {
			continue
		}
		if s.Ping(context.Background()) {
			continue
		}
		s.setState(StateReconnecting, EventReconnecting, nil)
		m.wg.Add(1)
		go m.reconnectLoop(s, authHeaders)
	}
}

// reconnectLoop retries connect with exponential backoff (base 1s, factor
// 2, jitter ±20%, cap 60s) until it succeeds or Stop() is called.
func (m *Manager) reconnectLoop(s *Session, authHeaders map[string]string) {
	defer m.wg.Done()
	attempt := 0
	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		delay := backoffDelay(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-m.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		s.mu.Lock()
		s.reconnectAttempt = attempt + 1
		s.mu.Unlock()

		if err := s.connect(context.Background(), authHeaders); err == nil {
			return
		}
		attempt++
	}
}

func backoffDelay(attempt int) time.Duration {
	d := float64(backoffBase) * pow(backoffFactor, attempt)
	if d > float64(backoffCap) {
		d = float64(backoffCap)
	}
	jitter := 1 + (rand.Float64()*2-1)*backoffJitter
	return time.Duration(d * jitter)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}
