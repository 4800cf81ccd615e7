package common

import "errors"

// Sentinel errors returned by the router, connection manager, and toolset
// manager. Callers should use errors.Is against these rather than matching
// on message text.
var (
	// ErrToolNotFound is returned when a tool name or refId cannot be
	// resolved against the discovery cache.
	ErrToolNotFound = errors.New("tool not found")

	// ErrServerNotConnected is returned when a call targets a Session that
	// is not currently in the connected state.
	ErrServerNotConnected = errors.New("downstream server not connected")

	// ErrInvalidParameters is returned when a tool call is missing a
	// required field declared by the tool's input schema.
	ErrInvalidParameters = errors.New("invalid tool call parameters")

	// ErrTimeout is returned when a per-call deadline elapses.
	ErrTimeout = errors.New("call timed out")

	// ErrServiceUnavailable is returned when a request arrives before the
	// router has been initialized.
	ErrServiceUnavailable = errors.New("service not yet available")

	// ErrConfiguration marks a fatal, startup-time configuration error.
	ErrConfiguration = errors.New("configuration error")
)
