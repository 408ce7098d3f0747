// Package websocket provides a request/response WebSocket client for samplers.
package websocket

import "errors"

var (
	// ErrMaxRetriesExceeded indicates that the maximum connection retries have been exceeded.
	ErrMaxRetriesExceeded = errors.New("max connection retries exceeded")
	// ErrNotConnected indicates that the client is not connected.
	ErrNotConnected = errors.New("not connected")
	// ErrClosed indicates that the client has been closed.
	ErrClosed = errors.New("client closed")
)
