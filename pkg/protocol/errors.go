// Package protocol frames a worker's attested result on its output stream.
package protocol

import "errors"

var (
	// ErrPayloadRead indicates a short read or a stream that closed early.
	ErrPayloadRead = errors.New("payload read failed")
	// ErrParse indicates that the mean text is not a finite number.
	ErrParse = errors.New("mean parse failed")
	// ErrNonCanonical indicates mean text that is not the canonical rendering of its value.
	ErrNonCanonical = errors.New("mean text is not canonical")
)
