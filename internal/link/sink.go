// Package link delivers encoded KOMSI batches to receivers.
package link

import "errors"

// ErrNotConnected is returned by Write while the sink has no open connection.
var ErrNotConnected = errors.New("link: not connected")

// Sink receives complete KOMSI batches, terminator included.
type Sink interface {
	Name() string
	// Write delivers one batch. An error means the receiver may have missed
	// it and should be brought back in sync with a full batch.
	Write(batch []byte) error
}
