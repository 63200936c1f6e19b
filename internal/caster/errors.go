package caster

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTarget reports a connection target without a resolvable
	// host. There is nothing to retry.
	ErrInvalidTarget = errors.New("caster: invalid target")

	// ErrAlreadySplit reports a second Split of the same connection.
	ErrAlreadySplit = errors.New("caster: connection already split")

	// ErrSenderClosed reports a send attempted after the sender shut
	// down. Emission should stop; the receive side is unaffected.
	ErrSenderClosed = errors.New("caster: sender closed")
)

// StatusError is returned when the handshake completes at the transport
// level but the caster answers with a status other than 200.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("caster: unexpected status %q", e.Status)
}

// ReceiveError wraps a transport fault observed while draining the
// correction stream. A clean peer close surfaces as io.EOF instead.
type ReceiveError struct {
	Err error
}

func (e *ReceiveError) Error() string { return "caster: receive: " + e.Err.Error() }

func (e *ReceiveError) Unwrap() error { return e.Err }
