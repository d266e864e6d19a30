package domain

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedUpdate   = errors.New("malformed update")
	ErrOutdatedMessage   = errors.New("outdated message")
	ErrRemote            = errors.New("remote error")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrTransport         = errors.New("transport error")
	ErrUnknownCommand    = errors.New("unknown command")
)

const (
	UnknownCommandText    = "Unknown command."
	NonRegisteredUserText = "Non-registered user: %d"
	SuccessfulUpdateText  = "<pre>Successful update: %d user(s)</pre>"
)

// RemoteError is a business error reported by a remote API.
type RemoteError struct {
	Code        int
	Description string
}

func (e *RemoteError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("remote error %d: %s", e.Code, e.Description)
	}
	return "remote error: " + e.Description
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// ProtocolViolationError reports a response whose shape breaks the envelope contract.
type ProtocolViolationError struct {
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return "protocol violation: " + e.Reason
}

func (e *ProtocolViolationError) Is(target error) bool {
	return target == ErrProtocolViolation
}

type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
