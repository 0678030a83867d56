package gateway

import "fmt"

// TransportError indicates the request never produced an HTTP response
// (connection failure, timeout, cancelled context).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates a non-2xx status or a malformed response body.
type ProtocolError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error on %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("protocol error on %s: status %d", e.Op, e.StatusCode)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// ApplicationError is a well-formed but semantically negative response:
// the service answered success=false with a message.
type ApplicationError struct {
	Op      string
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("%s rejected: %s", e.Op, e.Message)
}

// ValidationError is a client-side precondition failure caught before any
// network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
