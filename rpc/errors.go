// Package rpc implements the Processor/Client layer of spec.md §4.7:
// synchronous, blocking request dispatch over a protocol.Protocol, a
// declared-exception-aware reply encoding, and the application
// exception taxonomy of spec.md §6.
package rpc

import (
	"fmt"

	"github.com/ritksm/thriftpy/value"
)

// ApplicationKind is the `type` field of a well-formed EXCEPTION
// message, per spec.md §6.
type ApplicationKind int32

const (
	Unknown ApplicationKind = iota
	UnknownMethod
	InvalidMessageType
	WrongMethodName
	BadSequenceID
	MissingResult
	InternalError
	ProtocolErrorKind
)

func (k ApplicationKind) String() string {
	switch k {
	case UnknownMethod:
		return "UNKNOWN_METHOD"
	case InvalidMessageType:
		return "INVALID_MESSAGE_TYPE"
	case WrongMethodName:
		return "WRONG_METHOD_NAME"
	case BadSequenceID:
		return "BAD_SEQUENCE_ID"
	case MissingResult:
		return "MISSING_RESULT"
	case InternalError:
		return "INTERNAL_ERROR"
	case ProtocolErrorKind:
		return "PROTOCOL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// ApplicationError is a well-formed EXCEPTION message, per spec.md §7:
// "surfaces to the client as a structured error with kind and
// message."
type ApplicationError struct {
	Kind    ApplicationKind
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("application error (%s): %s", e.Kind, e.Message)
}

// DeclaredException is a Thrift `exception` type raised by a handler
// and matched against a method's declared throws clause, per spec.md
// §7. A handler constructs one by building the exception struct's
// Value and wrapping it with NewDeclaredException; the Processor
// matches Value.StructDef().Name against the method's throws fields
// to pick the reply field id, so handlers never need to know it.
type DeclaredException struct {
	Value value.Value
}

// NewDeclaredException wraps an exception struct value so a Handler
// can return it as an error.
func NewDeclaredException(v value.Value) *DeclaredException {
	return &DeclaredException{Value: v}
}

func (e *DeclaredException) Error() string {
	if sd := e.Value.StructDef(); sd != nil {
		return fmt.Sprintf("declared exception %s", sd.Name)
	}
	return "declared exception"
}
