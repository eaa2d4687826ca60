package schema

import (
	"fmt"
	"strings"

	"github.com/ritksm/thriftpy/idl/token"
)

// ResolveErrorKind classifies a ResolveError, per spec.md §4.3/§7.
type ResolveErrorKind int

const (
	ErrIncludeCycle ResolveErrorKind = iota
	ErrUnresolvedType
	ErrDuplicateFieldID
	ErrInvalidFieldID
	ErrIllegalRequiredness
	ErrServiceCycle
	ErrDuplicateName
	ErrConstMismatch
	ErrUnknownEnumValue
	ErrServiceNotFound
)

func (k ResolveErrorKind) String() string {
	switch k {
	case ErrIncludeCycle:
		return "IncludeCycle"
	case ErrUnresolvedType:
		return "UnresolvedType"
	case ErrDuplicateFieldID:
		return "DuplicateFieldID"
	case ErrInvalidFieldID:
		return "InvalidFieldID"
	case ErrIllegalRequiredness:
		return "IllegalRequiredness"
	case ErrServiceCycle:
		return "ServiceCycle"
	case ErrDuplicateName:
		return "DuplicateName"
	case ErrConstMismatch:
		return "ConstMismatch"
	case ErrUnknownEnumValue:
		return "UnknownEnumValue"
	case ErrServiceNotFound:
		return "ServiceNotFound"
	default:
		return "Unknown"
	}
}

// ResolveError is one structural failure found while building a
// Schema, per spec.md §4.3/§7.
type ResolveError struct {
	Kind    ResolveErrorKind
	Module  string
	Pos     token.Position
	Message string
}

func (e *ResolveError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("resolve error (%s) in %s at %s: %s", e.Kind, e.Module, e.Pos, e.Message)
	}
	return fmt.Sprintf("resolve error (%s): %s", e.Kind, e.Message)
}

// ResolveErrors joins several ResolveErrors into one error value. The
// Resolver does not build one: LoadSchema stops at the first problem
// it finds and returns that lone *ResolveError, so later errors in the
// same sources are not reported.
type ResolveErrors []*ResolveError

func (es ResolveErrors) Error() string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}
