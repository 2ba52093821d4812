// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/oggyb/ffm-club/internal/utils/pagination"
)

// Kind classifies a failure independently of the transport.
type Kind int

const (
	KindBackendUnavailable Kind = iota
	KindNotFound
	KindAlreadyExists
	KindInvalidOperation
	KindInvalidArgument
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindInvalidOperation:
		return "InvalidOperation"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindUnauthenticated:
		return "Unauthenticated"
	default:
		return "BackendUnavailable"
	}
}

// Error is the error type returned by every service operation.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(msg string) error         { return &Error{Kind: KindNotFound, Msg: msg} }
func AlreadyExists(msg string) error    { return &Error{Kind: KindAlreadyExists, Msg: msg} }
func InvalidOperation(msg string) error { return &Error{Kind: KindInvalidOperation, Msg: msg} }
func InvalidArgument(msg string) error  { return &Error{Kind: KindInvalidArgument, Msg: msg} }
func Unauthenticated(msg string) error  { return &Error{Kind: KindUnauthenticated, Msg: msg} }

// Backend wraps a collaborator failure with a readable message.
func Backend(msg string, err error) error {
	return &Error{Kind: KindBackendUnavailable, Msg: msg, Err: err}
}

// KindOf reports the kind of err. Untyped errors count as BackendUnavailable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindBackendUnavailable
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Translate converts repo/infra errors into service errors at an operation
// boundary. msg describes the operation that failed.
func Translate(err error, msg string) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: KindNotFound, Msg: msg, Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: KindAlreadyExists, Msg: msg, Err: err}
	case errors.Is(err, pagination.ErrInvalidToken):
		return &Error{Kind: KindInvalidArgument, Msg: err.Error()}
	default:
		return Backend(msg, err)
	}
}

// Map converts service errors into gRPC-friendly status errors.
// Keeps handlers clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	case errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	var e *Error
	if !errors.As(err, &e) {
		// fallback → bubble up error message for debugging
		return status.Error(codes.Internal, err.Error())
	}

	switch e.Kind {
	case KindNotFound:
		return status.Error(codes.NotFound, e.Msg)
	case KindAlreadyExists:
		return status.Error(codes.AlreadyExists, e.Msg)
	case KindInvalidOperation:
		return status.Error(codes.FailedPrecondition, e.Msg)
	case KindInvalidArgument:
		return status.Error(codes.InvalidArgument, e.Msg)
	case KindUnauthenticated:
		return status.Error(codes.Unauthenticated, e.Msg)
	default:
		return status.Error(codes.Unavailable, e.Error())
	}
}
