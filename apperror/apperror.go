// Package apperror defines the structured error carried between the API
// client, the stores and the routing surface.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind classifies an Error.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindTransport    Kind = "transport"
	KindTimeout      Kind = "timeout"
	KindUnauthorized Kind = "unauthorized"
	KindDomain       Kind = "domain"
	KindDecode       Kind = "decode"
)

var (
	// ErrTokenNotFound is returned by login when the response carries no token.
	ErrTokenNotFound = New(KindDomain, "token not found")
	// ErrEmptyName rejects an empty entity name before any request is made.
	ErrEmptyName = New(KindValidation, "name is required")
	// ErrDuplicateName rejects a name that already exists in the cached list.
	ErrDuplicateName = New(KindValidation, "name already exists")
)

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Status  int    `json:"status,omitempty"`
	Err     error  `json:"-"`
}

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap classifies err under kind, keeping it as the cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// FromStatus builds the error for a non-2xx response. serverMsg is the
// message found in the response body, if any.
func FromStatus(status int, serverMsg string) *Error {
	kind := KindDomain
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = KindUnauthorized
	}
	msg := serverMsg
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
	}
	return &Error{Kind: kind, Message: msg, Status: status}
}

// FromTransport classifies a failure to obtain a response.
func FromTransport(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return Wrap(KindTimeout, "request timed out", err)
	}
	return Wrap(KindTransport, err.Error(), err)
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Normalize turns any error into an *Error. The message prefers what the
// server said, then the error text, then fallback.
func Normalize(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e
		}
		out := *e
		out.Message = fallback
		return &out
	}
	msg := err.Error()
	if msg == "" {
		msg = fallback
	}
	return Wrap(KindTransport, msg, err)
}
