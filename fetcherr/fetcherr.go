// Package fetcherr classifies failures raised by fetch collaborators.
//
// The classification is a closed set of kinds so that IsRetryable is an
// exhaustive switch rather than message sniffing. Presentation layers reuse
// IsRetryable to decide whether to offer a manual retry.
package fetcherr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Kind is the category of a fetch failure.
type Kind int

const (
	// KindUnknown is the catch-all for failures of any other shape.
	KindUnknown Kind = iota
	// KindNetwork is a transport failure: DNS, refused connection, reset, timeout.
	KindNetwork
	// KindUpstream is an HTTP-shaped failure; Status carries the code.
	KindUpstream
	// KindValidation is malformed data from upstream.
	KindValidation
	// KindNotFound is a logical absence, e.g. no release notes for a version.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUpstream:
		return "upstream"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a classified fetch failure.
type Error struct {
	Kind   Kind
	Status int    // HTTP status for KindUpstream, 0 otherwise
	Op     string // what was being fetched, e.g. "npm summary react"
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Kind == KindUpstream && e.Status != 0 {
		msg = fmt.Sprintf("upstream status %d", e.Status)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Network wraps a transport failure.
func Network(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// Upstream wraps an HTTP failure with its status code.
func Upstream(op string, status int, err error) error {
	return &Error{Kind: KindUpstream, Status: status, Op: op, Err: err}
}

// Validation wraps a decoding or shape failure.
func Validation(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// NotFound reports a logical absence.
func NotFound(op string, err error) error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

// Unknown wraps a failure that fits no other kind.
func Unknown(op string, err error) error {
	return &Error{Kind: KindUnknown, Op: op, Err: err}
}

// FromStatus builds the error for a non-2xx HTTP response.
func FromStatus(op string, status int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}
	return Upstream(op, status, err)
}

// KindOf returns the classification of err. Unclassified transport errors
// report KindNetwork; everything else unclassified is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if isContextErr(err) {
		return KindUnknown
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindNetwork
	}
	return KindUnknown
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}

/*
IsRetryable reports whether a failed fetch is worth another attempt.

	network                      → true
	upstream, status >= 500      → true
	upstream, status == 429      → true
	anything else                → false (404, validation, not found, unknown,
	                               context cancellation)
*/
func IsRetryable(err error) bool {
	if err == nil || isContextErr(err) {
		return false
	}
	switch KindOf(err) {
	case KindNetwork:
		return true
	case KindUpstream:
		status := StatusOf(err)
		return status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
	case KindValidation, KindNotFound, KindUnknown:
		return false
	}
	return false
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
