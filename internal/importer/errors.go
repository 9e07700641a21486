package importer

import (
	"errors"
	"fmt"
)

// Kind is the closed set of ParseFile failure modes.
type Kind int

const (
	KindUnsupportedFormat Kind = iota + 1
	KindAccessDenied
	KindNetworkUnavailable
	KindServerError
	KindEmptyResult
)

func (k Kind) String() string {
	switch k {
	case KindUnsupportedFormat:
		return "unsupported format"
	case KindAccessDenied:
		return "access denied"
	case KindNetworkUnavailable:
		return "network unavailable"
	case KindServerError:
		return "server error"
	case KindEmptyResult:
		return "empty result"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by ParseFile. StatusCode is set for non-200 responses and
// Detail carries the server's message when it sent one.
type Error struct {
	Kind       Kind
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrServerError)
// holds regardless of status or detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedFormat  = &Error{Kind: KindUnsupportedFormat}
	ErrAccessDenied       = &Error{Kind: KindAccessDenied}
	ErrNetworkUnavailable = &Error{Kind: KindNetworkUnavailable}
	ErrServerError        = &Error{Kind: KindServerError}
	ErrEmptyResult        = &Error{Kind: KindEmptyResult}
)

func newError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf returns the Kind of err, or 0 if err is not an importer error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Message renders the one-sentence text shown to the user for err.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		if err == nil {
			return ""
		}
		return "Something went wrong while importing the statement."
	}

	switch e.Kind {
	case KindUnsupportedFormat:
		return "Only PDF statements are supported."
	case KindAccessDenied:
		return "The statement file could not be opened."
	case KindNetworkUnavailable:
		return "The classification service could not be reached. Check your connection and try again."
	case KindServerError:
		switch {
		case e.Detail != "":
			return fmt.Sprintf("The classification service reported an error: %s.", e.Detail)
		case e.StatusCode != 0:
			return fmt.Sprintf("The classification service returned HTTP %d.", e.StatusCode)
		default:
			return "The classification service returned an error."
		}
	case KindEmptyResult:
		return "No transactions were found in the statement."
	default:
		return "Something went wrong while importing the statement."
	}
}
