// Package failure classifies the ways joining a voice call can go wrong so the
// UI can show a distinct state for each and offer a retry.
package failure

import (
	"context"
	"errors"
	"fmt"
)

// Reason is a user-facing failure category.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonServerUnreachable     Reason = "server_unreachable"
	ReasonMalformedResponse     Reason = "malformed_response"
	ReasonSessionRejected       Reason = "session_rejected"
	ReasonMicrophoneDenied      Reason = "microphone_denied"
	ReasonMicrophoneUnavailable Reason = "microphone_unavailable"
	ReasonPublishFailed         Reason = "publish_failed"
)

var messages = map[Reason]string{
	ReasonServerUnreachable:     "could not reach server",
	ReasonMalformedResponse:     "server sent an invalid response",
	ReasonSessionRejected:       "session rejected",
	ReasonMicrophoneDenied:      "microphone permission denied",
	ReasonMicrophoneUnavailable: "no microphone available",
	ReasonPublishFailed:         "could not send microphone audio",
}

// Message returns the text shown to the user.
func (r Reason) Message() string {
	if msg, ok := messages[r]; ok {
		return msg
	}
	if r == ReasonNone {
		return ""
	}
	return "something went wrong"
}

// Retryable reports whether trying again without changing anything locally
// can succeed. A malformed token response or a missing microphone needs an
// operator first; the UI still offers the retry action.
func (r Reason) Retryable() bool {
	switch r {
	case ReasonMalformedResponse, ReasonMicrophoneUnavailable:
		return false
	default:
		return true
	}
}

// Error carries a Reason alongside the underlying cause.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same reason, so errors.Is(err,
// failure.New(failure.ReasonSessionRejected, nil)) works as a reason check.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Reason == e.Reason
}

// New wraps err with reason.
func New(reason Reason, err error) error {
	return &Error{Reason: reason, Err: err}
}

// Newf is New with a formatted cause.
func Newf(reason Reason, format string, args ...any) error {
	return &Error{Reason: reason, Err: fmt.Errorf(format, args...)}
}

// ReasonOf extracts the classification of err. Deadline errors count as an
// unreachable server; other unclassified errors return ReasonNone.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonServerUnreachable
	}
	return ReasonNone
}

// Ensure returns err classified with fallback unless it already carries a
// reason.
func Ensure(err error, fallback Reason) error {
	if err == nil {
		return nil
	}
	if ReasonOf(err) != ReasonNone {
		return err
	}
	return New(fallback, err)
}
