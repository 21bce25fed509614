package common

import (
	"errors"
	"strings"
)

const FallbackMessage = "Something wrong!"

// Kind is the closed set of failures surfaced to the player.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnectivity means there is no wallet or provider to talk to.
	KindConnectivity
	// KindMalformedInput is rejected locally, before any network call.
	KindMalformedInput
	// KindRemoteCall covers reverted transactions, rejected signatures and RPC failures.
	KindRemoteCall
	// KindCommitmentMismatch is a resolve whose move and salt don't open the stored commitment.
	KindCommitmentMismatch
	// KindUnavailable is an action requested while it is disabled.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindMalformedInput:
		return "malformed-input"
	case KindRemoteCall:
		return "remote-call"
	case KindCommitmentMismatch:
		return "commitment-mismatch"
	case KindUnavailable:
		return "unavailable"
	case KindUnknown:
		return "unknown"
	}

	return "unknown"
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Connectivity(message string, err error) *Error {
	return &Error{Kind: KindConnectivity, Message: message, Err: err}
}

func MalformedInput(message string) *Error {
	return &Error{Kind: KindMalformedInput, Message: message}
}

func Unavailable(message string) *Error {
	return &Error{Kind: KindUnavailable, Message: message}
}

// RemoteCall wraps a failed remote call with its normalized display message.
func RemoteCall(err error) *Error {
	return &Error{Kind: KindRemoteCall, Message: NormalizeMessage(err), Err: err}
}

func CommitmentMismatch(err error) *Error {
	return &Error{Kind: KindCommitmentMismatch, Message: "You have inputted the wrong move or salt", Err: err}
}

// KindOf reports the taxonomy kind of err, KindUnknown if it carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// NormalizeMessage turns an arbitrary remote-call error into a short display
// string: the message up to the first " (" (providers append a diagnostic
// payload there), the whole message if there is none, and FallbackMessage when
// there is no message at all.
func NormalizeMessage(err error) (message string) {
	defer func() {
		if recover() != nil {
			message = FallbackMessage
		}
	}()

	if err == nil {
		return FallbackMessage
	}

	message = err.Error()
	if idx := strings.Index(message, " ("); idx >= 0 {
		message = message[:idx]
	}

	if strings.TrimSpace(message) == "" {
		return FallbackMessage
	}

	return message
}
