package service

import "errors"

var (
	// ErrMalformedRequest marks a payload with missing required fields.
	// The relay drops these silently; the connection survives.
	ErrMalformedRequest = errors.New("service: malformed request")

	// ErrNotChatMember and ErrSenderMismatch are authorization
	// violations. The relay terminates the offending connection.
	ErrNotChatMember  = errors.New("service: user is not a member of chat")
	ErrSenderMismatch = errors.New("service: sender does not match connection user")

	// ErrDuplicateExchange marks a handshake request or accept that has
	// already happened. Clients retry on at-least-once delivery, so this
	// is an idempotent no-op, not a failure.
	ErrDuplicateExchange = errors.New("service: key exchange already recorded")
)

// Violation reports whether err must cost the connection its life.
func Violation(err error) bool {
	return errors.Is(err, ErrNotChatMember) || errors.Is(err, ErrSenderMismatch)
}

// Ignorable reports whether err is dropped without any client-visible
// effect.
func Ignorable(err error) bool {
	return errors.Is(err, ErrMalformedRequest) || errors.Is(err, ErrDuplicateExchange)
}
