package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username taken")
	ErrSessionExpired     = errors.New("session expired")
	ErrMalformedChatID    = errors.New("malformed chat id")
)
