package domain

import "errors"

var (
	// ErrAuthentication means registration or session establishment failed
	ErrAuthentication = errors.New("authentication failed")

	// ErrMissingInput means the user declined to provide the verification code
	ErrMissingInput = errors.New("no verification code provided")

	// ErrNotFound means the conversation or chat is not known locally
	ErrNotFound = errors.New("not found")

	// ErrNoSession means no session is active
	ErrNoSession = errors.New("no active session")
)
