package domain

import "errors"

var (
	// ErrInvalidInput send rejected before touching the store
	ErrInvalidInput = errors.New("invalid input")
	// ErrSendFailed persistence rejected a send; the provisional record was removed
	ErrSendFailed = errors.New("send failed")
	// ErrMalformedEvent stream payload could not be decoded
	ErrMalformedEvent = errors.New("malformed event")
	// ErrNotFound message not present
	ErrNotFound = errors.New("message not found")
	// ErrAlreadyStarted multiplexer already holds a subscription
	ErrAlreadyStarted = errors.New("subscription already started")
)
