package errors

import "errors"

// Protocol errors
var (
	// ErrMalformedFrame is returned when a frame cannot be decoded
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownChannel is returned when a frame names a channel outside the fixed set
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrHandlerClosed is returned when a message arrives on a closed handler
	ErrHandlerClosed = errors.New("handler closed")

	// ErrSendBufferFull is returned when a connection's outbound queue is full
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrConnectionClosed is returned when sending on a closed connection
	ErrConnectionClosed = errors.New("connection closed")
)

// Validation errors
var (
	// ErrBadPayload is returned when a message payload is not valid JSON
	ErrBadPayload = errors.New("invalid message payload")

	// ErrBadGameConfig is returned when game-creation parameters are malformed
	ErrBadGameConfig = errors.New("wrong config for the game")

	// ErrBadLineup is returned when the winning run exceeds the board size
	ErrBadLineup = errors.New("lineup must be less than dimensions")

	// ErrGameUnavailable is returned when a game cannot be joined
	ErrGameUnavailable = errors.New("can not connect to this game, try another one")
)

// Authentication errors
var (
	// ErrAuthRequired is returned when a protected channel is used before login
	ErrAuthRequired = errors.New("authentication required")

	// ErrNameTaken is returned when an identity claim loses the uniqueness race
	ErrNameTaken = errors.New("name already taken")
)

// Addressing errors
var (
	// ErrIdentityNotConnected is returned when a point-to-point target has no live handler
	ErrIdentityNotConnected = errors.New("identity not connected")
)

// Store errors
var (
	// ErrKeyNotFound is returned when a store key or record does not exist
	ErrKeyNotFound = errors.New("key not found")

	// ErrStoreClosed is returned when the store has been shut down
	ErrStoreClosed = errors.New("store closed")
)
