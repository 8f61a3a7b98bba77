package events

import "errors"

// Common errors returned by the bus
var (
	ErrInvalidTopic   = errors.New("invalid event topic")
	ErrInvalidPattern = errors.New("invalid subscription pattern")
	ErrNilHandler     = errors.New("event handler is nil")
	ErrQueueFull      = errors.New("event queue is full")
	ErrBusRunning     = errors.New("event bus is already running")
	ErrEventNotFound  = errors.New("event not found")
)
