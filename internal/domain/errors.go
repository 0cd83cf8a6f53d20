package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidConditions = errors.New("invalid threshold conditions")
	ErrUnknownType       = errors.New("unknown threshold type")
	ErrInvalidChannel    = errors.New("invalid delivery channel")
	ErrLockHeld          = errors.New("lock already held")
	ErrContextDone       = errors.New("context cancelled")

	// Bot lifecycle transition errors. Each maps to a rejected transition
	// that leaves the instance unmodified.
	ErrBotAlreadyRunning = errors.New("bot is already running")
	ErrBotNotRunning     = errors.New("bot is not running")
	ErrBotAlreadyIdle    = errors.New("bot is already stopped")
	ErrBotNotIdle        = errors.New("bot must be stopped first")
)
