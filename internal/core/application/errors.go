package application

import "errors"

var (
	ErrNotInitialized   = errors.New("session not initialized")
	ErrAlreadyConnected = errors.New("session already connected")
	ErrConnectionFailed = errors.New("connection failed")
	ErrOracleRead       = errors.New("failed to read balance")
	ErrEmptyResult      = errors.New("ledger returned an empty result")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrNotSupported     = errors.New("operation not supported by ledger")
	// ErrTickInFlight is returned by Tick and CheckNow when the previous
	// detection pass has not returned yet. The pass is skipped, not failed.
	ErrTickInFlight = errors.New("previous tick still running")
)
