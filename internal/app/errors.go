package service

import "errors"

// Sentinel error kinds returned by Service.
var (
	ErrNotStarted   = errors.New("service not started")
	ErrInvalidInput = errors.New("invalid input")
)
