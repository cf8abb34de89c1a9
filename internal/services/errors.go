package services

import "errors"

// ErrInvalidInput marks a request the caller has to fix before retrying.
var ErrInvalidInput = errors.New("invalid input")
