package persistence

import "errors"

var (
	ErrStorage       = errors.New("storage error")
	ErrNoDatabaseURL = errors.New("no database url provided")
)
