package httpsig

import "errors"

var (
	ErrURL       = errors.New("invalid request url")
	ErrKey       = errors.New("key error")
	ErrSigning   = errors.New("signing error")
	ErrSignature = errors.New("invalid http signature")
)
