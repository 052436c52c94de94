// Package federation talks ActivityPub to remote servers: it owns the actor
// keys, signs outbound requests, authenticates inbound ones and runs the
// inbox state machine.
package federation

import "errors"

var (
	ErrRemoteFetch  = errors.New("remote actor fetch failed")
	ErrDelivery     = errors.New("delivery failed")
	ErrMetadata     = errors.New("podcast metadata unavailable")
	ErrUnknownOwner = errors.New("activity does not address a known actor")
)
