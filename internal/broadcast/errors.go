package broadcast

import "errors"

var (
	// ErrRecordNotFound is returned when an operation references an
	// unknown remote broadcast id.
	ErrRecordNotFound = errors.New("broadcast record not found")

	// ErrRemoteResourceNotFound is returned when an override targets a
	// video id that does not resolve on the provider.
	ErrRemoteResourceNotFound = errors.New("remote video not found")

	// ErrNoActiveSession is returned when no record currently occupies
	// the canonical session slot.
	ErrNoActiveSession = errors.New("no active session")
)
