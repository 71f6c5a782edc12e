package monitor

import "errors"

var (
	// ErrTickAbandoned wraps any failure that aborted a tick. State is unchanged.
	ErrTickAbandoned = errors.New("tick abandoned")
	ErrNilSource     = errors.New("monitor requires a source")
	ErrNilConfig     = errors.New("monitor requires a config")
)
