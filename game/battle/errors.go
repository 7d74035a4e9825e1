package battle

import "errors"

var (
	// ErrUnsupportedRule is returned by Execute when a data record describes a
	// rule the engine does not handle. Only the offending action is aborted.
	ErrUnsupportedRule = errors.New("battle: unsupported rule")

	// ErrNoTarget is returned when an action cannot find anyone to act on.
	ErrNoTarget = errors.New("battle: no target")
)
