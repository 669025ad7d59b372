package exception

import "errors"

// General errors
var (
	ErrNilInstance   = errors.New("nil instance")
	ErrInvalidConfig = errors.New("invalid config")
)
