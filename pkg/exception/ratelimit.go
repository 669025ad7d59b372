package exception

import "errors"

// Rate limit errors
var (
	ErrInvalidQuota = errors.New("ratelimit: invalid quota")
)
