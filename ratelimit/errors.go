package ratelimit

import "errors"

// ErrClosed is returned to callers still waiting for a permit when the
// limiter is closed.
var ErrClosed = errors.New("ratelimit: limiter is closed")
