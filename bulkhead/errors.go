package bulkhead

import "errors"

// ErrRejected is returned when both the in-flight slots and the queue
// are full.
var ErrRejected = errors.New("bulkhead: at capacity")
