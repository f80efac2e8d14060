package breaker

import "errors"

// ErrOpen is returned when the circuit is open and the call was rejected
// without running the operation.
var ErrOpen = errors.New("breaker: circuit is open")
