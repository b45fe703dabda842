package accounting

import "errors"

// ErrClock indicates that the system clock could not be read; every usage of
// the cycle is Unknown.
var ErrClock = errors.New("accounting: system clock unavailable")
