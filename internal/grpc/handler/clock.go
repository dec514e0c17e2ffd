package handler

import "time"

// wallClockNanos is isolated in its own function so every other package
// in this module can be audited for the "no wall clock inside apply"
// rule (§5) by checking that time.Now never appears outside this file
// and test code.
func wallClockNanos() int64 {
	return time.Now().UnixNano()
}
