// Package clock provides indirection for accessing current time.
package clock

import "time"

// Now is overridable function that returns current wall clock time.
//
//nolint:gochecknoglobals
var Now = time.Now //nolint:forbidigo

// Since returns time since the given timestamp.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
