// Package logging provides a process-wide debug logging toggle shared by
// every package in this module, so a caller can turn on verbose tracing
// without changing each package's own log.Printf call sites.
package logging

import "log"

// DebugEnabled controls whether Debug() produces output.
// Nothing in this module sets it; callers assign it directly.
var DebugEnabled bool

// Debug logs a message only when DebugEnabled is true.
func Debug(format string, args ...any) {
	if DebugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}
