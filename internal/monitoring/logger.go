// Package monitoring holds the diagnostic logger and progress reporting
// shared by the pipeline stages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger used by internal packages.
// It defaults to log.Printf; tests may redirect or mute it with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
