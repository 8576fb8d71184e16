// internal/monitoring/logger.go
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf;
// tests may mute or capture it through SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the logger. nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
