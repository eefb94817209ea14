// Package monitoring holds the diagnostic logging hook shared by the
// tracker packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs through Logf with a "warning: " prefix so skipped folds and
// abandoned captures stand out in mixed output.
func Warnf(format string, v ...interface{}) {
	Logf("warning: "+format, v...)
}
