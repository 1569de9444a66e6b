package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf is the verbose logger used for per-stage pipeline tracing (resample
// kernel spans, per-band statistics, extraction masks). It is a no-op until
// EnableDebug is called, so hot loops can log without a guard.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// EnableDebug routes Debugf through the current Logf with a [debug] prefix.
func EnableDebug() {
	Debugf = func(format string, v ...interface{}) {
		Logf("[debug] "+format, v...)
	}
}

// DisableDebug restores the no-op debug logger.
func DisableDebug() {
	Debugf = func(string, ...interface{}) {}
}
