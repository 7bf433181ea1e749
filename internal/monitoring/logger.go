package monitoring

import (
	"io"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tools print operator summaries through it so that
// stdout stays reserved for functional output.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetOutput points Logf at w, prefixing each line with the tool name.
func SetOutput(w io.Writer, tool string) {
	prefix := ""
	if tool != "" {
		prefix = "[" + tool + "] "
	}
	l := log.New(w, prefix, log.LstdFlags)
	Logf = l.Printf
}
