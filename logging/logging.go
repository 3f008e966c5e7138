// Package logging provides the small console logger used by the protocol
// driver and the demo binary.
package logging

import (
	"fmt"
	"strings"
	"time"
)

// Logger writes progress messages to stdout. A nil *Logger is valid and
// discards everything, so library code can log unconditionally.
type Logger struct {
	debug bool
}

// New returns a Logger. With debug=false only Section banners are printed.
func New(debug bool) *Logger {
	return &Logger{debug: debug}
}

// Printf prints a single progress line.
func (l *Logger) Printf(format string, args ...interface{}) {
	if l == nil || !l.debug {
		return
	}
	fmt.Printf(format+"\n", args...)
}

// Section prints a banner separating the protocol phases.
func (l *Logger) Section(title string) {
	if l == nil {
		return
	}
	fmt.Println()
	fmt.Println(strings.Repeat("*", 50))
	fmt.Println(title)
	fmt.Println(strings.Repeat("*", 50))
}

// Duration prints the elapsed time of a named step.
func (l *Logger) Duration(name string, start time.Time) {
	if l == nil || !l.debug {
		return
	}
	fmt.Printf("%s took %.3fs\n", name, time.Since(start).Seconds())
}
