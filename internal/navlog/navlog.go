// Package navlog is the minimal logging facade used across the module.
//
// go-detour logs with the plain stdlib log package throughout detour/
// and recast/ (e.g. recast.BuildContext.Errorf forwards to
// log.Printf-style formatting); this package keeps that choice rather
// than pull in a structured logger the corpus never uses, wrapping it
// behind a small interface so call sites don't depend on the concrete
// sink, letting the logger be swapped for a configurable one injected
// per-runtime.
package navlog

import "log"

// Logger is the sink every package in this module logs warnings and
// errors through.
type Logger interface {
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Default wraps the stdlib log package.
type Default struct{}

func (Default) Warnf(format string, args ...interface{}) {
	log.Printf("WARN "+format, args...)
}

func (Default) Errorf(format string, args ...interface{}) {
	log.Printf("ERROR "+format, args...)
}

// Discard drops every message. Useful in tests.
type Discard struct{}

func (Discard) Warnf(string, ...interface{})  {}
func (Discard) Errorf(string, ...interface{}) {}
