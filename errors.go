package swapscratch

import (
	"github.com/dsoprea/go-logging"
)

// ErrIncompatibleSlots is returned by Analyzer.Check when two slot
// geometries cannot be swapped through the configured scratch area. This is
// an ordinary error, not a fatal assertion: the outer bootloader policy
// decides what to do (refuse to upgrade, boot the existing primary as-is).
var ErrIncompatibleSlots = log.Errorf("swapscratch: slot geometries are not compatible with this scratch size")

// ErrBadArgs mirrors E_BADARGS: invalid trailer/status parameters supplied
// by the caller. Like a flash failure, this is not locally recoverable.
var ErrBadArgs = log.Errorf("swapscratch: invalid trailer or status parameters")

// assertf panics with a wrapped error if cond is false. It models the
// spec's "any non-zero return is fatal via assertion": at this layer there
// is no way to recover from a flash primitive failure, and continuing risks
// corrupting the only two bootable images on the device.
func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(log.Errorf(format, args...))
	}
}

// mustFlash panics if a FlashArea call failed. Every flash-area call in the
// engine is routed through this so that a single recover() at the entry
// point (Engine.Run) turns it back into a normal error.
func mustFlash(err error) {
	if err != nil {
		panic(log.Wrap(err))
	}
}

// recoverToError is deferred at the outer boundary of the exported
// entry points, following the teacher's navigator.go/tree.go pattern of
// recovering a panic raised deep in a call tree and re-wrapping it as a
// normal error return.
func recoverToError(err *error) {
	if state := recover(); state != nil {
		asErr, ok := state.(error)
		if !ok {
			asErr = log.Errorf("swapscratch: non-error panic: %v", state)
		}
		*err = log.Wrap(asErr)
	}
}
