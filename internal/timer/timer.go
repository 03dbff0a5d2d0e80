// Package timer provides the periodic timing source that drives the toggle
// scheduler, plus the critical-section primitive used while arming it.
package timer

import "errors"

// Source is a periodic tick source.
type Source interface {
	// Configure sets the tick frequency. It must be called before Arm.
	Configure(hz uint32) error

	// RegisterTickHandler sets the function called once per tick.
	// The handler runs with the source masked and must not block.
	RegisterTickHandler(fn func())

	// Arm starts ticking.
	Arm() error

	// Mask suppresses tick delivery until Unmask. Ticks arriving while
	// masked are not lost: at most one is delivered on Unmask.
	Mask()

	// Unmask re-enables tick delivery.
	Unmask()
}

var (
	ErrZeroFrequency  = errors.New("timer: frequency must be > 0")
	ErrNotConfigured  = errors.New("timer: not configured")
	ErrNoHandler      = errors.New("timer: no tick handler registered")
	ErrAlreadyArmed   = errors.New("timer: already armed")
	ErrClosed         = errors.New("timer: closed")
	ErrFrequencyRange = errors.New("timer: frequency above 10kHz is not supported")
)

// MaxFrequency is the highest tick rate the host ticker accepts.
const MaxFrequency = 10000
