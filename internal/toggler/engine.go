// Package toggler toggles a fixed set of output pins at independent rates
// from a single periodic tick.
//
// Each pin has a phase accumulator. Every tick adds the pin's rate to its
// phase; when the phase reaches PhaseMax it resets to zero and the pin is
// inverted. Rates are divisors of PhaseMax, so a pin at rate r toggles
// exactly r times every PhaseMax ticks.
//
// Field ownership between the tick context and ordinary code:
//
//	phase    written and read only by Step
//	rate     written only by SetRate, read by Step (atomic)
//	toggles  written only by Step, read by ordinary code (atomic)
//	pin      written once at construction
package toggler

import (
	"sync/atomic"

	"github.com/sweeney/pin-toggler/internal/gpio"
)

type slot struct {
	pin     gpio.Pin
	phase   uint8
	rate    atomic.Uint32
	toggles atomic.Uint32
}

// Engine holds per-pin phase state and advances it one tick at a time.
type Engine struct {
	pins  gpio.Driver
	slots []slot
}

// NewEngine creates an engine for the given pins, all at rate Off with phase 0.
// It does not touch the hardware.
func NewEngine(pins gpio.Driver, handles []gpio.Pin) *Engine {
	e := &Engine{
		pins:  pins,
		slots: make([]slot, len(handles)),
	}
	for i, h := range handles {
		e.slots[i].pin = h
	}
	return e
}

// Len returns the number of pins.
func (e *Engine) Len() int {
	return len(e.slots)
}

// Pin returns the handle of pin i.
func (e *Engine) Pin(i int) gpio.Pin {
	return e.slots[i].pin
}

// SetRate stores the rate for pin i. The caller validates i and r.
func (e *Engine) SetRate(i int, r Rate) {
	e.slots[i].rate.Store(uint32(r))
}

// Rate returns the configured rate for pin i.
func (e *Engine) Rate(i int) Rate {
	return Rate(e.slots[i].rate.Load())
}

// Toggles returns how many times Step has inverted pin i.
func (e *Engine) Toggles(i int) uint32 {
	return e.slots[i].toggles.Load()
}

// Step advances every pin by one tick. It runs in the tick context: no
// allocation, no blocking, constant work per pin.
func (e *Engine) Step() {
	for i := range e.slots {
		s := &e.slots[i]
		s.phase += uint8(s.rate.Load())
		if s.phase >= PhaseMax {
			s.phase = 0
			e.pins.WriteLevel(s.pin, e.pins.ReadLevel(s.pin).Invert())
			s.toggles.Add(1)
		}
	}
}
