package gpio

import (
	"errors"
	"sync"
)

// FakeDriver is a test double that keeps pin levels in memory and records
// every write.
type FakeDriver struct {
	mu sync.Mutex

	// Configured lists pins in the order ConfigureOutput was called.
	Configured []Pin

	// Writes records every WriteLevel call.
	Writes []Write

	// ConfigureError, if set, is returned by ConfigureOutput.
	ConfigureError error

	// Closed tracks if Close was called
	Closed bool

	levels  map[Pin]Level
	toggles map[Pin]int
	lastErr error
}

// Write is a single recorded WriteLevel call.
type Write struct {
	Pin   Pin
	Level Level
}

// NewFakeDriver creates a FakeDriver with no configured pins.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		levels:  make(map[Pin]Level),
		toggles: make(map[Pin]int),
	}
}

// ConfigureOutput marks the pin as an output.
func (f *FakeDriver) ConfigureOutput(pin Pin) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ConfigureError != nil {
		return f.ConfigureError
	}
	f.Configured = append(f.Configured, pin)
	if _, ok := f.levels[pin]; !ok {
		f.levels[pin] = Low
	}
	return nil
}

// WriteLevel records the write and counts level changes.
func (f *FakeDriver) WriteLevel(pin Pin, level Level) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, ok := f.levels[pin]
	if !ok {
		f.lastErr = ErrNotConfigured
		return
	}
	if prev != level {
		f.toggles[pin]++
	}
	f.levels[pin] = level
	f.Writes = append(f.Writes, Write{Pin: pin, Level: level})
}

// ReadLevel returns the pin's current level.
func (f *FakeDriver) ReadLevel(pin Pin) Level {
	f.mu.Lock()
	defer f.mu.Unlock()

	level, ok := f.levels[pin]
	if !ok {
		f.lastErr = ErrNotConfigured
	}
	return level
}

// Level is ReadLevel without touching the error record.
func (f *FakeDriver) Level(pin Pin) Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[pin]
}

// Toggles returns how many times the pin's level has changed.
func (f *FakeDriver) Toggles(pin Pin) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.toggles[pin]
}

// WriteCount returns the number of recorded writes.
func (f *FakeDriver) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Writes)
}

// LastError returns and clears the most recent misuse.
func (f *FakeDriver) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.lastErr
	f.lastErr = nil
	return err
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Closed {
		return errors.New("already closed")
	}
	f.Closed = true
	return nil
}

// Reset forgets all pins and recorded calls.
func (f *FakeDriver) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Configured = nil
	f.Writes = nil
	f.ConfigureError = nil
	f.Closed = false
	f.levels = make(map[Pin]Level)
	f.toggles = make(map[Pin]int)
	f.lastErr = nil
}
