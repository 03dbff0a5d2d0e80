// Package gpio provides digital output pins behind a small hardware abstraction.
// The real implementations use the Linux GPIO character device or sysfs.
// The fake implementation allows testing without hardware.
package gpio

import "errors"

// Pin identifies a pin on the platform (a line offset on Linux, a board pin on an MCU).
type Pin int

// Level is the digital level of a pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Invert returns the complementary level.
func (l Level) Invert() Level {
	return !l
}

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// Driver configures and drives output pins.
type Driver interface {
	// ConfigureOutput sets the pin up as an output. It does not choose a level.
	ConfigureOutput(pin Pin) error

	// WriteLevel drives the pin. It is called from the tick path and so has no
	// error return; implementations keep the last failure for LastError.
	WriteLevel(pin Pin, level Level)

	// ReadLevel returns the level the pin is currently driven at.
	ReadLevel(pin Pin) Level

	// Close releases GPIO resources.
	Close() error
}

// ErrNotConfigured is recorded when a pin is written or read before ConfigureOutput.
var ErrNotConfigured = errors.New("gpio: pin not configured as output")

// Default pins (BCM numbering) for a three-LED indicator header.
const (
	DefaultPinRed   = 17
	DefaultPinAmber = 27
	DefaultPinGreen = 22
)

// DefaultChip is the character device used when none is given.
const DefaultChip = "gpiochip0"
