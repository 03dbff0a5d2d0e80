package toggler

import "errors"

var (
	// ErrAlreadyInitialized is returned by a second Initialize. The live
	// scheduler is left untouched.
	ErrAlreadyInitialized = errors.New("toggler: already initialized")

	// ErrNotInitialized is returned by SetRate before Initialize succeeds.
	ErrNotInitialized = errors.New("toggler: not initialized")

	// ErrShapeMismatch is returned when the caller's pin count differs from
	// the live scheduler's.
	ErrShapeMismatch = errors.New("toggler: pin count does not match scheduler")

	// ErrIndexOutOfRange is returned for a pin index >= the pin count.
	ErrIndexOutOfRange = errors.New("toggler: pin index out of range")

	// ErrInvalidRate is returned for a rate outside OFF, SLOW, MEDIUM, FAST, MAX.
	ErrInvalidRate = errors.New("toggler: invalid rate")

	// ErrInvalidConfig is returned by Initialize for an unusable Config.
	ErrInvalidConfig = errors.New("toggler: invalid config")
)
