package toggler

import (
	"fmt"
	"strconv"
	"strings"
)

// PhaseMax is the ceiling at which a pin's phase wraps and the pin toggles.
const PhaseMax = 8

// DefaultFrequency is the tick rate in Hz. A pin at Max toggles this often.
const DefaultFrequency = 8

// Rate is the increment added to a pin's phase on every tick. A pin at rate r
// toggles r times per PhaseMax ticks.
type Rate uint8

const (
	Off    Rate = 0
	Slow   Rate = 1
	Medium Rate = 2
	Fast   Rate = 4
	Max    Rate = PhaseMax
)

// Rates lists every valid rate, slowest first.
var Rates = []Rate{Off, Slow, Medium, Fast, Max}

// Valid reports whether r is one of the defined rates. Only divisors of
// PhaseMax (and zero) keep the toggle pattern from drifting.
func (r Rate) Valid() bool {
	switch r {
	case Off, Slow, Medium, Fast, Max:
		return true
	}
	return false
}

func (r Rate) String() string {
	switch r {
	case Off:
		return "OFF"
	case Slow:
		return "SLOW"
	case Medium:
		return "MEDIUM"
	case Fast:
		return "FAST"
	case Max:
		return "MAX"
	}
	return "Rate(" + strconv.Itoa(int(r)) + ")"
}

// TogglesPerSecond returns how often a pin at this rate changes level when
// ticked at hz.
func (r Rate) TogglesPerSecond(hz uint32) float64 {
	return float64(r) * float64(hz) / PhaseMax
}

// ParseRate accepts a rate name (any case) or its numeric increment.
func ParseRate(s string) (Rate, error) {
	s = strings.TrimSpace(s)
	for _, r := range Rates {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil && Rate(n).Valid() {
		return Rate(n), nil
	}
	return Off, fmt.Errorf("%w: %q", ErrInvalidRate, s)
}

// MarshalText encodes the rate by name.
func (r Rate) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRate, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText decodes a rate name or increment.
func (r *Rate) UnmarshalText(text []byte) error {
	v, err := ParseRate(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
