package toggler

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sweeney/pin-toggler/internal/gpio"
	"github.com/sweeney/pin-toggler/internal/timer"
)

// Config describes the pins and hardware a scheduler binds to.
type Config struct {
	// Pins drives the output pins.
	Pins gpio.Driver

	// Timer is the one periodic source the scheduler owns.
	Timer timer.Source

	// Handles are the pins to control, addressed by index in SetRate.
	Handles []gpio.Pin

	// Frequency is the tick rate in Hz. Zero means DefaultFrequency.
	Frequency uint32
}

func (c Config) frequency() uint32 {
	if c.Frequency == 0 {
		return DefaultFrequency
	}
	return c.Frequency
}

func (c Config) validate() error {
	if c.Pins == nil {
		return fmt.Errorf("%w: no pin driver", ErrInvalidConfig)
	}
	if c.Timer == nil {
		return fmt.Errorf("%w: no timing source", ErrInvalidConfig)
	}
	if len(c.Handles) == 0 {
		return fmt.Errorf("%w: no pins", ErrInvalidConfig)
	}
	seen := make(map[gpio.Pin]bool, len(c.Handles))
	for _, h := range c.Handles {
		if seen[h] {
			return fmt.Errorf("%w: pin %d listed twice", ErrInvalidConfig, h)
		}
		seen[h] = true
	}
	return nil
}

// Scheduler binds an Engine to the timing source. At most one exists per
// process; it lives until the process exits.
type Scheduler struct {
	engine *Engine
	pins   gpio.Driver
	timer  timer.Source
	freq   uint32
	ticks  atomic.Uint64
}

// PinState is an ordinary-context view of one pin.
type PinState struct {
	Index   int
	Pin     gpio.Pin
	Rate    Rate
	Level   gpio.Level
	Toggles uint32
}

var (
	instance atomic.Pointer[Scheduler]
	initMu   sync.Mutex
)

// Shape is the number of pins the calling code was written for. Operations
// through a Shape fail with ErrShapeMismatch if the live scheduler was built
// for a different count.
type Shape int

// Initialize configures every pin as an output driven low, arms the timing
// source, and installs the process-wide scheduler. Only the first successful
// call is honoured; later calls return ErrAlreadyInitialized.
//
// A failed call installs nothing but does not undo its hardware setup: pins
// configured before the failure stay claimed and driven low, and if Arm
// fails the tick handler stays registered on the source. Calling Initialize
// again with the same config is safe, as ConfigureOutput must accept a pin
// that is already an output and a later registration replaces the handler.
func (s Shape) Initialize(cfg Config) error {
	initMu.Lock()
	defer initMu.Unlock()

	if instance.Load() != nil {
		return ErrAlreadyInitialized
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	if len(cfg.Handles) != int(s) {
		return fmt.Errorf("%w: %d pins given, expected %d", ErrShapeMismatch, len(cfg.Handles), int(s))
	}

	for _, h := range cfg.Handles {
		if err := cfg.Pins.ConfigureOutput(h); err != nil {
			return fmt.Errorf("configure pin %d: %w", h, err)
		}
		cfg.Pins.WriteLevel(h, gpio.Low)
	}

	sched := &Scheduler{
		engine: NewEngine(cfg.Pins, cfg.Handles),
		pins:   cfg.Pins,
		timer:  cfg.Timer,
		freq:   cfg.frequency(),
	}

	cfg.Timer.Mask()
	defer cfg.Timer.Unmask()

	if err := cfg.Timer.Configure(sched.freq); err != nil {
		return fmt.Errorf("configure timer: %w", err)
	}
	cfg.Timer.RegisterTickHandler(sched.onTick)
	if err := cfg.Timer.Arm(); err != nil {
		return fmt.Errorf("arm timer: %w", err)
	}

	instance.Store(sched)
	return nil
}

// SetRate sets a pin's rate after checking the live scheduler has shape s.
func (s Shape) SetRate(index int, rate Rate) error {
	sched, err := s.Scheduler()
	if err != nil {
		return err
	}
	return sched.SetRate(index, rate)
}

// Scheduler returns the live scheduler if its pin count matches s.
func (s Shape) Scheduler() (*Scheduler, error) {
	sched := instance.Load()
	if sched == nil {
		return nil, ErrNotInitialized
	}
	if sched.Len() != int(s) {
		return nil, fmt.Errorf("%w: caller has %d pins, scheduler has %d", ErrShapeMismatch, int(s), sched.Len())
	}
	return sched, nil
}

// Initialize is Shape(len(cfg.Handles)).Initialize(cfg).
func Initialize(cfg Config) error {
	return Shape(len(cfg.Handles)).Initialize(cfg)
}

// SetRate sets a pin's rate on the live scheduler, whatever its shape.
func SetRate(index int, rate Rate) error {
	sched, err := Current()
	if err != nil {
		return err
	}
	return sched.SetRate(index, rate)
}

// Current returns the live scheduler.
func Current() (*Scheduler, error) {
	sched := instance.Load()
	if sched == nil {
		return nil, ErrNotInitialized
	}
	return sched, nil
}

// SetRate sets the toggle rate of pin index. The change is picked up on the
// next tick.
func (s *Scheduler) SetRate(index int, rate Rate) error {
	if index < 0 || index >= s.Len() {
		return fmt.Errorf("%w: %d (have %d pins)", ErrIndexOutOfRange, index, s.Len())
	}
	if !rate.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidRate, uint8(rate))
	}
	s.engine.SetRate(index, rate)
	return nil
}

// onTick is registered with the timing source and runs once per tick.
func (s *Scheduler) onTick() {
	s.engine.Step()
	s.ticks.Add(1)
}

// Len returns the number of pins.
func (s *Scheduler) Len() int {
	return s.engine.Len()
}

// Frequency returns the tick rate in Hz.
func (s *Scheduler) Frequency() uint32 {
	return s.freq
}

// Ticks returns the number of ticks processed.
func (s *Scheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// Rate returns the configured rate of pin index.
func (s *Scheduler) Rate(index int) (Rate, error) {
	if index < 0 || index >= s.Len() {
		return Off, fmt.Errorf("%w: %d (have %d pins)", ErrIndexOutOfRange, index, s.Len())
	}
	return s.engine.Rate(index), nil
}

// Pins returns the state of every pin. Levels are read with the timing
// source masked so no tick is half-applied.
func (s *Scheduler) Pins() []PinState {
	out := make([]PinState, s.Len())

	s.timer.Mask()
	defer s.timer.Unmask()

	for i := range out {
		pin := s.engine.Pin(i)
		out[i] = PinState{
			Index:   i,
			Pin:     pin,
			Rate:    s.engine.Rate(i),
			Level:   s.pins.ReadLevel(pin),
			Toggles: s.engine.Toggles(i),
		}
	}
	return out
}
