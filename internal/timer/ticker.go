package timer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Ticker is a Source backed by time.Ticker and a single goroutine.
// Mask holds the same lock the tick goroutine takes around the handler, so
// a tick never runs concurrently with a masked section or another tick.
// Ticks that fall behind are dropped by time.Ticker, which matches a
// hardware overflow flag that can only be pending once.
type Ticker struct {
	mask sync.Mutex

	mu      sync.Mutex // guards the fields below
	period  time.Duration
	handler func()
	armed   bool
	closed  bool
	stop    chan struct{}
	done    chan struct{}

	ticks atomic.Uint64
}

// NewTicker returns an unconfigured Ticker.
func NewTicker() *Ticker {
	return &Ticker{}
}

// Configure sets the tick frequency.
func (t *Ticker) Configure(hz uint32) error {
	if hz == 0 {
		return ErrZeroFrequency
	}
	if hz > MaxFrequency {
		return ErrFrequencyRange
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		return ErrAlreadyArmed
	}
	t.period = time.Second / time.Duration(hz)
	return nil
}

// RegisterTickHandler sets the tick handler. Replacing it after Arm takes
// effect from the next tick.
func (t *Ticker) RegisterTickHandler(fn func()) {
	t.mu.Lock()
	t.handler = fn
	t.mu.Unlock()
}

// Arm starts the tick goroutine.
func (t *Ticker) Arm() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.closed:
		return ErrClosed
	case t.armed:
		return ErrAlreadyArmed
	case t.period == 0:
		return ErrNotConfigured
	case t.handler == nil:
		return ErrNoHandler
	}
	t.armed = true
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.run(time.NewTicker(t.period), t.stop, t.done)
	return nil
}

func (t *Ticker) run(tk *time.Ticker, stop, done chan struct{}) {
	defer close(done)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			t.mu.Lock()
			h := t.handler
			t.mu.Unlock()

			t.mask.Lock()
			h()
			t.mask.Unlock()
			t.ticks.Add(1)
		}
	}
}

// Mask blocks tick delivery.
func (t *Ticker) Mask() {
	t.mask.Lock()
}

// Unmask resumes tick delivery.
func (t *Ticker) Unmask() {
	t.mask.Unlock()
}

// Ticks returns the number of ticks delivered so far.
func (t *Ticker) Ticks() uint64 {
	return t.ticks.Load()
}

// Period returns the configured tick period.
func (t *Ticker) Period() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.period
}

// Close stops the tick goroutine and waits for an in-flight tick to finish.
// Only process shutdown should call it.
func (t *Ticker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	armed := t.armed
	stop, done := t.stop, t.done
	t.mu.Unlock()

	if armed {
		close(stop)
		<-done
	}
	return nil
}
