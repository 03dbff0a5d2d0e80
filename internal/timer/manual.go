package timer

import "sync"

// Manual is a deterministic Source for tests. Ticks only happen when Fire
// is called.
type Manual struct {
	mu sync.Mutex

	// Hz is the configured frequency.
	Hz uint32

	// Armed reports whether Arm succeeded.
	Armed bool

	// Calls records Source method calls in order
	// ("configure", "register", "arm", "mask", "unmask").
	Calls []string

	// ConfigureError and ArmError, if set, are returned by Configure and Arm.
	ConfigureError error
	ArmError       error

	handler func()
	masked  int
	pending bool
	fired   int
}

// NewManual returns an unconfigured Manual source.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Configure(hz uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "configure")
	if m.ConfigureError != nil {
		return m.ConfigureError
	}
	if hz == 0 {
		return ErrZeroFrequency
	}
	m.Hz = hz
	return nil
}

func (m *Manual) RegisterTickHandler(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "register")
	m.handler = fn
}

func (m *Manual) Arm() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "arm")
	switch {
	case m.ArmError != nil:
		return m.ArmError
	case m.Armed:
		return ErrAlreadyArmed
	case m.Hz == 0:
		return ErrNotConfigured
	case m.handler == nil:
		return ErrNoHandler
	}
	m.Armed = true
	return nil
}

func (m *Manual) Mask() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "mask")
	m.masked++
}

// Unmask delivers a tick that arrived while masked.
func (m *Manual) Unmask() {
	m.mu.Lock()
	m.Calls = append(m.Calls, "unmask")
	if m.masked > 0 {
		m.masked--
	}
	deliver := m.masked == 0 && m.pending
	if deliver {
		m.pending = false
	}
	h := m.handler
	m.mu.Unlock()

	if deliver && h != nil {
		m.tick(h)
	}
}

// Fire simulates n ticks. It returns the number delivered immediately;
// ticks fired while masked collapse into a single pending tick.
func (m *Manual) Fire(n int) int {
	delivered := 0
	for i := 0; i < n; i++ {
		m.mu.Lock()
		if !m.Armed || m.handler == nil {
			m.mu.Unlock()
			continue
		}
		if m.masked > 0 {
			m.pending = true
			m.mu.Unlock()
			continue
		}
		h := m.handler
		m.mu.Unlock()

		m.tick(h)
		delivered++
	}
	return delivered
}

func (m *Manual) tick(h func()) {
	h()
	m.mu.Lock()
	m.fired++
	m.mu.Unlock()
}

// Masked reports whether the source is currently masked.
func (m *Manual) Masked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.masked > 0
}

// Ticks returns the number of ticks delivered to the handler.
func (m *Manual) Ticks() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(m.fired)
}
