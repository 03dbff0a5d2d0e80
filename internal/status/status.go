// Package status provides a thread-safe status tracker for the pin-toggler daemon.
// It is read by the HTTP handlers, the metrics collector and heartbeat events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/pin-toggler/internal/toggler"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	FrequencyHz uint32
	RefreshMs   int64
	HeartbeatMs int64
	Backend     string
	Chip        string
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Pins          []toggler.PinState
	Ticks         uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTDropped   uint64 // events lost while the broker was unreachable
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether the scheduler has been sampled at least once.
func (s Snapshot) Ready() bool {
	return len(s.Pins) > 0
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the latest pin states and tick count.
func (t *Tracker) Update(pins []toggler.PinState, ticks uint64) {
	cp := append([]toggler.PinState(nil), pins...)
	t.mu.Lock()
	t.snap.Pins = cp
	t.snap.Ticks = ticks
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTDropped records how many MQTT events have been dropped.
func (t *Tracker) SetMQTTDropped(n uint64) {
	t.mu.Lock()
	t.snap.MQTTDropped = n
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Pins = append([]toggler.PinState(nil), t.snap.Pins...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
