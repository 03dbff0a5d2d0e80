package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sweeney/pin-toggler/internal/gpio"
	"github.com/sweeney/pin-toggler/internal/status"
	"github.com/sweeney/pin-toggler/internal/toggler"
)

func newTracker() *status.Tracker {
	tr := status.NewTracker(time.Now(), status.Config{FrequencyHz: 8})
	tr.Update([]toggler.PinState{
		{Index: 0, Pin: 13, Rate: toggler.Off, Level: gpio.Low},
		{Index: 1, Pin: 18, Rate: toggler.Fast, Level: gpio.High, Toggles: 9},
	}, 24)
	tr.SetMQTTConnected(true)
	tr.SetMQTTDropped(3)
	return tr
}

func TestCollectorMetricCounts(t *testing.T) {
	m := New(newTracker())

	if n := testutil.CollectAndCount(m.collector, "pin_toggler_ticks_total"); n != 1 {
		t.Errorf("ticks_total series: got %d, want 1", n)
	}
	if n := testutil.CollectAndCount(m.collector, "pin_toggler_toggles_total"); n != 2 {
		t.Errorf("toggles_total series: got %d, want 2", n)
	}
	if n := testutil.CollectAndCount(m.collector); n != 9 {
		t.Errorf("total series: got %d, want 9", n)
	}
}

func TestCollectorValues(t *testing.T) {
	m := New(newTracker())

	expected := `
# HELP pin_toggler_toggles_total Total number of level inversions per pin
# TYPE pin_toggler_toggles_total counter
pin_toggler_toggles_total{index="0",pin="13"} 0
pin_toggler_toggles_total{index="1",pin="18"} 9
# HELP pin_toggler_rate Configured phase increment per pin (0, 1, 2, 4, 8)
# TYPE pin_toggler_rate gauge
pin_toggler_rate{index="0",pin="13"} 0
pin_toggler_rate{index="1",pin="18"} 4
`
	err := testutil.CollectAndCompare(m.collector, strings.NewReader(expected),
		"pin_toggler_toggles_total", "pin_toggler_rate")
	if err != nil {
		t.Error(err)
	}
}

func TestObserveRateChange(t *testing.T) {
	m := New(newTracker())
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	m.ObserveRateChange("mqtt", nil)
	m.ObserveRateChange("mqtt", nil)
	m.ObserveRateChange("http", errors.New("bad index"))

	if got := testutil.ToFloat64(m.RateChanges.WithLabelValues("mqtt", "ok")); got != 2 {
		t.Errorf("mqtt/ok: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RateChanges.WithLabelValues("http", "error")); got != 1 {
		t.Errorf("http/error: got %v, want 1", got)
	}
}

func TestRegisterTwiceFails(t *testing.T) {
	m := New(newTracker())
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := m.Register(reg); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestCollectorReportsDroppedEvents(t *testing.T) {
	m := New(newTracker())

	expected := `
# HELP pin_toggler_mqtt_dropped_total Total number of MQTT events dropped while disconnected
# TYPE pin_toggler_mqtt_dropped_total counter
pin_toggler_mqtt_dropped_total 3
`
	if err := testutil.CollectAndCompare(m.collector, strings.NewReader(expected), "pin_toggler_mqtt_dropped_total"); err != nil {
		t.Error(err)
	}
}
