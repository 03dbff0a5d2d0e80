// Package metrics exposes toggler state to Prometheus.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/pin-toggler/internal/status"
)

const namespace = "pin_toggler"

// SnapshotSource provides the state reported at scrape time.
type SnapshotSource interface {
	Snapshot() status.Snapshot
}

// Metrics holds the collectors for one daemon.
type Metrics struct {
	// Rate changes by source ("mqtt", "http", "flag") and result ("ok", "error").
	RateChanges *prometheus.CounterVec

	collector *snapshotCollector
}

// New creates the collectors. Nothing is registered until Register.
func New(src SnapshotSource) *Metrics {
	rateChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_changes_total",
		Help:      "Total number of rate change requests",
	}, []string{"source", "result"})

	return &Metrics{
		RateChanges: rateChanges,
		collector:   newSnapshotCollector(src),
	}
}

// Register adds all collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if err := reg.Register(m.RateChanges); err != nil {
		return err
	}
	return reg.Register(m.collector)
}

// ObserveRateChange counts a rate change request.
func (m *Metrics) ObserveRateChange(source string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.RateChanges.WithLabelValues(source, result).Inc()
}

// snapshotCollector reads the tracker on every scrape so the tick path
// never touches Prometheus.
type snapshotCollector struct {
	src SnapshotSource

	ticks     *prometheus.Desc
	toggles   *prometheus.Desc
	rate      *prometheus.Desc
	level     *prometheus.Desc
	connected *prometheus.Desc
	dropped   *prometheus.Desc
}

func newSnapshotCollector(src SnapshotSource) *snapshotCollector {
	pinLabels := []string{"index", "pin"}
	return &snapshotCollector{
		src:       src,
		ticks:     prometheus.NewDesc(namespace+"_ticks_total", "Total number of timer ticks processed", nil, nil),
		toggles:   prometheus.NewDesc(namespace+"_toggles_total", "Total number of level inversions per pin", pinLabels, nil),
		rate:      prometheus.NewDesc(namespace+"_rate", "Configured phase increment per pin (0, 1, 2, 4, 8)", pinLabels, nil),
		level:     prometheus.NewDesc(namespace+"_level", "Current output level per pin (1 = high)", pinLabels, nil),
		connected: prometheus.NewDesc(namespace+"_mqtt_connected", "Whether the MQTT connection is up", nil, nil),
		dropped:   prometheus.NewDesc(namespace+"_mqtt_dropped_total", "Total number of MQTT events dropped while disconnected", nil, nil),
	}
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ticks
	ch <- c.toggles
	ch <- c.rate
	ch <- c.level
	ch <- c.connected
	ch <- c.dropped
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.src.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.ticks, prometheus.CounterValue, float64(snap.Ticks))
	ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, boolToFloat(snap.MQTTConnected))
	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(snap.MQTTDropped))
	for _, p := range snap.Pins {
		index, pin := strconv.Itoa(p.Index), strconv.Itoa(int(p.Pin))
		ch <- prometheus.MustNewConstMetric(c.toggles, prometheus.CounterValue, float64(p.Toggles), index, pin)
		ch <- prometheus.MustNewConstMetric(c.rate, prometheus.GaugeValue, float64(p.Rate), index, pin)
		ch <- prometheus.MustNewConstMetric(c.level, prometheus.GaugeValue, boolToFloat(bool(p.Level)), index, pin)
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
