// Command pin-toggler blinks GPIO pins at per-pin rates driven by a periodic
// tick, with rate control over MQTT and HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/pin-toggler/internal/gpio"
	"github.com/sweeney/pin-toggler/internal/metrics"
	"github.com/sweeney/pin-toggler/internal/mqtt"
	"github.com/sweeney/pin-toggler/internal/status"
	"github.com/sweeney/pin-toggler/internal/timer"
	"github.com/sweeney/pin-toggler/internal/toggler"
	"github.com/sweeney/pin-toggler/internal/web"
)

type config struct {
	pins      []int
	chip      string
	backend   string
	freq      uint32
	rates     []string
	broker    string
	clientID  string
	topic     string
	httpAddr  string
	heartbeat time.Duration
	refresh   time.Duration
	level     string
}

func main() {
	var cfg config
	pflag.IntSliceVarP(&cfg.pins, "pins", "p", []int{gpio.DefaultPinRed, gpio.DefaultPinAmber, gpio.DefaultPinGreen}, "GPIO line offsets to drive, in index order")
	pflag.StringVar(&cfg.chip, "chip", gpio.DefaultChip, "GPIO character device (cdev backend)")
	pflag.StringVar(&cfg.backend, "backend", "cdev", "GPIO backend: cdev or sysfs")
	pflag.Uint32Var(&cfg.freq, "freq", toggler.DefaultFrequency, "Tick frequency in Hz")
	pflag.StringArrayVarP(&cfg.rates, "rate", "r", nil, "Initial rate as INDEX=RATE (repeatable), e.g. 0=MEDIUM")
	pflag.StringVar(&cfg.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	pflag.StringVar(&cfg.clientID, "client-id", "pin-toggler", "MQTT client ID")
	pflag.StringVar(&cfg.topic, "topic", mqtt.DefaultTopicBase, "MQTT topic prefix")
	pflag.StringVar(&cfg.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	pflag.DurationVar(&cfg.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	pflag.DurationVar(&cfg.refresh, "refresh", 250*time.Millisecond, "Status refresh interval")
	pflag.StringVar(&cfg.level, "level", "info", "Log level")
	pflag.Parse()

	log := newLogger(cfg.level)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

func run(cfg config, log zerolog.Logger) error {
	if cfg.refresh <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %v", cfg.refresh)
	}
	handles, err := parsePins(cfg.pins)
	if err != nil {
		return err
	}
	initial, err := parseRates(cfg.rates, len(handles))
	if err != nil {
		return err
	}

	driver, err := newDriver(cfg.backend, cfg.chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer driver.Close()

	ticker := timer.NewTicker()
	defer ticker.Close()

	if err := toggler.Initialize(toggler.Config{
		Pins:      driver,
		Timer:     ticker,
		Handles:   handles,
		Frequency: cfg.freq,
	}); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched, err := toggler.Current()
	if err != nil {
		return err
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		FrequencyHz: sched.Frequency(),
		RefreshMs:   cfg.refresh.Milliseconds(),
		HeartbeatMs: cfg.heartbeat.Milliseconds(),
		Backend:     cfg.backend,
		Chip:        cfg.chip,
		Broker:      cfg.broker,
		HTTPAddr:    cfg.httpAddr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.Update(sched.Pins(), sched.Ticks())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(tracker)
	if err := m.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	ctl := &rateController{
		sched:   sched,
		tracker: tracker,
		metrics: m,
		log:     log,
		now:     time.Now,
	}

	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	var drops mqtt.DropReporter
	if cfg.broker != "" {
		p := mqtt.NewRealPublisher(mqtt.Options{
			Broker:    cfg.broker,
			ClientID:  cfg.clientID,
			Topics:    mqtt.NewTopics(cfg.topic),
			OnCommand: ctl.handleCommand,
			Log:       log.With().Str("component", "mqtt").Logger(),
		})
		defer p.Close()
		publisher, mqttStatus, drops = p, p, p
		ctl.setPublisher(p)
	}

	for _, a := range initial {
		if err := ctl.apply(sourceFlag, a.index, a.rate); err != nil {
			return fmt.Errorf("initial rate: %w", err)
		}
	}

	publishSystem(publisher, tracker, mqttStatus, log, "STARTUP", "", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.httpAddr != "" {
		srv := web.New(web.Options{
			Addr:    cfg.httpAddr,
			Tracker: tracker,
			Setter:  ctl.from(sourceHTTP),
			Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			Log:     log.With().Str("component", "http").Logger(),
		})
		g.Go(func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
		log.Info().Str("addr", cfg.httpAddr).Msg("http status server listening")
	}

	log.Info().
		Ints("pins", cfg.pins).
		Uint32("freq", sched.Frequency()).
		Str("backend", cfg.backend).
		Str("broker", cfg.broker).
		Dur("heartbeat", cfg.heartbeat).
		Msg("started")

	refresh := time.NewTicker(cfg.refresh)
	defer refresh.Stop()

	var heartbeat <-chan time.Time
	if cfg.heartbeat > 0 {
		hb := time.NewTicker(cfg.heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g.Go(func() error {
		defer cancel()
		return runLoop(gctx, loopDeps{
			state:      sched,
			publisher:  publisher,
			mqttStatus: mqttStatus,
			drops:      drops,
			tracker:    tracker,
			log:        log,
			now:        time.Now,
		}, refresh.C, heartbeat, sigCh)
	})

	return g.Wait()
}

func newDriver(backend, chip string) (gpio.Driver, error) {
	switch backend {
	case "cdev":
		return gpio.NewCdevDriver(chip)
	case "sysfs":
		return gpio.NewSysfsDriver(), nil
	}
	return nil, fmt.Errorf("unknown backend %q (want cdev or sysfs)", backend)
}

// stateSource is the part of the scheduler the run loop reads.
type stateSource interface {
	Pins() []toggler.PinState
	Ticks() uint64
}

type loopDeps struct {
	state      stateSource
	publisher  mqtt.Publisher // nil when MQTT is disabled
	mqttStatus mqtt.ConnectionStatus
	drops      mqtt.DropReporter
	tracker    *status.Tracker
	log        zerolog.Logger
	now        func() time.Time
}

// runLoop refreshes the tracker on every refresh tick, publishes heartbeats,
// and publishes SHUTDOWN when a signal arrives.
func runLoop(ctx context.Context, d loopDeps, refresh, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case s := <-sig:
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			d.log.Info().Str("signal", signalName).Msg("shutting down")
			d.tracker.Update(d.state.Pins(), d.state.Ticks())
			publishSystem(d.publisher, d.tracker, d.mqttStatus, d.log, "SHUTDOWN", signalName, d.now())
			return nil

		case <-refresh:
			d.tracker.Update(d.state.Pins(), d.state.Ticks())
			if d.mqttStatus != nil {
				d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
			}
			if d.drops != nil {
				d.tracker.SetMQTTDropped(d.drops.Dropped().Total())
			}

		case <-heartbeat:
			if net := readNetworkInfo(); net != nil {
				d.tracker.SetNetwork(net)
			}
			d.tracker.Update(d.state.Pins(), d.state.Ticks())
			snap := publishSystem(d.publisher, d.tracker, d.mqttStatus, d.log, "HEARTBEAT", "", d.now())
			d.log.Info().
				Dur("uptime", snap.Uptime().Truncate(time.Second)).
				Uint64("ticks", snap.Ticks).
				Msg("heartbeat")
		}
	}
}

// publishSystem publishes a lifecycle event carrying a full status snapshot.
// The snapshot is returned for logging.
func publishSystem(pub mqtt.Publisher, tracker *status.Tracker, conn mqtt.ConnectionStatus, log zerolog.Logger, event, reason string, now time.Time) status.Snapshot {
	if conn != nil {
		tracker.SetMQTTConnected(conn.IsConnected())
	}
	snap := tracker.Snapshot()
	if pub == nil {
		return snap
	}
	err := pub.PublishSystem(mqtt.SystemEvent{
		Timestamp:  now,
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		log.Warn().Err(err).Str("event", event).Msg("failed to publish system event")
	} else {
		log.Debug().Str("event", event).Msg("published system event")
	}
	return snap
}

const (
	sourceFlag = "flag"
	sourceMQTT = "mqtt"
	sourceHTTP = "http"
)

// rateSchedule is the part of the scheduler rate changes go through.
type rateSchedule interface {
	stateSource
	SetRate(index int, rate toggler.Rate) error
}

// rateController applies rate changes from any source and reports them.
type rateController struct {
	sched   rateSchedule
	tracker *status.Tracker
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time

	mu  sync.Mutex
	pub mqtt.Publisher
}

func (c *rateController) setPublisher(p mqtt.Publisher) {
	c.mu.Lock()
	c.pub = p
	c.mu.Unlock()
}

func (c *rateController) publisher() mqtt.Publisher {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pub
}

func (c *rateController) apply(source string, index int, rate toggler.Rate) error {
	err := c.sched.SetRate(index, rate)
	if c.metrics != nil {
		c.metrics.ObserveRateChange(source, err)
	}
	if err != nil {
		return err
	}

	pins := c.sched.Pins()
	c.tracker.Update(pins, c.sched.Ticks())
	c.log.Info().Str("source", source).Int("index", index).Int("pin", int(pins[index].Pin)).Str("rate", rate.String()).Msg("rate changed")

	if pub := c.publisher(); pub != nil {
		err := pub.PublishRate(mqtt.RateEvent{
			Timestamp: c.now(),
			Index:     index,
			Pin:       pins[index].Pin,
			Rate:      rate,
			Source:    source,
		})
		if err != nil {
			c.log.Warn().Err(err).Msg("failed to publish rate event")
		}
	}
	return nil
}

// handleCommand is the MQTT command callback.
func (c *rateController) handleCommand(payload []byte) {
	if _, err := mqtt.Dispatch(c.from(sourceMQTT), payload); err != nil {
		c.log.Warn().Err(err).Str("payload", string(payload)).Msg("rejected mqtt command")
	}
}

// from returns a setter that attributes changes to source.
func (c *rateController) from(source string) sourceSetter {
	return sourceSetter{c: c, source: source}
}

type sourceSetter struct {
	c      *rateController
	source string
}

func (s sourceSetter) SetRate(index int, rate toggler.Rate) error {
	return s.c.apply(s.source, index, rate)
}

type rateAssignment struct {
	index int
	rate  toggler.Rate
}

// parseRates parses INDEX=RATE flag values against a scheduler of n pins.
func parseRates(specs []string, n int) ([]rateAssignment, error) {
	out := make([]rateAssignment, 0, len(specs))
	for _, spec := range specs {
		idx, name, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("--rate %q: want INDEX=RATE", spec)
		}
		i, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil {
			return nil, fmt.Errorf("--rate %q: bad index: %w", spec, err)
		}
		if i < 0 || i >= n {
			return nil, fmt.Errorf("--rate %q: %w", spec, toggler.ErrIndexOutOfRange)
		}
		r, err := toggler.ParseRate(name)
		if err != nil {
			return nil, fmt.Errorf("--rate %q: %w", spec, err)
		}
		out = append(out, rateAssignment{index: i, rate: r})
	}
	return out, nil
}

// parsePins converts the --pins values to handles.
func parsePins(pins []int) ([]gpio.Pin, error) {
	if len(pins) == 0 {
		return nil, errors.New("--pins: at least one pin is required")
	}
	handles := make([]gpio.Pin, len(pins))
	for i, p := range pins {
		if p < 0 {
			return nil, fmt.Errorf("--pins: negative pin %d", p)
		}
		handles[i] = gpio.Pin(p)
	}
	return handles, nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
