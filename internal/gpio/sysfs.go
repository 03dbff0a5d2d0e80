//go:build linux && !tinygo

package gpio

import (
	"fmt"
	"sync"

	"github.com/ecc1/gpio"
)

// SysfsDriver drives pins through the legacy /sys/class/gpio interface.
// Used on kernels that predate the character device.
type SysfsDriver struct {
	pins map[Pin]*sysfsPin

	mu      sync.Mutex
	lastErr error
}

type sysfsPin struct {
	out   gpio.OutputPin
	level Level // shadow of the last written level
}

// NewSysfsDriver returns a driver with no pins exported yet.
func NewSysfsDriver() *SysfsDriver {
	return &SysfsDriver{pins: make(map[Pin]*sysfsPin)}
}

// ConfigureOutput exports the pin as an active-high output driven low.
func (d *SysfsDriver) ConfigureOutput(pin Pin) error {
	if _, ok := d.pins[pin]; ok {
		return nil
	}
	out, err := gpio.Output(int(pin), false, false)
	if err != nil {
		return fmt.Errorf("export pin %d: %w", pin, err)
	}
	d.pins[pin] = &sysfsPin{out: out}
	return nil
}

// WriteLevel writes the pin value file.
func (d *SysfsDriver) WriteLevel(pin Pin, level Level) {
	p, ok := d.pins[pin]
	if !ok {
		d.setErr(fmt.Errorf("write pin %d: %w", pin, ErrNotConfigured))
		return
	}
	if err := p.out.Write(bool(level)); err != nil {
		d.setErr(fmt.Errorf("write pin %d: %w", pin, err))
		return
	}
	p.level = level
}

// ReadLevel returns the last level successfully written.
func (d *SysfsDriver) ReadLevel(pin Pin) Level {
	p, ok := d.pins[pin]
	if !ok {
		d.setErr(fmt.Errorf("read pin %d: %w", pin, ErrNotConfigured))
		return Low
	}
	return p.level
}

// LastError returns and clears the most recent I/O failure.
func (d *SysfsDriver) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.lastErr
	d.lastErr = nil
	return err
}

func (d *SysfsDriver) setErr(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}

// Close drives every exported pin low.
func (d *SysfsDriver) Close() error {
	var errs []error
	for pin, p := range d.pins {
		if err := p.out.Write(false); err != nil {
			errs = append(errs, fmt.Errorf("reset pin %d: %w", pin, err))
		}
	}
	d.pins = make(map[Pin]*sysfsPin)
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
