//go:build linux && !tinygo

package gpio

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// CdevDriver drives pins through the Linux GPIO character device.
type CdevDriver struct {
	chip  *gpiocdev.Chip
	lines map[Pin]*gpiocdev.Line

	mu      sync.Mutex
	lastErr error
}

// NewCdevDriver opens the named chip (e.g. "gpiochip0").
func NewCdevDriver(chipName string) (*CdevDriver, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("pin-toggler"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	return &CdevDriver{
		chip:  chip,
		lines: make(map[Pin]*gpiocdev.Line),
	}, nil
}

// ConfigureOutput requests the line as an output, initially inactive.
func (d *CdevDriver) ConfigureOutput(pin Pin) error {
	if _, ok := d.lines[pin]; ok {
		return nil
	}
	line, err := d.chip.RequestLine(int(pin), gpiocdev.AsOutput(0))
	if err != nil {
		return fmt.Errorf("request pin %d: %w", pin, err)
	}
	d.lines[pin] = line
	return nil
}

// WriteLevel sets the line value.
func (d *CdevDriver) WriteLevel(pin Pin, level Level) {
	line, ok := d.lines[pin]
	if !ok {
		d.setErr(fmt.Errorf("write pin %d: %w", pin, ErrNotConfigured))
		return
	}
	v := 0
	if level {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		d.setErr(fmt.Errorf("write pin %d: %w", pin, err))
	}
}

// ReadLevel returns the current line value. Read failures report Low.
func (d *CdevDriver) ReadLevel(pin Pin) Level {
	line, ok := d.lines[pin]
	if !ok {
		d.setErr(fmt.Errorf("read pin %d: %w", pin, ErrNotConfigured))
		return Low
	}
	v, err := line.Value()
	if err != nil {
		d.setErr(fmt.Errorf("read pin %d: %w", pin, err))
		return Low
	}
	return v != 0
}

// LastError returns and clears the most recent I/O failure.
func (d *CdevDriver) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.lastErr
	d.lastErr = nil
	return err
}

func (d *CdevDriver) setErr(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}

// Close releases GPIO resources.
// Lines are reconfigured to input with pull-down (matching Pi boot defaults)
// before closing so LEDs are not left lit across a reboot.
func (d *CdevDriver) Close() error {
	var errs []error

	for pin, line := range d.lines {
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", pin, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pin %d: %w", pin, err))
		}
	}
	d.lines = make(map[Pin]*gpiocdev.Line)
	if d.chip != nil {
		if err := d.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		d.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
