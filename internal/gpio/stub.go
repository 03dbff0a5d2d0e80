//go:build !linux && !tinygo

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// CdevDriver is not available on non-Linux platforms.
type CdevDriver struct{}

// NewCdevDriver returns an error on non-Linux platforms.
func NewCdevDriver(chipName string) (*CdevDriver, error) {
	return nil, errUnsupported
}

func (d *CdevDriver) ConfigureOutput(pin Pin) error { return errUnsupported }
func (d *CdevDriver) WriteLevel(pin Pin, level Level) {}
func (d *CdevDriver) ReadLevel(pin Pin) Level { return Low }
func (d *CdevDriver) LastError() error { return nil }
func (d *CdevDriver) Close() error { return nil }

// SysfsDriver is not available on non-Linux platforms.
type SysfsDriver struct{}

// NewSysfsDriver returns a driver whose pins cannot be configured.
func NewSysfsDriver() *SysfsDriver {
	return &SysfsDriver{}
}

func (d *SysfsDriver) ConfigureOutput(pin Pin) error { return errUnsupported }
func (d *SysfsDriver) WriteLevel(pin Pin, level Level) {}
func (d *SysfsDriver) ReadLevel(pin Pin) Level { return Low }
func (d *SysfsDriver) LastError() error { return nil }
func (d *SysfsDriver) Close() error { return nil }
