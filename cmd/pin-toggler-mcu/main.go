//go:build tinygo

// Command pin-toggler-mcu runs the toggle scheduler on a microcontroller,
// blinking the board LED and stepping it through every rate.
package main

import (
	"machine"
	"time"

	"github.com/sweeney/pin-toggler/internal/gpio"
	"github.com/sweeney/pin-toggler/internal/timer"
	"github.com/sweeney/pin-toggler/internal/toggler"
)

// boardPins binds gpio.Pin handles to machine pins. The handle is the
// machine pin number.
type boardPins struct {
	levels map[gpio.Pin]gpio.Level
}

func (b *boardPins) ConfigureOutput(pin gpio.Pin) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	b.levels[pin] = gpio.Low
	return nil
}

func (b *boardPins) WriteLevel(pin gpio.Pin, level gpio.Level) {
	machine.Pin(pin).Set(bool(level))
	b.levels[pin] = level
}

func (b *boardPins) ReadLevel(pin gpio.Pin) gpio.Level {
	return b.levels[pin]
}

func (b *boardPins) Close() error {
	for pin := range b.levels {
		machine.Pin(pin).Low()
	}
	return nil
}

// step is how long the LED stays at each rate.
const step = 4 * time.Second

func main() {
	pins := &boardPins{levels: make(map[gpio.Pin]gpio.Level)}
	led := gpio.Pin(machine.LED)

	// Ticks come from a goroutine; Mask is the Ticker's lock, not the
	// interrupt controller.
	err := toggler.Shape(1).Initialize(toggler.Config{
		Pins:    pins,
		Timer:   timer.NewTicker(),
		Handles: []gpio.Pin{led},
	})
	if err != nil {
		println("init:", err.Error())
		for {
			time.Sleep(time.Second)
		}
	}

	for {
		for _, r := range toggler.Rates {
			if err := toggler.Shape(1).SetRate(0, r); err != nil {
				println("set rate:", err.Error())
			}
			time.Sleep(step)
		}
	}
}
