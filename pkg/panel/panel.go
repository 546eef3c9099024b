package panel

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	blinkOn    = 100 * time.Millisecond
	blinkOff   = 100 * time.Millisecond
	blinkGap   = 500 * time.Millisecond
	blinkTrail = 1000 * time.Millisecond

	pollInterval = 50 * time.Millisecond
)

var hostOnce sync.Once
var hostErr error

func initHost() error {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	return hostErr
}

// LED is the status light on the front panel. A nil *LED ignores every call,
// so boards without one still boot.
type LED struct {
	mu    sync.Mutex
	pin   gpio.PinOut
	sleep func(time.Duration)
}

// OpenLED claims the named GPIO line for the status LED.
func OpenLED(name string) (*LED, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("failed to initialize GPIO host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("GPIO pin %s not found", name)
	}
	return NewLED(pin), nil
}

func NewLED(pin gpio.PinOut) *LED {
	return &LED{pin: pin, sleep: time.Sleep}
}

// Blink shows a fault: kind short flashes, a pause, then code short flashes.
func (l *LED) Blink(kind, code int) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.flash(kind); err != nil {
		return err
	}
	l.sleep(blinkGap)
	if err := l.flash(code); err != nil {
		return err
	}
	l.sleep(blinkTrail)
	return nil
}

func (l *LED) flash(times int) error {
	for i := 0; i < times; i++ {
		if err := l.pin.Out(gpio.High); err != nil {
			return fmt.Errorf("failed to drive LED: %w", err)
		}
		l.sleep(blinkOn)
		if err := l.pin.Out(gpio.Low); err != nil {
			return fmt.Errorf("failed to drive LED: %w", err)
		}
		l.sleep(blinkOff)
	}
	return nil
}

// Button is a push button wired between a GPIO line and ground.
type Button struct {
	pin   gpio.PinIn
	now   func() time.Time
	sleep func(time.Duration)
}

// OpenButton claims the named GPIO line as a pulled-up input.
func OpenButton(name string) (*Button, error) {
	if err := initHost(); err != nil {
		return nil, fmt.Errorf("failed to initialize GPIO host: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("GPIO pin %s not found", name)
	}
	return NewButton(pin)
}

func NewButton(pin gpio.PinIn) (*Button, error) {
	if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("failed to configure button: %w", err)
	}
	return &Button{pin: pin, now: time.Now, sleep: time.Sleep}, nil
}

// Pressed reports whether the button is down right now.
func (b *Button) Pressed() bool {
	if b == nil {
		return false
	}
	return b.pin.Read() == gpio.Low
}

// HeldFor reports whether the button stays down for the whole of d. It
// returns as soon as the button is seen released.
func (b *Button) HeldFor(d time.Duration) bool {
	if !b.Pressed() {
		return false
	}
	deadline := b.now().Add(d)
	for b.now().Before(deadline) {
		b.sleep(pollInterval)
		if !b.Pressed() {
			return false
		}
	}
	return true
}
