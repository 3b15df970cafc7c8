//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealButton is not available on non-Linux platforms.
type RealButton struct{}

// NewRealButton returns an error on non-Linux platforms.
func NewRealButton(chipName string, pin int, debounce time.Duration) (*RealButton, error) {
	return nil, errUnsupported
}

// Level is not implemented on non-Linux platforms.
func (b *RealButton) Level() (int, error) {
	return 0, errors.New("gpio: not supported")
}

// Edges never fires on non-Linux platforms.
func (b *RealButton) Edges() <-chan struct{} {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (b *RealButton) Close() error {
	return nil
}

// RealLED is not available on non-Linux platforms.
type RealLED struct{}

// NewRealLED returns an error on non-Linux platforms.
func NewRealLED(chipName string, pin int) (*RealLED, error) {
	return nil, errUnsupported
}

// SetValue is not implemented on non-Linux platforms.
func (l *RealLED) SetValue(value int) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (l *RealLED) Close() error {
	return nil
}
