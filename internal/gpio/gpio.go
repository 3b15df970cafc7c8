// Package gpio provides the button input and LED output with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Button is an edge-triggered input line.
type Button interface {
	// Level returns the raw line value: 0 while pressed, 1 while released
	// (pull-up wiring).
	Level() (int, error)

	// Edges receives one value per batch of edges not yet handled. The
	// channel holds at most one pending resume.
	Edges() <-chan struct{}

	// Close releases GPIO resources.
	Close() error
}

// LED is a single digital output line.
type LED interface {
	SetValue(value int) error
	Close() error
}

// Defaults (BCM numbering on gpiochip0).
const (
	DefaultChip      = "gpiochip0"
	DefaultPinLED    = 8
	DefaultPinButton = 9
)

// notify performs a non-blocking send into a single-slot channel. It is the
// only work done in edge callbacks.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
