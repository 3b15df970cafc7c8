//go:build linux

package gpio

import (
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// RealButton reads a push button from actual hardware using the Linux GPIO
// character device.
type RealButton struct {
	chip  *gpiocdev.Chip
	line  *gpiocdev.Line
	edges chan struct{}
}

// NewRealButton requests pin on chip as a pulled-up input reporting both
// edges. A non-zero debounce enables the kernel debounce filter.
func NewRealButton(chipName string, pin int, debounce time.Duration) (*RealButton, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	b := &RealButton{
		chip:  chip,
		edges: make(chan struct{}, 1),
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(b.handleEvent),
	}
	if debounce > 0 {
		opts = append(opts, gpiocdev.WithDebounce(debounce))
	}

	line, err := chip.RequestLine(pin, opts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}
	b.line = line
	return b, nil
}

func (b *RealButton) handleEvent(gpiocdev.LineEvent) {
	notify(b.edges)
}

// Level returns the raw line value.
func (b *RealButton) Level() (int, error) {
	v, err := b.line.Value()
	if err != nil {
		return 0, fmt.Errorf("read button pin: %w", err)
	}
	return v, nil
}

// Edges receives one value per pending batch of edges.
func (b *RealButton) Edges() <-chan struct{} {
	return b.edges
}

// Close releases GPIO resources.
func (b *RealButton) Close() error {
	var errs []error
	if b.line != nil {
		if err := b.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealLED drives an LED from an output line.
type RealLED struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealLED requests pin on chip as an output, initially low.
func NewRealLED(chipName string, pin int) (*RealLED, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request LED pin %d: %w", pin, err)
	}
	return &RealLED{chip: chip, line: line}, nil
}

// SetValue drives the line.
func (l *RealLED) SetValue(value int) error {
	return l.line.SetValue(value)
}

// Close releases GPIO resources.
// Reconfigures the pin to input with pull-down (matching Pi boot defaults)
// so the LED is dark while the daemon is not running.
func (l *RealLED) Close() error {
	var errs []error
	if l.line != nil {
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure LED pin: %w", err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close LED pin: %w", err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
