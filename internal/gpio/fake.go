package gpio

import "sync"

// FakeButton is a test double whose level is set by the test.
type FakeButton struct {
	mu    sync.Mutex
	level int
	edges chan struct{}

	// Closed tracks if Close was called
	Closed bool

	// LevelError, if set, will be returned by Level()
	LevelError error
}

// NewFakeButton creates a released FakeButton.
func NewFakeButton() *FakeButton {
	return &FakeButton{
		level: 1,
		edges: make(chan struct{}, 1),
	}
}

// Press drives the line low and raises an edge.
func (f *FakeButton) Press() {
	f.SetLevel(0)
	notify(f.edges)
}

// Release drives the line high and raises an edge.
func (f *FakeButton) Release() {
	f.SetLevel(1)
	notify(f.edges)
}

// SetLevel changes the line without raising an edge.
func (f *FakeButton) SetLevel(level int) {
	f.mu.Lock()
	f.level = level
	f.mu.Unlock()
}

// Level returns the scripted level.
func (f *FakeButton) Level() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LevelError != nil {
		return 0, f.LevelError
	}
	return f.level, nil
}

// Edges receives pending edges.
func (f *FakeButton) Edges() <-chan struct{} {
	return f.edges
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.Closed = true
	return nil
}

// FakeLED records every value written to it.
type FakeLED struct {
	mu sync.Mutex

	// Values contains every value passed to SetValue.
	Values []int

	// Closed tracks if Close was called
	Closed bool

	// SetError, if set, will be returned by SetValue()
	SetError error
}

// NewFakeLED creates a FakeLED.
func NewFakeLED() *FakeLED {
	return &FakeLED{}
}

// SetValue records value.
func (f *FakeLED) SetValue(value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.Values = append(f.Values, value)
	return nil
}

// Value returns the last written value, or 0.
func (f *FakeLED) Value() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Values) == 0 {
		return 0
	}
	return f.Values[len(f.Values)-1]
}

// Close marks the LED as closed.
func (f *FakeLED) Close() error {
	f.Closed = true
	return nil
}
