package mqtt

import "github.com/rs/zerolog"

// pending is a serialized message held for replay after reconnection.
type pending struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox is a fixed-capacity FIFO of messages published while the broker was
// unreachable. Once full the oldest message is overwritten. Not safe for
// concurrent use.
type outbox struct {
	buf     []pending
	head    int // next write position
	count   int
	dropped int // overwritten since the last drain
	logger  zerolog.Logger
}

func newOutbox(capacity int, logger zerolog.Logger) *outbox {
	return &outbox{buf: make([]pending, capacity), logger: logger}
}

func (o *outbox) push(msg pending) {
	if len(o.buf) == 0 {
		o.dropped++
		return
	}
	if o.count == len(o.buf) {
		if o.dropped == 0 {
			o.logger.Warn().Int("capacity", len(o.buf)).Msg("offline buffer full, dropping oldest")
		}
		o.dropped++
		o.buf[o.head] = msg
		o.head = (o.head + 1) % len(o.buf)
		return
	}
	o.buf[o.head] = msg
	o.head = (o.head + 1) % len(o.buf)
	o.count++
}

// drain returns the held messages oldest first and empties the outbox.
func (o *outbox) drain() []pending {
	if o.count == 0 {
		o.dropped = 0
		return nil
	}
	out := make([]pending, o.count)
	start := (o.head - o.count + len(o.buf)) % len(o.buf)
	for i := range out {
		out[i] = o.buf[(start+i)%len(o.buf)]
	}
	if o.dropped > 0 {
		o.logger.Info().Int("dropped", o.dropped).Int("replayed", o.count).Msg("offline buffer drained")
	}
	o.count = 0
	o.head = 0
	o.dropped = 0
	return out
}

func (o *outbox) len() int {
	return o.count
}
