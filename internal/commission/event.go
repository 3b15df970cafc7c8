package commission

// EventType names a lifecycle event worth reporting.
type EventType string

const (
	EventInitFailed     EventType = "INIT_FAILED"
	EventJoined         EventType = "JOINED"
	EventSteeringFailed EventType = "STEERING_FAILED"
	EventFactoryReset   EventType = "FACTORY_RESET"
)

// Event is emitted to observers after a transition.
type Event struct {
	Type     EventType
	State    State
	Channel  uint8
	PanID    uint16
	ExtPanID [8]byte
	Err      error
}

// event must be called with mu held.
func (m *Machine) event(t EventType, err error) Event {
	return Event{
		Type:     t,
		State:    m.state,
		Channel:  m.channel,
		PanID:    m.panID,
		ExtPanID: m.extPanID,
		Err:      err,
	}
}
