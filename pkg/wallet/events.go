package wallet

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventStateChanged EventType = "state_changed"
)

// Event is sent to subscribers after a successful dispatch.
type Event struct {
	Type   EventType `json:"type"`
	Action Action    `json:"action"`
	State  State     `json:"state"`
}

// Subscriber is a channel that receives events.
type Subscriber chan Event
