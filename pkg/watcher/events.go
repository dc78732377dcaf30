package watcher

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventPriceUpdated     EventType = "price_updated"
	EventBalanceUpdated   EventType = "balance_updated"
	EventBalanceFailed    EventType = "balance_failed"
	EventRefreshCompleted EventType = "refresh_completed"
)

// Event represents a monitoring event.
type Event struct {
	Type EventType
	Data interface{}
}

// Subscriber is a channel that receives events.
type Subscriber chan Event
