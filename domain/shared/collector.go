package shared

// EventCollector buffers the events of one unit of work in emission order.
// It is owned by a single operation and is not safe for concurrent use.
type EventCollector struct {
	events []DomainEvent
}

func NewEventCollector() *EventCollector {
	return &EventCollector{}
}

func (c *EventCollector) AddEvent(event DomainEvent) {
	c.events = append(c.events, event)
}

func (c *EventCollector) AddEvents(events ...DomainEvent) {
	c.events = append(c.events, events...)
}

// GetEvents returns a snapshot; events added later are not visible through it.
func (c *EventCollector) GetEvents() []DomainEvent {
	out := make([]DomainEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *EventCollector) Len() int {
	return len(c.events)
}

// ClearEvents empties the buffer. Clearing an empty collector is a no-op.
func (c *EventCollector) ClearEvents() {
	c.events = nil
}
