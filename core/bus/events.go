package bus

// Event is a transport notification. The set of variants is closed: Connected,
// Disconnected, MessageReceived and PublishAck. Consumers switch on the
// concrete type.
type Event interface{ isEvent() }

// Connected signals that the bus session is established. Subscriptions have
// already been restored when this event is delivered.
type Connected struct{}

// Disconnected signals that the bus session dropped. Err carries the transport
// reason and may be nil on a clean disconnect.
type Disconnected struct{ Err error }

// MessageReceived carries one inbound message from a subscribed topic.
type MessageReceived struct {
	Topic   string
	Payload []byte
}

// PublishAck reports the outcome of one publish attempt. The ID is assigned by
// the transport; acks exist for observability, the publish call itself already
// returned the outcome to its caller.
type PublishAck struct {
	ID string
	OK bool
}

func (Connected) isEvent()       {}
func (Disconnected) isEvent()    {}
func (MessageReceived) isEvent() {}
func (PublishAck) isEvent()      {}
