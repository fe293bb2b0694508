package bus

import "context"

// Transport is the pub/sub link to the telemetry bus. Implementations live
// under infra; the gateway, monitor and router only see this interface.
//
// Connect must respect the context deadline and must not auto-reconnect on
// its own: reconnection policy belongs to the connection monitor. Publish is
// synchronous and returns the send outcome. Events delivers connectivity
// changes and inbound messages on a single channel; delivery is non-blocking,
// a consumer that falls behind loses events.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect()
	Publish(topic string, payload []byte, qos byte, retain bool) error
	Subscribe(filter string, qos byte) error
	IsConnected() bool
	Events() <-chan Event
}
