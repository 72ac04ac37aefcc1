package session

import (
	"context"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

// Driver is the seam between SessionAdapter and "an external MQTT
// v3.1.1/v5.0 client library providing async APIs with callbacks"
// (spec.md §1) — the one collaborator this specification treats as out
// of scope. Every method blocks for as long as the underlying library
// call does; SessionAdapter is the one that layers PendingOp/timeout
// semantics on top by running these calls on their own goroutine and
// racing the result against the caller's deadline, exactly as it would
// need to if the underlying library instead delivered results via a
// free-function callback on its own I/O thread.
//
// driver_paho.go is the concrete implementation, backed by
// github.com/eclipse/paho.golang (the v5-capable Eclipse Paho successor
// client). driver_fake_test.go (test-only) is a scriptable double used by
// the adapter's own tests.
type Driver interface {
	// Connect performs CONNECT and blocks for CONNACK.
	Connect(ctx context.Context, req ConnectRequest) (ConnAckResult, error)
	// Publish performs PUBLISH and, for qos>0, blocks for the ack.
	Publish(ctx context.Context, req PublishRequest) (PublishResult, error)
	// Subscribe performs SUBSCRIBE and blocks for SUBACK.
	Subscribe(ctx context.Context, req SubscribeRequest) (SubAckResult, error)
	// Unsubscribe performs UNSUBSCRIBE and blocks for UNSUBACK.
	Unsubscribe(ctx context.Context, req UnsubscribeRequest) (UnsubAckResult, error)
	// Disconnect performs DISCONNECT and blocks for its local completion.
	Disconnect(ctx context.Context, req DisconnectRequest) (DisconnectResult, error)
	// Close releases the underlying client and its I/O thread. Safe to
	// call after Disconnect or after Connect failed.
	Close()
}

// DriverCallbacks are invoked from the driver's own goroutine(s) for
// events the session didn't ask for: broker-pushed messages and
// unsolicited disconnects. They must not block.
type DriverCallbacks struct {
	OnMessage    func(topic string, payload []byte, qos int32, retain bool, props rpcproto.MqttProperties)
	OnDisconnect func(reasonCode int32, props rpcproto.MqttProperties)
	OnLog        func(level LogLevel, msg string)
}

// LogLevel mirrors the severity bits an MQTT client library's log
// callback reports (spec.md §4.3.6 on_log).
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

type ConnectRequest struct {
	ClientID         string
	Host             string
	Port             int32
	KeepaliveSeconds int32
	CleanSession     bool
	V5               bool
	TLSPaths         *tempPaths
	Properties       *rpcproto.MqttProperties
	ReconnectBackoff int64 // seconds; large fixed value per spec.md §4.3.1 step 4
}

type ConnAckResult struct {
	ReasonCode     int32
	SessionPresent bool
	Properties     rpcproto.MqttProperties
}

type PublishRequest struct {
	Topic      string
	Payload    []byte
	QoS        int32
	Retain     bool
	Properties *rpcproto.MqttProperties
}

type PublishResult struct {
	ReasonCode int32
	Properties rpcproto.MqttProperties
}

type SubscribeRequest struct {
	Filters           []string
	QoS               int32
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    int32
	SubscriptionID    *uint32
	Properties        *rpcproto.MqttProperties
}

type SubAckResult struct {
	GrantedQoS []int32
	Properties rpcproto.MqttProperties
}

type UnsubscribeRequest struct {
	Filters    []string
	Properties *rpcproto.MqttProperties
}

type UnsubAckResult struct {
	Properties rpcproto.MqttProperties
}

type DisconnectRequest struct {
	ReasonCode int32
	Properties *rpcproto.MqttProperties
}

type DisconnectResult struct {
	Properties rpcproto.MqttProperties
}
