package control

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

type recordingSink struct {
	messages    []rpcproto.Mqtt5Message
	disconnects []rpcproto.Mqtt5Disconnect
}

func (r *recordingSink) OnReceiveMessage(_ uint32, msg rpcproto.Mqtt5Message) {
	r.messages = append(r.messages, msg)
}

func (r *recordingSink) OnMqttDisconnect(_ uint32, disc rpcproto.Mqtt5Disconnect, _ error) {
	r.disconnects = append(r.disconnects, disc)
}

func statusCode(t *testing.T, err error) codes.Code {
	t.Helper()
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected a gRPC status error, got %v", err)
	}
	return st.Code()
}

func TestShutdownAgentSignalsExactlyOnce(t *testing.T) {
	e := NewEndpoint(&recordingSink{})
	if _, err := e.ShutdownAgent(context.Background(), &rpcproto.ShutdownAgentRequest{Reason: "done"}); err != nil {
		t.Fatalf("ShutdownAgent: %v", err)
	}
	select {
	case reason := <-e.ShutdownRequested():
		if reason != "done" {
			t.Errorf("want reason %q, got %q", "done", reason)
		}
	default:
		t.Fatal("want shutdown signal to be ready immediately")
	}

	// A second call must not panic on sending to the buffered channel
	// again, and must not deliver a second value.
	if _, err := e.ShutdownAgent(context.Background(), &rpcproto.ShutdownAgentRequest{Reason: "again"}); err != nil {
		t.Fatalf("second ShutdownAgent: %v", err)
	}
	select {
	case reason := <-e.ShutdownRequested():
		t.Fatalf("want no second shutdown signal, got %q", reason)
	default:
	}
}

func TestCreateMqttConnectionRejectsInvalidPort(t *testing.T) {
	e := NewEndpoint(&recordingSink{})
	_, err := e.CreateMqttConnection(context.Background(), &rpcproto.CreateMqttConnectionRequest{
		ClientId: "c", Host: "h", Port: 0, ProtocolVersion: "v3.1.1", Timeout: 1,
	})
	if statusCode(t, err) != codes.InvalidArgument {
		t.Errorf("want InvalidArgument, got %v", err)
	}
}

func TestCreateMqttConnectionRejectsBadProtocolVersion(t *testing.T) {
	e := NewEndpoint(&recordingSink{})
	_, err := e.CreateMqttConnection(context.Background(), &rpcproto.CreateMqttConnectionRequest{
		ClientId: "c", Host: "h", Port: 1883, ProtocolVersion: "v2.0", Timeout: 1,
	})
	if statusCode(t, err) != codes.InvalidArgument {
		t.Errorf("want InvalidArgument, got %v", err)
	}
}

func TestCloseMqttConnectionUnknownIDIsNotFound(t *testing.T) {
	e := NewEndpoint(&recordingSink{})
	_, err := e.CloseMqttConnection(context.Background(), &rpcproto.CloseMqttConnectionRequest{
		ConnectionId: 999, Timeout: 1,
	})
	if statusCode(t, err) != codes.NotFound {
		t.Errorf("want NotFound, got %v", err)
	}
}

func TestSubscribeMqttEmptyFiltersIsInvalidArgument(t *testing.T) {
	e := NewEndpoint(&recordingSink{})
	_, err := e.SubscribeMqtt(context.Background(), &rpcproto.SubscribeMqttRequest{
		ConnectionId: 1, Timeout: 1,
	})
	if statusCode(t, err) != codes.InvalidArgument {
		t.Errorf("want InvalidArgument, got %v", err)
	}
}

func TestSubscribeMqttMismatchedQoSIsInvalidArgument(t *testing.T) {
	e := NewEndpoint(&recordingSink{})
	_, err := e.SubscribeMqtt(context.Background(), &rpcproto.SubscribeMqttRequest{
		ConnectionId: 1, Timeout: 1,
		Filters: []rpcproto.MqttSubscribeFilter{
			{Filter: "a/b", Qos: 0},
			{Filter: "c/d", Qos: 1},
		},
	})
	if statusCode(t, err) != codes.InvalidArgument {
		t.Errorf("want InvalidArgument, got %v", err)
	}
}

func TestPublishMqttUnknownConnectionIsNotFound(t *testing.T) {
	e := NewEndpoint(&recordingSink{})
	_, err := e.PublishMqtt(context.Background(), &rpcproto.PublishMqttRequest{
		ConnectionId: 42, Timeout: 1, Topic: "a/b",
	})
	if statusCode(t, err) != codes.NotFound {
		t.Errorf("want NotFound, got %v", err)
	}
}
