package link

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/control"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

type noopSink struct{}

func (noopSink) OnReceiveMessage(uint32, rpcproto.Mqtt5Message)          {}
func (noopSink) OnMqttDisconnect(uint32, rpcproto.Mqtt5Disconnect, error) {}

func TestBootstrapRejectsEmptyHostList(t *testing.T) {
	if _, err := Bootstrap(context.Background(), "agent-1", nil, 47619); err == nil {
		t.Fatal("want error for an empty candidate host list")
	}
}

func newTestLink(t *testing.T) *Link {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	endpoint := control.NewEndpoint(noopSink{})
	server := grpc.NewServer()
	rpcproto.RegisterMqttClientControlServer(server, endpoint)
	return &Link{agentID: "agent-1", endpoint: endpoint, server: server, listener: listener}
}

func TestHandleRequestsReturnsOnShutdownAgent(t *testing.T) {
	l := newTestLink(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = l.endpoint.ShutdownAgent(context.Background(), &rpcproto.ShutdownAgentRequest{Reason: "test done"})
	}()

	reason := l.HandleRequests(context.Background())
	if reason != "test done" {
		t.Errorf("want reason %q, got %q", "test done", reason)
	}
}

func TestHandleRequestsReturnsOnContextCancel(t *testing.T) {
	l := newTestLink(t)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	reason := l.HandleRequests(ctx)
	if reason != "local signal received" {
		t.Errorf("want reason %q, got %q", "local signal received", reason)
	}
}

func TestAgentIDAccessor(t *testing.T) {
	l := newTestLink(t)
	if l.AgentID() != "agent-1" {
		t.Errorf("want agent-1, got %q", l.AgentID())
	}
}
