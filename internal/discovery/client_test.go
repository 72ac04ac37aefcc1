package discovery

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

// fakeStub is a scriptable rpcproto.MqttAgentDiscoveryClient double.
type fakeStub struct {
	registerResp   *rpcproto.RegisterAgentResponse
	registerErr    error
	discoveryResp  *rpcproto.DiscoveryAgentResponse
	discoveryErr   error
	unregisterErr  error
	messageErr     error
	disconnectErr  error
	lastMessageReq *rpcproto.OnReceiveMessageRequest
	lastDiscReq    *rpcproto.OnMqttDisconnectRequest
}

func (f *fakeStub) RegisterAgent(context.Context, *rpcproto.RegisterAgentRequest, ...grpc.CallOption) (*rpcproto.RegisterAgentResponse, error) {
	return f.registerResp, f.registerErr
}

func (f *fakeStub) DiscoveryAgent(context.Context, *rpcproto.DiscoveryAgentRequest, ...grpc.CallOption) (*rpcproto.DiscoveryAgentResponse, error) {
	return f.discoveryResp, f.discoveryErr
}

func (f *fakeStub) UnregisterAgent(context.Context, *rpcproto.UnregisterAgentRequest, ...grpc.CallOption) (*rpcproto.UnregisterAgentResponse, error) {
	return &rpcproto.UnregisterAgentResponse{}, f.unregisterErr
}

func (f *fakeStub) OnReceiveMessage(_ context.Context, req *rpcproto.OnReceiveMessageRequest, _ ...grpc.CallOption) (*rpcproto.OnReceiveMessageResponse, error) {
	f.lastMessageReq = req
	return &rpcproto.OnReceiveMessageResponse{}, f.messageErr
}

func (f *fakeStub) OnMqttDisconnect(_ context.Context, req *rpcproto.OnMqttDisconnectRequest, _ ...grpc.CallOption) (*rpcproto.OnMqttDisconnectResponse, error) {
	f.lastDiscReq = req
	return &rpcproto.OnMqttDisconnectResponse{}, f.disconnectErr
}

func TestRegisterAgentReturnsLocalIP(t *testing.T) {
	stub := &fakeStub{registerResp: &rpcproto.RegisterAgentResponse{LocalIp: "10.0.0.5"}}
	c := newClient("agent-1", stub, nil)

	ip, err := c.RegisterAgent(context.Background())
	if err != nil {
		t.Fatalf("RegisterAgent: %v", err)
	}
	if ip != "10.0.0.5" {
		t.Errorf("want local ip 10.0.0.5, got %q", ip)
	}
}

func TestRegisterAgentWrapsTransportFailure(t *testing.T) {
	stub := &fakeStub{registerErr: errors.New("connection refused")}
	c := newClient("agent-1", stub, nil)

	if _, err := c.RegisterAgent(context.Background()); err == nil {
		t.Fatal("want error when the stub call fails")
	}
}

func TestDiscoveryAgentRejectsNotOK(t *testing.T) {
	stub := &fakeStub{discoveryResp: &rpcproto.DiscoveryAgentResponse{Ok: false}}
	c := newClient("agent-1", stub, nil)

	if err := c.DiscoveryAgent(context.Background(), "10.0.0.5", 47619); err == nil {
		t.Fatal("want error when the controller reports ok=false")
	}
}

func TestOnReceiveMessageDoesNotPropagateTransportFailure(t *testing.T) {
	stub := &fakeStub{messageErr: errors.New("unavailable")}
	c := newClient("agent-1", stub, nil)

	// Must not panic; the call is fire-and-forget by design.
	c.OnReceiveMessage(7, rpcproto.Mqtt5Message{Topic: "a/b"})
	if stub.lastMessageReq == nil || stub.lastMessageReq.ConnectionId != 7 {
		t.Fatalf("want the request forwarded with connection id 7, got %#v", stub.lastMessageReq)
	}
}

func TestOnMqttDisconnectCarriesErrorText(t *testing.T) {
	stub := &fakeStub{}
	c := newClient("agent-1", stub, nil)

	c.OnMqttDisconnect(3, rpcproto.Mqtt5Disconnect{ReasonCode: 137}, errors.New("keepalive expired"))
	if stub.lastDiscReq == nil || stub.lastDiscReq.Error != "keepalive expired" {
		t.Fatalf("want error text forwarded, got %#v", stub.lastDiscReq)
	}
}

func TestUnregisterAgentDoesNotPanicOnFailure(t *testing.T) {
	stub := &fakeStub{unregisterErr: errors.New("gone")}
	c := newClient("agent-1", stub, nil)
	c.UnregisterAgent(context.Background(), "shutting down")
}
