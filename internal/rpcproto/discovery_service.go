package rpcproto

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

const mqttAgentDiscoveryServiceName = "mqtt.harness.v1.MqttAgentDiscovery"

// MqttAgentDiscoveryClient is the outbound client stub internal/discovery
// drives: the agent is the client, the test-orchestration controller is
// the server.
type MqttAgentDiscoveryClient interface {
	RegisterAgent(context.Context, *RegisterAgentRequest, ...grpc.CallOption) (*RegisterAgentResponse, error)
	DiscoveryAgent(context.Context, *DiscoveryAgentRequest, ...grpc.CallOption) (*DiscoveryAgentResponse, error)
	UnregisterAgent(context.Context, *UnregisterAgentRequest, ...grpc.CallOption) (*UnregisterAgentResponse, error)
	OnReceiveMessage(context.Context, *OnReceiveMessageRequest, ...grpc.CallOption) (*OnReceiveMessageResponse, error)
	OnMqttDisconnect(context.Context, *OnMqttDisconnectRequest, ...grpc.CallOption) (*OnMqttDisconnectResponse, error)
}

type mqttAgentDiscoveryClient struct {
	cc grpc.ClientConnInterface
}

// NewMqttAgentDiscoveryClient builds a client stub over cc.
func NewMqttAgentDiscoveryClient(cc grpc.ClientConnInterface) MqttAgentDiscoveryClient {
	return &mqttAgentDiscoveryClient{cc: cc}
}

func fullMethod(name string) string {
	return fmt.Sprintf("/%s/%s", mqttAgentDiscoveryServiceName, name)
}

func (c *mqttAgentDiscoveryClient) RegisterAgent(ctx context.Context, in *RegisterAgentRequest, opts ...grpc.CallOption) (*RegisterAgentResponse, error) {
	return invokeUnary[RegisterAgentRequest, RegisterAgentResponse](ctx, c.cc, fullMethod("RegisterAgent"), in, opts...)
}

func (c *mqttAgentDiscoveryClient) DiscoveryAgent(ctx context.Context, in *DiscoveryAgentRequest, opts ...grpc.CallOption) (*DiscoveryAgentResponse, error) {
	return invokeUnary[DiscoveryAgentRequest, DiscoveryAgentResponse](ctx, c.cc, fullMethod("DiscoveryAgent"), in, opts...)
}

func (c *mqttAgentDiscoveryClient) UnregisterAgent(ctx context.Context, in *UnregisterAgentRequest, opts ...grpc.CallOption) (*UnregisterAgentResponse, error) {
	return invokeUnary[UnregisterAgentRequest, UnregisterAgentResponse](ctx, c.cc, fullMethod("UnregisterAgent"), in, opts...)
}

func (c *mqttAgentDiscoveryClient) OnReceiveMessage(ctx context.Context, in *OnReceiveMessageRequest, opts ...grpc.CallOption) (*OnReceiveMessageResponse, error) {
	return invokeUnary[OnReceiveMessageRequest, OnReceiveMessageResponse](ctx, c.cc, fullMethod("OnReceiveMessage"), in, opts...)
}

func (c *mqttAgentDiscoveryClient) OnMqttDisconnect(ctx context.Context, in *OnMqttDisconnectRequest, opts ...grpc.CallOption) (*OnMqttDisconnectResponse, error) {
	return invokeUnary[OnMqttDisconnectRequest, OnMqttDisconnectResponse](ctx, c.cc, fullMethod("OnMqttDisconnect"), in, opts...)
}
