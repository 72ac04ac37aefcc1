package rpcproto

import (
	"context"

	"google.golang.org/grpc"
)

// MqttClientControlServer is the interface internal/control.Endpoint
// implements. It is the inbound service: the test-orchestration
// controller is the client, the agent is the server.
type MqttClientControlServer interface {
	ShutdownAgent(context.Context, *ShutdownAgentRequest) (*ShutdownAgentResponse, error)
	CreateMqttConnection(context.Context, *CreateMqttConnectionRequest) (*CreateMqttConnectionResponse, error)
	CloseMqttConnection(context.Context, *CloseMqttConnectionRequest) (*CloseMqttConnectionResponse, error)
	SubscribeMqtt(context.Context, *SubscribeMqttRequest) (*SubscribeMqttResponse, error)
	UnsubscribeMqtt(context.Context, *UnsubscribeMqttRequest) (*UnsubscribeMqttResponse, error)
	PublishMqtt(context.Context, *PublishMqttRequest) (*PublishMqttResponse, error)
}

const mqttClientControlServiceName = "mqtt.harness.v1.MqttClientControl"

// MqttClientControlServiceDesc is registered against a *grpc.Server by
// RegisterMqttClientControlServer.
var MqttClientControlServiceDesc = grpc.ServiceDesc{
	ServiceName: mqttClientControlServiceName,
	HandlerType: (*MqttClientControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ShutdownAgent",
			Handler: unaryMethod(func(srv any, ctx context.Context, req *ShutdownAgentRequest) (*ShutdownAgentResponse, error) {
				return srv.(MqttClientControlServer).ShutdownAgent(ctx, req)
			}),
		},
		{
			MethodName: "CreateMqttConnection",
			Handler: unaryMethod(func(srv any, ctx context.Context, req *CreateMqttConnectionRequest) (*CreateMqttConnectionResponse, error) {
				return srv.(MqttClientControlServer).CreateMqttConnection(ctx, req)
			}),
		},
		{
			MethodName: "CloseMqttConnection",
			Handler: unaryMethod(func(srv any, ctx context.Context, req *CloseMqttConnectionRequest) (*CloseMqttConnectionResponse, error) {
				return srv.(MqttClientControlServer).CloseMqttConnection(ctx, req)
			}),
		},
		{
			MethodName: "SubscribeMqtt",
			Handler: unaryMethod(func(srv any, ctx context.Context, req *SubscribeMqttRequest) (*SubscribeMqttResponse, error) {
				return srv.(MqttClientControlServer).SubscribeMqtt(ctx, req)
			}),
		},
		{
			MethodName: "UnsubscribeMqtt",
			Handler: unaryMethod(func(srv any, ctx context.Context, req *UnsubscribeMqttRequest) (*UnsubscribeMqttResponse, error) {
				return srv.(MqttClientControlServer).UnsubscribeMqtt(ctx, req)
			}),
		},
		{
			MethodName: "PublishMqtt",
			Handler: unaryMethod(func(srv any, ctx context.Context, req *PublishMqttRequest) (*PublishMqttResponse, error) {
				return srv.(MqttClientControlServer).PublishMqtt(ctx, req)
			}),
		},
	},
	Metadata: "control.proto",
}

// RegisterMqttClientControlServer registers srv with s.
func RegisterMqttClientControlServer(s grpc.ServiceRegistrar, srv MqttClientControlServer) {
	s.RegisterService(&MqttClientControlServiceDesc, srv)
}
