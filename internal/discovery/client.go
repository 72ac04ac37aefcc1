// Package discovery implements DiscoveryClient (spec.md §4.6): the
// agent's outbound RPC stub to the test-orchestration controller.
// Registration/discovery calls surface their errors to the caller
// (AgentLink's bootstrap needs to try the next host on failure); the two
// event pushes are fire-and-forget from the session's point of view —
// a failed push is logged at warn level and never propagated, per
// spec.md §7's propagation policy.
package discovery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/apperr"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/logger"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

// Client wraps rpcproto.MqttAgentDiscoveryClient with the agent id every
// call needs to carry and a fixed per-call timeout for the two event
// pushes, which have no caller-supplied deadline of their own.
type Client struct {
	agentID     string
	instanceID  string
	stub        rpcproto.MqttAgentDiscoveryClient
	conn        *grpc.ClientConn
	pushTimeout time.Duration
}

// Dial opens a gRPC connection to target (host:port) and wraps it as a
// Client for agentID.
func Dial(agentID, target string) (*Client, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindRPCFailure, err, "dialing controller at %s", target)
	}
	return newClient(agentID, rpcproto.NewMqttAgentDiscoveryClient(conn), conn), nil
}

// newClient builds a Client around an already-constructed stub, so
// tests can inject a fake rpcproto.MqttAgentDiscoveryClient without a
// real network connection. instanceID disambiguates one agent process's
// logs from a prior run of the same AgentId (a restarted agent reuses
// its CLI-supplied id). It appears only in this agent's own warn lines
// for failed UnregisterAgent and event-push calls; it is not sent to
// the controller.
func newClient(agentID string, stub rpcproto.MqttAgentDiscoveryClient, conn *grpc.ClientConn) *Client {
	return &Client{agentID: agentID, instanceID: uuid.New().String(), stub: stub, conn: conn, pushTimeout: 10 * time.Second}
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// RegisterAgent asks the controller which local IP it observed this
// agent connect from (spec.md §4.7 step 1).
func (c *Client) RegisterAgent(ctx context.Context) (string, error) {
	resp, err := c.stub.RegisterAgent(ctx, &rpcproto.RegisterAgentRequest{AgentId: c.agentID})
	if err != nil {
		return "", apperr.Wrap(apperr.KindRPCFailure, err, "RegisterAgent(%s)", c.agentID)
	}
	return resp.LocalIp, nil
}

// DiscoveryAgent tells the controller where this agent's ControlEndpoint
// is now listening.
func (c *Client) DiscoveryAgent(ctx context.Context, address string, port int32) error {
	resp, err := c.stub.DiscoveryAgent(ctx, &rpcproto.DiscoveryAgentRequest{AgentId: c.agentID, Address: address, Port: port})
	if err != nil {
		return apperr.Wrap(apperr.KindRPCFailure, err, "DiscoveryAgent(%s, %s:%d)", c.agentID, address, port)
	}
	if !resp.Ok {
		return apperr.New(apperr.KindRPCFailure, "controller rejected DiscoveryAgent for %s", c.agentID)
	}
	return nil
}

// UnregisterAgent tells the controller this agent is shutting down.
// Called during AgentLink.shutdown; its own failure is logged only, the
// agent exits regardless.
func (c *Client) UnregisterAgent(ctx context.Context, reason string) {
	_, err := c.stub.UnregisterAgent(ctx, &rpcproto.UnregisterAgentRequest{AgentId: c.agentID, Reason: reason})
	if err != nil {
		logger.WarnF("UnregisterAgent(%s instance=%s, %q) failed: %v", c.agentID, c.instanceID, reason, err)
	}
}

// OnReceiveMessage implements control.EventSink, forwarding a
// broker-pushed PUBLISH to the controller.
func (c *Client) OnReceiveMessage(connectionID uint32, msg rpcproto.Mqtt5Message) {
	ctx, cancel := context.WithTimeout(context.Background(), c.pushTimeout)
	defer cancel()
	_, err := c.stub.OnReceiveMessage(ctx, &rpcproto.OnReceiveMessageRequest{
		AgentId:      c.agentID,
		ConnectionId: connectionID,
		Message:      msg,
	})
	if err != nil {
		logger.WarnF("OnReceiveMessage(instance=%s, connection=%d, topic=%q) failed: %v", c.instanceID, connectionID, msg.Topic, err)
	}
}

// OnMqttDisconnect implements control.EventSink, forwarding a
// broker-initiated or transport-failure disconnect to the controller.
func (c *Client) OnMqttDisconnect(connectionID uint32, disc rpcproto.Mqtt5Disconnect, opErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.pushTimeout)
	defer cancel()
	req := &rpcproto.OnMqttDisconnectRequest{
		AgentId:      c.agentID,
		ConnectionId: connectionID,
		Disconnect:   disc,
	}
	if opErr != nil {
		req.Error = opErr.Error()
	}
	if _, err := c.stub.OnMqttDisconnect(ctx, req); err != nil {
		logger.WarnF("OnMqttDisconnect(instance=%s, connection=%d) failed: %v", c.instanceID, connectionID, err)
	}
}
