// Package link implements AgentLink (spec.md §4.7): the bootstrap
// sequence that finds a live controller among a list of candidate
// hosts, registers with it, and starts serving the ControlEndpoint on
// the address the controller reports back.
package link

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/apperr"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/config"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/control"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/discovery"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/logger"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

// Link owns the live DiscoveryClient and the gRPC server hosting the
// ControlEndpoint, once Bootstrap has succeeded.
type Link struct {
	agentID  string
	client   *discovery.Client
	endpoint *control.Endpoint
	server   *grpc.Server
	listener net.Listener
}

// Bootstrap tries each of hosts in order against controllerPort,
// registering agentID with the first one that answers, and starts a
// local listener for the ControlEndpoint. It mirrors spec.md §4.7's
// per-host retry loop: a failure on one host is remembered and the next
// is tried; if every host fails, the last error is returned.
func Bootstrap(ctx context.Context, agentID string, hosts []string, controllerPort int32) (*Link, error) {
	if len(hosts) == 0 {
		return nil, apperr.New(apperr.KindValidation, "no candidate controller hosts given")
	}

	cfg, _ := config.GetConfig()
	perHost := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
	if perHost <= 0 {
		perHost = time.Duration(config.Defaults().BootstrapTimeoutSeconds) * time.Second
	}

	var lastErr error
	for _, host := range hosts {
		target := fmt.Sprintf("%s:%d", host, controllerPort)
		attemptCtx, cancel := context.WithTimeout(ctx, perHost)
		l, err := attempt(attemptCtx, agentID, target)
		cancel()
		if err != nil {
			logger.WarnF("bootstrap against controller %s failed: %v", target, err)
			lastErr = err
			continue
		}
		return l, nil
	}
	return nil, apperr.Wrap(apperr.KindInitialisation, lastErr, "no candidate controller host answered")
}

func attempt(ctx context.Context, agentID, target string) (*Link, error) {
	client, err := discovery.Dial(agentID, target)
	if err != nil {
		return nil, err
	}

	localIP, err := client.RegisterAgent(ctx)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(localIP, "0"))
	if err != nil {
		_ = client.Close()
		return nil, apperr.Wrap(apperr.KindInitialisation, err, "binding control endpoint on %s", localIP)
	}

	endpoint := control.NewEndpoint(client)
	server := grpc.NewServer()
	rpcproto.RegisterMqttClientControlServer(server, endpoint)

	port := int32(listener.Addr().(*net.TCPAddr).Port)
	if err := client.DiscoveryAgent(ctx, localIP, port); err != nil {
		_ = listener.Close()
		_ = client.Close()
		return nil, err
	}

	logger.InfoF("agent %s registered with controller %s, serving control endpoint on %s", agentID, target, listener.Addr())

	return &Link{
		agentID:  agentID,
		client:   client,
		endpoint: endpoint,
		server:   server,
		listener: listener,
	}, nil
}

// HandleRequests serves the ControlEndpoint until ShutdownAgent is
// received or ctx is cancelled (a local signal, per spec.md §6.3),
// whichever happens first. It returns a human-readable reason.
func (l *Link) HandleRequests(ctx context.Context) string {
	serveErr := make(chan error, 1)
	go func() { serveErr <- l.server.Serve(l.listener) }()

	select {
	case reason := <-l.endpoint.ShutdownRequested():
		l.server.GracefulStop()
		<-serveErr
		return reason
	case <-ctx.Done():
		l.server.GracefulStop()
		<-serveErr
		return "local signal received"
	case err := <-serveErr:
		if err != nil {
			logger.ErrorF("control endpoint serve loop exited: %v", err)
			return fmt.Sprintf("serve error: %v", err)
		}
		return "listener closed"
	}
}

// Shutdown unregisters from the controller and releases the listener
// and connection. Safe to call once, after HandleRequests returns.
func (l *Link) Shutdown(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	l.client.UnregisterAgent(ctx, reason)
	_ = l.client.Close()
}

// AgentID returns the id this Link registered under, used for logging
// by cmd/agent.
func (l *Link) AgentID() string { return l.agentID }
