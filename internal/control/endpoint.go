package control

import (
	"context"
	"sync"
	"time"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/apperr"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/config"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/propcodec"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/registry"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/session"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/utils"
)

// EventSink receives the two events a Session pushes independently of
// any RPC call: broker-pushed messages and unsolicited disconnects.
// internal/discovery.Client implements it by forwarding to the
// controller.
type EventSink interface {
	OnReceiveMessage(connectionID uint32, msg rpcproto.Mqtt5Message)
	OnMqttDisconnect(connectionID uint32, disc rpcproto.Mqtt5Disconnect, opErr error)
}

// Endpoint implements rpcproto.MqttClientControlServer (spec.md §4.5).
type Endpoint struct {
	reg    *registry.Registry
	events EventSink

	shutdownOnce sync.Once
	shutdownCh   chan string
}

// NewEndpoint returns an Endpoint with an empty SessionRegistry, pushing
// message/disconnect events through events.
func NewEndpoint(events EventSink) *Endpoint {
	return &Endpoint{
		reg:        registry.New(),
		events:     events,
		shutdownCh: make(chan string, 1),
	}
}

// ShutdownRequested returns a channel that receives the reason string
// exactly once, the moment a ShutdownAgent RPC is accepted. AgentLink's
// serving loop selects on it to know when to stop.
func (e *Endpoint) ShutdownRequested() <-chan string { return e.shutdownCh }

func (e *Endpoint) ShutdownAgent(_ context.Context, req *rpcproto.ShutdownAgentRequest) (*rpcproto.ShutdownAgentResponse, error) {
	e.shutdownOnce.Do(func() { e.shutdownCh <- req.Reason })
	return &rpcproto.ShutdownAgentResponse{}, nil
}

func (e *Endpoint) CreateMqttConnection(ctx context.Context, req *rpcproto.CreateMqttConnectionRequest) (*rpcproto.CreateMqttConnectionResponse, error) {
	if verr := firstError(
		validateNonEmpty("client_id", req.ClientId),
		validateNonEmpty("host", req.Host),
		validatePort(req.Port),
		validateKeepalive(req.Keepalive),
		validateTimeout(req.Timeout),
		validateTLS(req.Tls),
	); verr != nil {
		return nil, toStatus(verr)
	}
	version, verr := parseProtocolVersion(req.ProtocolVersion)
	if verr != nil {
		return nil, toStatus(verr)
	}

	var tlsMat *session.TLSMaterial
	if req.Tls != nil {
		tlsMat = &session.TLSMaterial{CAList: req.Tls.CaList, Cert: req.Tls.Cert, Key: req.Tls.Key}
	}

	sess := session.New(session.Config{
		ClientID:                   req.ClientId,
		Host:                       req.Host,
		Port:                       req.Port,
		KeepaliveSeconds:           req.Keepalive,
		CleanSession:               req.CleanSession,
		Version:                    version,
		TLS:                        tlsMat,
		RequestResponseInformation: req.RequestResponseInformation,
		UserProperties:             req.UserProperties,
		ReconnectBackoff:           reconnectBackoff(),
	}, nil, nil)

	result, err := sess.Start(ctx, secondsToDuration(req.Timeout))
	if err != nil {
		return nil, toStatus(err)
	}
	if ferr := opResultError(result); ferr != nil {
		return nil, toStatus(ferr)
	}
	connected := result.(session.ConnectedResult)

	id := e.reg.Register(sess)
	sess.SetConnectionID(id)
	sess.SetEventSink(func(msg rpcproto.Mqtt5Message) {
		e.events.OnReceiveMessage(id, msg)
	}, func(disc rpcproto.Mqtt5Disconnect, opErr error) {
		e.events.OnMqttDisconnect(id, disc, opErr)
	})

	return &rpcproto.CreateMqttConnectionResponse{
		ConnectionId: id,
		ConnAck: rpcproto.Mqtt5ConnAck{
			ReasonCode:     connected.ReasonCode,
			SessionPresent: connected.Flags.SessionPresent,
			Properties:     connected.Props,
		},
	}, nil
}

func (e *Endpoint) CloseMqttConnection(ctx context.Context, req *rpcproto.CloseMqttConnectionRequest) (*rpcproto.CloseMqttConnectionResponse, error) {
	if verr := firstError(validateTimeout(req.Timeout), validateReason(req.Reason)); verr != nil {
		return nil, toStatus(verr)
	}
	sess, err := e.lookup(req.ConnectionId)
	if err != nil {
		return nil, toStatus(err)
	}

	props := &rpcproto.MqttProperties{UserProperties: req.UserProperties}
	result, err := sess.Disconnect(ctx, secondsToDuration(req.Timeout), req.Reason, props)
	if err != nil {
		return nil, toStatus(err)
	}
	if ferr := opResultError(result); ferr != nil {
		return nil, toStatus(ferr)
	}
	e.reg.Unregister(req.ConnectionId)
	return &rpcproto.CloseMqttConnectionResponse{}, nil
}

func (e *Endpoint) SubscribeMqtt(ctx context.Context, req *rpcproto.SubscribeMqttRequest) (*rpcproto.SubscribeMqttResponse, error) {
	if verr := firstError(
		validateTimeout(req.Timeout),
		validateSubscribeFilters(req.Filters),
	); verr != nil {
		return nil, toStatus(verr)
	}
	if req.SubscriptionId != nil {
		if verr := validateSubscriptionID(*req.SubscriptionId); verr != nil {
			return nil, toStatus(verr)
		}
	}
	sess, err := e.lookup(req.ConnectionId)
	if err != nil {
		return nil, toStatus(err)
	}
	if req.SubscriptionId != nil && sess.Version() != propcodec.V5 {
		return nil, toStatus(apperr.New(apperr.KindValidation, "subscription_id requires a v5.0 session"))
	}

	// validateSubscribeFilters has already confirmed every filter shares
	// the same options; the first filter's values are that shared value.
	opts := req.Filters[0]
	filters := make([]string, len(req.Filters))
	for i, f := range req.Filters {
		filters[i] = f.Filter
	}
	props := &rpcproto.MqttProperties{UserProperties: req.UserProperties}

	result, err := sess.Subscribe(ctx, secondsToDuration(req.Timeout), filters, opts.Qos, opts.NoLocal, opts.RetainAsPublished, opts.RetainHandling, req.SubscriptionId, props)
	if err != nil {
		return nil, toStatus(err)
	}
	if ferr := opResultError(result); ferr != nil {
		return nil, toStatus(ferr)
	}
	sub := result.(session.SubscribedResult)
	return &rpcproto.SubscribeMqttResponse{Reply: rpcproto.MqttSubscribeReply{ReasonCodes: sub.GrantedQoS, Properties: sub.Props}}, nil
}

func (e *Endpoint) UnsubscribeMqtt(ctx context.Context, req *rpcproto.UnsubscribeMqttRequest) (*rpcproto.UnsubscribeMqttResponse, error) {
	if verr := firstError(validateTimeout(req.Timeout)); verr != nil {
		return nil, toStatus(verr)
	}
	if len(req.Filters) == 0 {
		return nil, toStatus(apperr.New(apperr.KindValidation, "filters must not be empty"))
	}
	sess, err := e.lookup(req.ConnectionId)
	if err != nil {
		return nil, toStatus(err)
	}

	props := &rpcproto.MqttProperties{UserProperties: req.UserProperties}
	result, err := sess.Unsubscribe(ctx, secondsToDuration(req.Timeout), req.Filters, props)
	if err != nil {
		return nil, toStatus(err)
	}
	if ferr := opResultError(result); ferr != nil {
		return nil, toStatus(ferr)
	}
	unsub := result.(session.UnsubscribedResult)
	reasonCodes := make([]int32, len(req.Filters))
	return &rpcproto.UnsubscribeMqttResponse{Reply: rpcproto.MqttSubscribeReply{ReasonCodes: reasonCodes, Properties: unsub.Props}}, nil
}

func (e *Endpoint) PublishMqtt(ctx context.Context, req *rpcproto.PublishMqttRequest) (*rpcproto.PublishMqttResponse, error) {
	if verr := firstError(
		validateTimeout(req.Timeout),
		validateQoS(req.Qos),
		validateNonEmpty("topic", req.Topic),
	); verr != nil {
		return nil, toStatus(verr)
	}
	sess, err := e.lookup(req.ConnectionId)
	if err != nil {
		return nil, toStatus(err)
	}

	result, err := sess.Publish(ctx, secondsToDuration(req.Timeout), req.Topic, req.Payload, req.Qos, req.Retain, req.Properties)
	if err != nil {
		return nil, toStatus(err)
	}
	if ferr := opResultError(result); ferr != nil {
		return nil, toStatus(ferr)
	}
	pub := result.(session.PublishedResult)
	return &rpcproto.PublishMqttResponse{Reply: rpcproto.MqttPublishReply{ReasonCode: pub.ReasonCode, Properties: pub.Props}}, nil
}

func (e *Endpoint) lookup(id uint32) (*session.Session, error) {
	s, ok := e.reg.Get(id)
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "unknown connection id %d", id)
	}
	sess, ok := s.(*session.Session)
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "unknown connection id %d", id)
	}
	return sess, nil
}

func firstError(errs ...*apperr.Error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

func opResultError(result session.OpResult) error {
	if failed, ok := result.(session.FailedResult); ok {
		return apperr.New(apperr.KindLibraryError, "%s", failed.Message)
	}
	return nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// reconnectBackoff reads the configured value (spec.md §4.3.1 step 4),
// parsed with the teacher's own time-string grammar, falling back to a
// day if agent.json hasn't been loaded or the value doesn't parse.
func reconnectBackoff() time.Duration {
	cfg, err := config.GetConfig()
	raw := cfg.ReconnectBackoff
	if err != nil || raw == "" {
		raw = config.Defaults().ReconnectBackoff
	}
	if d := utils.ParseStringTime(raw); d > 0 {
		return d
	}
	return 24 * time.Hour
}
