// Package session implements SessionAdapter (spec.md §3, §4.3): one Go
// type per live MQTT connection, wrapping the chosen client library's
// async, callback-driven API behind blocking methods the control-plane
// endpoint can simply call and wait on.
//
// Every public method below follows the same shape: register a
// PendingOp, kick the Driver call off on its own goroutine, then Await
// the op with the caller-supplied timeout. A Driver call that finishes
// after the Await already timed out finds its PendingOp invalidated and
// its result silently discarded — the same "late callback after
// timeout" case the control-plane endpoint must tolerate per spec.md
// §4.5.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/apperr"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/pendingop"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/propcodec"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

// New constructs a Session in StateNew. ConnectionID is assigned by the
// caller (internal/registry) once Start has succeeded.
func New(cfg Config, onMessage func(rpcproto.Mqtt5Message), onDisconnect func(rpcproto.Mqtt5Disconnect, error)) *Session {
	return &Session{
		cfg:            cfg,
		state:          StateNew,
		nextID:         firstDynamicID,
		dynamicPending: pendingop.NewTable[RequestId, OpResult](),
		onMessage:      onMessage,
		onDisconnect:   onDisconnect,
	}
}

func (s *Session) SetConnectionID(id uint32) { s.connectionID = id }

// Start performs CONNECT and blocks up to timeout for CONNACK (spec.md
// §4.3.1). It is only valid from StateNew.
func (s *Session) Start(ctx context.Context, timeout time.Duration) (OpResult, error) {
	s.mu.Lock()
	if s.state != StateNew {
		state := s.state
		s.mu.Unlock()
		return nil, apperr.New(apperr.KindValidation, "Start called in state %s, want new", state)
	}
	s.state = StateConnecting

	paths := s.temp
	if paths == nil && !s.cfg.TLS.Empty() {
		var err error
		paths, err = writeTempMaterial(*s.cfg.TLS)
		if err != nil {
			s.state = StateNew
			s.mu.Unlock()
			return nil, err
		}
		// The PEM text now lives only in the temp files.
		s.cfg.TLS = nil
	}
	s.temp = paths
	op := pendingop.New[OpResult]()
	s.connectPending = op
	s.mu.Unlock()

	connectProps := propcodec.BuildConnectProperties(s.cfg.Version, propcodec.ConnectOptions{
		RequestResponseInformation: s.cfg.RequestResponseInformation,
		UserProperties:             s.cfg.UserProperties,
	})

	req := ConnectRequest{
		ClientID:         s.cfg.ClientID,
		Host:             s.cfg.Host,
		Port:             s.cfg.Port,
		KeepaliveSeconds: s.cfg.KeepaliveSeconds,
		CleanSession:     s.cfg.CleanSession,
		V5:               s.cfg.Version == propcodec.V5,
		TLSPaths:         paths,
		Properties:       connectProps,
		ReconnectBackoff: int64(s.cfg.ReconnectBackoff.Seconds()),
	}

	go func() {
		driver, ack, err := newPahoDriver(ctx, req, DriverCallbacks{
			OnMessage:    s.handleLibraryMessage,
			OnDisconnect: s.handleLibraryDisconnect,
		})
		if err != nil {
			op.Fulfil(FailedResult{Code: int(apperr.KindLibraryError), Message: err.Error()})
			return
		}
		s.mu.Lock()
		s.driver = driver
		s.mu.Unlock()
		op.Fulfil(ConnectedResult{
			ReasonCode: ack.ReasonCode,
			Flags:      ConnAckFlags{SessionPresent: ack.SessionPresent},
			Props:      &ack.Properties,
		})
	}()

	result, err := op.Await(timeout)
	if err != nil {
		s.mu.Lock()
		s.state = StateNew
		s.mu.Unlock()
		return nil, err
	}
	if _, failed := result.(FailedResult); !failed {
		s.mu.Lock()
		s.state = StateConnected
		s.mu.Unlock()
	} else {
		s.mu.Lock()
		s.state = StateNew
		s.mu.Unlock()
	}
	return result, nil
}

// Disconnect performs DISCONNECT and blocks up to timeout for local
// completion. Valid from StateConnected; a repeated call on an already
// StateClosed session is a no-op success (spec.md §4.3.2).
func (s *Session) Disconnect(ctx context.Context, timeout time.Duration, reasonCode int32, props *rpcproto.MqttProperties) (OpResult, error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return DisconnectedResult{ReasonCode: reasonCode}, nil
	}
	if s.state != StateConnected {
		state := s.state
		s.mu.Unlock()
		return nil, apperr.New(apperr.KindValidation, "Disconnect called in state %s, want connected", state)
	}
	s.state = StateDisconnecting
	driver := s.driver
	op := pendingop.New[OpResult]()
	s.disconnectPending = op
	s.mu.Unlock()

	req := DisconnectRequest{
		ReasonCode: reasonCode,
		Properties: propcodec.DisconnectPropertiesOut(s.cfg.Version, props),
	}

	go func() {
		res, err := driver.Disconnect(ctx, req)
		if err != nil {
			op.Fulfil(FailedResult{Code: int(apperr.KindLibraryError), Message: err.Error()})
			return
		}
		op.Fulfil(DisconnectedResult{ReasonCode: reasonCode, Props: &res.Properties})
	}()

	result, err := op.Await(timeout)
	s.mu.Lock()
	s.state = StateClosed
	s.cleanupLocked()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Publish performs PUBLISH, blocking for the ack when qos>0.
func (s *Session) Publish(ctx context.Context, timeout time.Duration, topic string, payload []byte, qos int32, retain bool, props *rpcproto.MqttProperties) (OpResult, error) {
	driver, mid, op, err := s.beginDynamicOp()
	if err != nil {
		return nil, err
	}

	req := PublishRequest{
		Topic:      topic,
		Payload:    payload,
		QoS:        qos,
		Retain:     retain,
		Properties: propcodec.BuildPublishProperties(s.cfg.Version, props),
	}

	go func() {
		res, err := driver.Publish(ctx, req)
		if err != nil {
			op.Fulfil(FailedResult{Code: int(apperr.KindLibraryError), Message: err.Error()})
			return
		}
		op.Fulfil(PublishedResult{Mid: uint32(mid), ReasonCode: res.ReasonCode, Props: &res.Properties})
	}()

	return s.awaitDynamic(mid, op, timeout)
}

// Subscribe performs SUBSCRIBE for one or more filters sharing the same
// QoS and flags (spec.md §4.5 validation already enforced the filters
// agree before calling here).
func (s *Session) Subscribe(ctx context.Context, timeout time.Duration, filters []string, qos int32, noLocal, retainAsPublished bool, retainHandling int32, subID *uint32, props *rpcproto.MqttProperties) (OpResult, error) {
	driver, mid, op, err := s.beginDynamicOp()
	if err != nil {
		return nil, err
	}

	req := SubscribeRequest{
		Filters:           filters,
		QoS:               qos,
		NoLocal:           noLocal,
		RetainAsPublished: retainAsPublished,
		RetainHandling:    retainHandling,
		SubscriptionID:    subID,
		Properties:        propcodec.BuildSubscribeProperties(s.cfg.Version, props, subID),
	}

	go func() {
		res, err := driver.Subscribe(ctx, req)
		if err != nil {
			op.Fulfil(FailedResult{Code: int(apperr.KindLibraryError), Message: err.Error()})
			return
		}
		op.Fulfil(SubscribedResult{Mid: uint32(mid), GrantedQoS: res.GrantedQoS, Props: &res.Properties})
	}()

	return s.awaitDynamic(mid, op, timeout)
}

// Unsubscribe performs UNSUBSCRIBE for one or more filters.
func (s *Session) Unsubscribe(ctx context.Context, timeout time.Duration, filters []string, props *rpcproto.MqttProperties) (OpResult, error) {
	driver, mid, op, err := s.beginDynamicOp()
	if err != nil {
		return nil, err
	}

	req := UnsubscribeRequest{
		Filters:    filters,
		Properties: propcodec.BuildPublishProperties(s.cfg.Version, props),
	}

	go func() {
		res, err := driver.Unsubscribe(ctx, req)
		if err != nil {
			op.Fulfil(FailedResult{Code: int(apperr.KindLibraryError), Message: err.Error()})
			return
		}
		op.Fulfil(UnsubscribedResult{Mid: uint32(mid), Props: &res.Properties})
	}()

	return s.awaitDynamic(mid, op, timeout)
}

// beginDynamicOp validates StateConnected, allocates the next
// RequestId, and registers its PendingOp, returning the driver to call
// against. Shared by Publish/Subscribe/Unsubscribe.
func (s *Session) beginDynamicOp() (Driver, RequestId, *pendingop.Op[OpResult], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected {
		return nil, 0, nil, apperr.New(apperr.KindNotConnected, "session %d is %s, want connected", s.connectionID, s.state)
	}
	mid := s.nextID
	s.nextID++
	op := s.dynamicPending.Register(mid)
	return s.driver, mid, op, nil
}

func (s *Session) awaitDynamic(mid RequestId, op *pendingop.Op[OpResult], timeout time.Duration) (OpResult, error) {
	result, err := op.Await(timeout)
	// The table entry is never resolved by a callback keyed on mid (the
	// driver call in the goroutine above fulfils this exact op directly),
	// so it must be dropped here on every path or it outlives the op.
	s.dynamicPending.Forget(mid)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// handleLibraryMessage is the Driver's OnMessage callback: it always
// runs on the driver's own goroutine, never the caller that triggered a
// Subscribe.
func (s *Session) handleLibraryMessage(topic string, payload []byte, qos int32, retain bool, props rpcproto.MqttProperties) {
	s.mu.Lock()
	onMessage := s.onMessage
	s.mu.Unlock()
	if onMessage == nil {
		return
	}
	degraded := propcodec.DropV5Only(s.cfg.Version, &props)
	onMessage(rpcproto.Mqtt5Message{Topic: topic, Payload: payload, Qos: qos, Retain: retain, Properties: degraded})
}

// handleLibraryDisconnect is the Driver's unsolicited-disconnect
// callback (broker-initiated, or transport failure).
func (s *Session) handleLibraryDisconnect(reasonCode int32, props rpcproto.MqttProperties) {
	s.mu.Lock()
	already := s.state == StateClosed || s.state == StateDisconnecting
	onDisconnect := s.onDisconnect
	if !already {
		s.state = StateClosed
		s.cleanupLocked()
	}
	s.mu.Unlock()
	if already || onDisconnect == nil {
		return
	}
	degraded := propcodec.DropV5Only(s.cfg.Version, &props)
	var err error
	if props.ReasonString != "" {
		err = fmt.Errorf("%s", props.ReasonString)
	}
	onDisconnect(rpcproto.Mqtt5Disconnect{ReasonCode: reasonCode, Properties: degraded}, err)
}

// cleanupLocked releases the driver and any temp TLS files. s.mu must
// be held.
func (s *Session) cleanupLocked() {
	if s.driver != nil {
		s.driver.Close()
		s.driver = nil
	}
	if s.temp != nil {
		s.temp.cleanup()
		s.temp = nil
	}
	slog.Debug("session cleaned up", "connection_id", s.connectionID, "client_id", s.cfg.ClientID)
}
