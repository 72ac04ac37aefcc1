package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/eclipse/paho.golang/paho"
	"github.com/eclipse/paho.golang/paho/session/state"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/apperr"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/propcodec"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

// pahoDriver is the Driver backed by github.com/eclipse/paho.golang, the
// MQTT v5.0-capable Eclipse Paho successor client. Unlike the v3.1.1-only
// paho.mqtt.golang, it parses the full CONNACK/SUBACK/PUBACK/DISCONNECT
// property list the broker sends back, so internal/propcodec actually has
// real wire data to carry for a v5 Session instead of a hardcoded empty
// rpcproto.MqttProperties{} (spec.md §8 "property round-trip").
//
// paho.golang does not dial for you — it expects an already-open
// net.Conn/tls.Conn — so newPahoDriver does the dialing itself before
// handing the connection to paho.NewClient.
type pahoDriver struct {
	client *paho.Client
	conn   net.Conn
	cb     DriverCallbacks
}

// newPahoDriver dials req's broker, constructs the paho.Client over that
// connection, and performs CONNECT, translating the v5 CONNACK (or, for a
// v3.1.1 session, the reason code paho.golang still derives from the
// 3.1.1 return code) into the blocking Driver.Connect contract.
// req.ReconnectBackoff is accepted but unused here: paho.golang never
// reconnects on its own, so there is no retry interval to bound in the
// first place — a connection that drops surfaces via OnClientError and
// stays dropped, which already satisfies spec.md §4.3.1 step 4's "no
// silent reconnect during a test" more directly than bounding one would.
func newPahoDriver(ctx context.Context, req ConnectRequest, cb DriverCallbacks) (*pahoDriver, ConnAckResult, error) {
	addr := fmt.Sprintf("%s:%d", req.Host, req.Port)

	var conn net.Conn
	var err error
	if req.TLSPaths != nil && !req.TLSPaths.empty() {
		var tlsConfig *tls.Config
		tlsConfig, err = buildTLSConfig(*req.TLSPaths)
		if err != nil {
			return nil, ConnAckResult{}, err
		}
		dialer := &tls.Dialer{Config: tlsConfig}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, ConnAckResult{}, apperr.Wrap(apperr.KindLibraryError, err, "dialing mqtt broker %s", addr)
	}

	d := &pahoDriver{conn: conn, cb: cb}

	client := paho.NewClient(paho.ClientConfig{
		ClientID: req.ClientID,
		Conn:     conn,
		Session:  state.NewInMemory(),
		OnPublishReceived: []func(paho.PublishReceived) (bool, error){
			d.onPublishReceived,
		},
		OnServerDisconnect: d.onServerDisconnect,
		OnClientError:      d.onClientError,
		PacketTimeout:      30 * time.Second,
	})
	client.SetDebugLogger(slogBridge{level: LogDebug})
	client.SetErrorLogger(slogBridge{level: LogError})
	d.client = client

	connectPacket := &paho.Connect{
		ClientID:   req.ClientID,
		KeepAlive:  uint16(req.KeepaliveSeconds),
		CleanStart: req.CleanSession,
	}
	if req.V5 {
		connectPacket.Properties = connectPropertiesFromRpc(req.Properties)
	}

	ack, err := client.Connect(ctx, connectPacket)
	if err != nil {
		_ = conn.Close()
		return nil, ConnAckResult{}, apperr.Wrap(apperr.KindLibraryError, err, "mqtt connect %s", addr)
	}
	if ack.ReasonCode >= 0x80 {
		_ = conn.Close()
		return nil, ConnAckResult{}, apperr.New(apperr.KindLibraryError, "mqtt connect %s refused: reason code %d", addr, ack.ReasonCode)
	}

	return d, ConnAckResult{
		ReasonCode:     int32(ack.ReasonCode),
		SessionPresent: ack.SessionPresent,
		Properties:     *connAckPropertiesToRpc(ack.Properties),
	}, nil
}

func (d *pahoDriver) Connect(ctx context.Context, req ConnectRequest) (ConnAckResult, error) {
	return ConnAckResult{}, apperr.New(apperr.KindInitialisation, "Connect must be called via newPahoDriver")
}

func (d *pahoDriver) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	resp, err := d.client.Publish(ctx, &paho.Publish{
		Topic:      req.Topic,
		QoS:        byte(req.QoS),
		Retain:     req.Retain,
		Payload:    req.Payload,
		Properties: publishPropertiesFromRpc(req.Properties),
	})
	if err != nil {
		return PublishResult{}, apperr.Wrap(apperr.KindLibraryError, err, "mqtt publish %s", req.Topic)
	}
	if resp == nil {
		// QoS 0: no ack to report, and none expected.
		return PublishResult{ReasonCode: 0, Properties: rpcproto.MqttProperties{}}, nil
	}
	return PublishResult{
		ReasonCode: int32(resp.ReasonCode),
		Properties: *pubAckPropertiesToRpc(resp.Properties),
	}, nil
}

func (d *pahoDriver) Subscribe(ctx context.Context, req SubscribeRequest) (SubAckResult, error) {
	subs := make([]paho.SubscribeOptions, len(req.Filters))
	for i, f := range req.Filters {
		subs[i] = paho.SubscribeOptions{
			Topic:             f,
			QoS:               byte(req.QoS),
			RetainHandling:    byte(req.RetainHandling),
			NoLocal:           req.NoLocal,
			RetainAsPublished: req.RetainAsPublished,
		}
	}

	suback, err := d.client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: subs,
		Properties:    subscribePropertiesFromRpc(req.Properties),
	})
	if err != nil {
		return SubAckResult{}, apperr.Wrap(apperr.KindLibraryError, err, "mqtt subscribe %v", req.Filters)
	}

	granted := make([]int32, len(suback.Reasons))
	for i, r := range suback.Reasons {
		granted[i] = int32(r)
	}
	return SubAckResult{GrantedQoS: granted, Properties: *subAckPropertiesToRpc(suback.Properties)}, nil
}

func (d *pahoDriver) Unsubscribe(ctx context.Context, req UnsubscribeRequest) (UnsubAckResult, error) {
	unsuback, err := d.client.Unsubscribe(ctx, &paho.Unsubscribe{
		Topics:     req.Filters,
		Properties: unsubscribePropertiesFromRpc(req.Properties),
	})
	if err != nil {
		return UnsubAckResult{}, apperr.Wrap(apperr.KindLibraryError, err, "mqtt unsubscribe %v", req.Filters)
	}
	return UnsubAckResult{Properties: *unsubAckPropertiesToRpc(unsuback.Properties)}, nil
}

func (d *pahoDriver) Disconnect(ctx context.Context, req DisconnectRequest) (DisconnectResult, error) {
	props := disconnectPropertiesFromRpc(req.Properties)
	err := d.client.Disconnect(&paho.Disconnect{ReasonCode: byte(req.ReasonCode), Properties: props})
	if err != nil {
		return DisconnectResult{}, apperr.Wrap(apperr.KindLibraryError, err, "mqtt disconnect")
	}
	return DisconnectResult{Properties: rpcproto.MqttProperties{}}, nil
}

func (d *pahoDriver) Close() {
	if d.client != nil {
		_ = d.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	}
	if d.conn != nil {
		_ = d.conn.Close()
	}
}

// onPublishReceived is paho.golang's broker-pushed-message callback.
// Returning (true, nil) tells the library this driver has fully handled
// the packet, so it never runs another OnPublishReceived hook or any
// built-in Router.
func (d *pahoDriver) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	if d.cb.OnMessage == nil || pr.Packet == nil {
		return true, nil
	}
	props := rpcproto.MqttProperties{}
	if pr.Packet.Properties != nil {
		props = *messagePropertiesToRpc(pr.Packet.Properties)
	}
	d.cb.OnMessage(pr.Packet.Topic, pr.Packet.Payload, int32(pr.Packet.QoS), pr.Packet.Retain, props)
	return true, nil
}

// onServerDisconnect handles a broker-initiated DISCONNECT packet.
func (d *pahoDriver) onServerDisconnect(disc *paho.Disconnect) {
	if d.cb.OnDisconnect == nil {
		return
	}
	props := rpcproto.MqttProperties{}
	if disc != nil && disc.Properties != nil {
		props = *disconnectAckPropertiesToRpc(disc.Properties)
	}
	reasonCode := int32(0)
	if disc != nil {
		reasonCode = int32(disc.ReasonCode)
	}
	d.cb.OnDisconnect(reasonCode, props)
}

// onClientError handles a transport-level failure (connection drop,
// protocol error) that isn't a clean server DISCONNECT.
func (d *pahoDriver) onClientError(err error) {
	if d.cb.OnDisconnect == nil || err == nil {
		return
	}
	d.cb.OnDisconnect(0, rpcproto.MqttProperties{ReasonString: err.Error()})
}

func userPropertiesFromRpc(in []rpcproto.MqttUserProperty) paho.UserProperties {
	if len(in) == 0 {
		return nil
	}
	out := make(paho.UserProperties, len(in))
	for i, p := range in {
		out[i] = paho.UserProperty{Key: p.Key, Value: p.Value}
	}
	return out
}

func userPropertiesToRpc(in paho.UserProperties) []rpcproto.MqttUserProperty {
	if len(in) == 0 {
		return nil
	}
	out := make([]rpcproto.MqttUserProperty, len(in))
	for i, p := range in {
		out[i] = rpcproto.MqttUserProperty{Key: p.Key, Value: p.Value}
	}
	return out
}

func u16ToU32(in *uint16) *uint32 {
	if in == nil {
		return nil
	}
	v := uint32(*in)
	return &v
}

func byteToBool(in *byte) *bool {
	if in == nil {
		return nil
	}
	v := *in != 0
	return &v
}

func byteToU32(in *byte) *uint32 {
	if in == nil {
		return nil
	}
	v := uint32(*in)
	return &v
}

func boolToBytePtr(in *bool) *byte {
	if in == nil {
		return nil
	}
	var v byte
	if *in {
		v = 1
	}
	return &v
}

func derefBoolOrFalse(in *bool) bool {
	if in == nil {
		return false
	}
	return *in
}

func boolPtr(in bool) *bool {
	return &in
}

func u32ToU16Ptr(in *uint32) *uint16 {
	if in == nil {
		return nil
	}
	v := uint16(*in)
	return &v
}

// connectPropertiesFromRpc renders a v5 CONNECT property list. Only the
// fields this agent ever sets outbound are populated (spec.md §4.1).
func connectPropertiesFromRpc(props *rpcproto.MqttProperties) *paho.ConnectProperties {
	if props == nil {
		return &paho.ConnectProperties{}
	}
	return &paho.ConnectProperties{
		RequestResponseInfo: derefBoolOrFalse(props.RequestResponseInformation),
		User:                userPropertiesFromRpc(props.UserProperties),
	}
}

// connAckPropertiesToRpc copies the CONNACK property list paho.golang
// parsed off the wire into the control-plane's flattened representation.
// It deep-copies every field rather than retaining ack.Properties itself
// (spec.md §9, "lifetime of property lists").
func connAckPropertiesToRpc(p *paho.ConnackProperties) *rpcproto.MqttProperties {
	if p == nil {
		return &rpcproto.MqttProperties{}
	}
	return propcodec.ConnAckFromLibrary(propcodec.LibraryConnAckProps{
		SessionExpiryInterval:           p.SessionExpiryInterval,
		ReceiveMaximum:                  u16ToU32(p.ReceiveMaximum),
		MaximumQoS:                      byteToU32(p.MaximumQoS),
		RetainAvailable:                 boolPtr(p.RetainAvailable),
		MaximumPacketSize:               p.MaximumPacketSize,
		AssignedClientId:                p.AssignedClientID,
		ReasonString:                    p.ReasonString,
		WildcardSubscriptionAvailable:   boolPtr(p.WildcardSubAvailable),
		SubscriptionIdentifierAvailable: boolPtr(p.SubIDAvailable),
		SharedSubscriptionAvailable:     boolPtr(p.SharedSubAvailable),
		ServerKeepAlive:                 u16ToU32(p.ServerKeepAlive),
		ResponseInformation:             p.ResponseInfo,
		ServerReference:                 p.ServerReference,
		TopicAliasMaximum:               u16ToU32(p.TopicAliasMaximum),
		UserProperties:                  userPropertiesToRpc(p.User),
	})
}

func publishPropertiesFromRpc(props *rpcproto.MqttProperties) *paho.PublishProperties {
	if props == nil {
		return nil
	}
	out := &paho.PublishProperties{
		ContentType:     props.ContentType,
		ResponseTopic:   props.ResponseTopic,
		CorrelationData: props.CorrelationData,
		MessageExpiry:   props.MessageExpiryInterval,
		User:            userPropertiesFromRpc(props.UserProperties),
	}
	if props.PayloadFormatIndicator != nil {
		v := byte(*props.PayloadFormatIndicator)
		out.PayloadFormat = &v
	}
	if props.SubscriptionIdentifier != nil {
		id := int(*props.SubscriptionIdentifier)
		out.SubscriptionIdentifier = &id
	}
	return out
}

func messagePropertiesToRpc(p *paho.PublishProperties) *rpcproto.MqttProperties {
	if p == nil {
		return &rpcproto.MqttProperties{}
	}
	return propcodec.MessageFromLibrary(propcodec.LibraryMessageProps{
		PayloadFormatIndicator: byteToU32(p.PayloadFormat),
		ContentType:            p.ContentType,
		UserProperties:         userPropertiesToRpc(p.User),
		MessageExpiryInterval:  p.MessageExpiry,
		ResponseTopic:          p.ResponseTopic,
		CorrelationData:        p.CorrelationData,
	})
}

func pubAckPropertiesToRpc(p *paho.PublishResponseProperties) *rpcproto.MqttProperties {
	if p == nil {
		return &rpcproto.MqttProperties{}
	}
	return propcodec.PubAckFromLibrary(p.ReasonString, userPropertiesToRpc(p.User))
}

func subscribePropertiesFromRpc(props *rpcproto.MqttProperties) *paho.SubscribeProperties {
	if props == nil {
		return nil
	}
	out := &paho.SubscribeProperties{User: userPropertiesFromRpc(props.UserProperties)}
	if props.SubscriptionIdentifier != nil {
		id := int(*props.SubscriptionIdentifier)
		out.SubscriptionIdentifier = &id
	}
	return out
}

func subAckPropertiesToRpc(p *paho.SubackProperties) *rpcproto.MqttProperties {
	if p == nil {
		return &rpcproto.MqttProperties{}
	}
	return propcodec.SubAckFromLibrary(userPropertiesToRpc(p.User))
}

func unsubscribePropertiesFromRpc(props *rpcproto.MqttProperties) *paho.UnsubscribeProperties {
	if props == nil {
		return nil
	}
	return &paho.UnsubscribeProperties{User: userPropertiesFromRpc(props.UserProperties)}
}

func unsubAckPropertiesToRpc(p *paho.UnsubackProperties) *rpcproto.MqttProperties {
	if p == nil {
		return &rpcproto.MqttProperties{}
	}
	return propcodec.SubAckFromLibrary(userPropertiesToRpc(p.User))
}

func disconnectPropertiesFromRpc(props *rpcproto.MqttProperties) *paho.DisconnectProperties {
	if props == nil {
		return nil
	}
	return &paho.DisconnectProperties{
		SessionExpiryInterval: props.SessionExpiryInterval,
		ReasonString:          props.ReasonString,
		ServerReference:       props.ServerReference,
		User:                  userPropertiesFromRpc(props.UserProperties),
	}
}

func disconnectAckPropertiesToRpc(p *paho.DisconnectProperties) *rpcproto.MqttProperties {
	if p == nil {
		return &rpcproto.MqttProperties{}
	}
	return propcodec.DisconnectFromLibrary(p.SessionExpiryInterval, p.ReasonString, p.ServerReference, userPropertiesToRpc(p.User))
}
