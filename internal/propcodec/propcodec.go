// Package propcodec converts between MQTT v5 property lists (as carried
// by the session's underlying client library) and the control-plane's
// flattened rpcproto.MqttProperties wire message.
//
// Coverage is fixed at design time by packet kind (spec.md §4.1): each
// function below only touches the fields valid for that packet. Unknown
// fields on the inbound side are simply not present on our typed struct
// and so can't arise; a library that hands back an unrecognized property
// id is expected to log and skip before it ever reaches here.
package propcodec

import (
	"log/slog"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

// ProtocolVersion distinguishes the two MQTT protocol generations a
// Session can be configured for.
type ProtocolVersion int

const (
	V311 ProtocolVersion = iota
	V5
)

// v5OnlyFields names every caller-supplied field this codec will drop
// for a v3.1.1 session, for the warn log in DropV5Only.
var v5OnlyFields = []string{
	"user_properties", "response_topic", "correlation_data",
	"payload_format_indicator", "message_expiry_interval", "content_type",
	"request_response_information",
}

// DropV5Only strips v5-only fields from props when version is V311,
// logging one warning that lists every non-empty field it drops (spec.md §4.1 "v3.1.1
// degradation"). It returns props unchanged for V5 sessions, or nil
// unchanged for a nil input.
func DropV5Only(version ProtocolVersion, props *rpcproto.MqttProperties) *rpcproto.MqttProperties {
	if props == nil || version == V5 {
		return props
	}
	out := *props
	dropped := make([]string, 0, len(v5OnlyFields))
	if len(out.UserProperties) > 0 {
		dropped = append(dropped, "user_properties")
		out.UserProperties = nil
	}
	if out.ResponseTopic != "" {
		dropped = append(dropped, "response_topic")
		out.ResponseTopic = ""
	}
	if len(out.CorrelationData) > 0 {
		dropped = append(dropped, "correlation_data")
		out.CorrelationData = nil
	}
	if out.PayloadFormatIndicator != nil {
		dropped = append(dropped, "payload_format_indicator")
		out.PayloadFormatIndicator = nil
	}
	if out.MessageExpiryInterval != nil {
		dropped = append(dropped, "message_expiry_interval")
		out.MessageExpiryInterval = nil
	}
	if out.ContentType != "" {
		dropped = append(dropped, "content_type")
		out.ContentType = ""
	}
	if out.RequestResponseInformation != nil {
		dropped = append(dropped, "request_response_information")
		out.RequestResponseInformation = nil
	}
	if len(dropped) > 0 {
		slog.Warn("dropping v5-only properties for a v3.1.1 session", "fields", dropped)
	}
	return &out
}

// ConnectOptions holds the CONNECT properties BuildConnectProperties
// turns into a v5 CONNECT property list: request-response-information
// and user-properties. Only the fields this agent ever sets on an
// outbound CONNECT are included; the rest of MqttProperties is
// reply-only.
type ConnectOptions struct {
	RequestResponseInformation *bool
	UserProperties              []rpcproto.MqttUserProperty
}

// BuildConnectProperties renders ConnectOptions as the ordered property
// list a v5 CONNECT carries. For a v3.1.1 session it returns nil: there
// is no CONNECT property list on the wire at all.
func BuildConnectProperties(version ProtocolVersion, opts ConnectOptions) *rpcproto.MqttProperties {
	if version != V5 {
		if opts.RequestResponseInformation != nil || len(opts.UserProperties) > 0 {
			slog.Warn("dropping v5-only CONNECT properties for a v3.1.1 session")
		}
		return nil
	}
	props := &rpcproto.MqttProperties{}
	if opts.RequestResponseInformation != nil {
		props.RequestResponseInformation = opts.RequestResponseInformation
	}
	props.UserProperties = opts.UserProperties
	return props
}

// ConnAckFromLibrary copies the CONNACK properties the client library
// handed back into the control-plane reply, per spec.md's CONNACK row.
func ConnAckFromLibrary(lib LibraryConnAckProps) *rpcproto.MqttProperties {
	p := &rpcproto.MqttProperties{
		SessionExpiryInterval:           lib.SessionExpiryInterval,
		ReceiveMaximum:                   lib.ReceiveMaximum,
		MaximumQoS:                       lib.MaximumQoS,
		RetainAvailable:                  lib.RetainAvailable,
		MaximumPacketSize:                lib.MaximumPacketSize,
		AssignedClientId:                 lib.AssignedClientId,
		ReasonString:                     lib.ReasonString,
		WildcardSubscriptionAvailable:    lib.WildcardSubscriptionAvailable,
		SubscriptionIdentifierAvailable:  lib.SubscriptionIdentifierAvailable,
		SharedSubscriptionAvailable:      lib.SharedSubscriptionAvailable,
		ServerKeepAlive:                  lib.ServerKeepAlive,
		ResponseInformation:              lib.ResponseInformation,
		ServerReference:                  lib.ServerReference,
		TopicAliasMaximum:                lib.TopicAliasMaximum,
		UserProperties:                   lib.UserProperties,
	}
	return p
}

// LibraryConnAckProps is the subset of a v5 CONNACK's property list the
// session adapter's on_connect callback hands to the codec. It mirrors
// the library's own property accessors one field at a time so a deep
// copy happens here, not a retained pointer into library-owned memory
// (spec.md §9, "Lifetime of property lists").
type LibraryConnAckProps struct {
	SessionExpiryInterval           *uint32
	ReceiveMaximum                  *uint32
	MaximumQoS                      *uint32
	RetainAvailable                 *bool
	MaximumPacketSize                *uint32
	AssignedClientId                 string
	ReasonString                     string
	WildcardSubscriptionAvailable    *bool
	SubscriptionIdentifierAvailable  *bool
	SharedSubscriptionAvailable      *bool
	ServerKeepAlive                  *uint32
	ResponseInformation               string
	ServerReference                   string
	TopicAliasMaximum                 *uint32
	UserProperties                    []rpcproto.MqttUserProperty
}

// BuildPublishProperties prepares the outbound PUBLISH properties by
// applying DropV5Only. MqttProperties is an unordered struct, so no
// ordering happens here; the order on the wire is whatever the client
// library's packet encoder writes. User-properties keep their order.
func BuildPublishProperties(version ProtocolVersion, props *rpcproto.MqttProperties) *rpcproto.MqttProperties {
	return DropV5Only(version, props)
}

// PubAckFromLibrary copies PUBACK properties (reason-string, user-property).
func PubAckFromLibrary(reasonString string, userProps []rpcproto.MqttUserProperty) *rpcproto.MqttProperties {
	return &rpcproto.MqttProperties{ReasonString: reasonString, UserProperties: userProps}
}

// MessageFromLibrary copies the properties of an incoming PUBLISH
// (payload-format-indicator, content-type, user-property,
// message-expiry-interval, response-topic, correlation-data).
func MessageFromLibrary(p LibraryMessageProps) *rpcproto.MqttProperties {
	return &rpcproto.MqttProperties{
		PayloadFormatIndicator: p.PayloadFormatIndicator,
		ContentType:            p.ContentType,
		UserProperties:         p.UserProperties,
		MessageExpiryInterval:  p.MessageExpiryInterval,
		ResponseTopic:          p.ResponseTopic,
		CorrelationData:        p.CorrelationData,
	}
}

// LibraryMessageProps is the PUBLISH-specific property subset.
type LibraryMessageProps struct {
	PayloadFormatIndicator *uint32
	ContentType            string
	UserProperties         []rpcproto.MqttUserProperty
	MessageExpiryInterval  *uint32
	ResponseTopic          string
	CorrelationData        []byte
}

// DisconnectPropertiesOut prepares the outbound DISCONNECT properties
// (session-expiry, reason-string, server-reference, user-properties) by
// applying DropV5Only; as with BuildPublishProperties, the wire order is
// left to the client library's encoder.
func DisconnectPropertiesOut(version ProtocolVersion, props *rpcproto.MqttProperties) *rpcproto.MqttProperties {
	return DropV5Only(version, props)
}

// DisconnectFromLibrary copies DISCONNECT properties handed back by the
// library (session-expiry, reason-string, server-reference, user-property).
func DisconnectFromLibrary(sessionExpiry *uint32, reasonString, serverRef string, userProps []rpcproto.MqttUserProperty) *rpcproto.MqttProperties {
	return &rpcproto.MqttProperties{
		SessionExpiryInterval: sessionExpiry,
		ReasonString:          reasonString,
		ServerReference:       serverRef,
		UserProperties:        userProps,
	}
}

// SubAckFromLibrary copies SUBACK/UNSUBACK properties: only user-property
// is defined for these packets; reason codes come from the broker
// library's granted-qos array, handled by the session adapter directly.
func SubAckFromLibrary(userProps []rpcproto.MqttUserProperty) *rpcproto.MqttProperties {
	return &rpcproto.MqttProperties{UserProperties: userProps}
}

// SubscriptionIdentifierVarint encodes a subscription id (1..268435455)
// as a standalone SUBSCRIBE property list; the endpoint has already
// validated the range and that the session is v5 before calling this.
func SubscriptionIdentifierVarint(id uint32) *rpcproto.MqttProperties {
	return &rpcproto.MqttProperties{SubscriptionIdentifier: &id}
}

// BuildSubscribeProperties renders the SUBSCRIBE property list: the
// caller-supplied properties (degraded per DropV5Only for a v3.1.1
// session) merged with the subscription identifier, if any. subID is
// nil for a v3.1.1 session — the endpoint rejects subscription_id on
// one before this is ever called.
func BuildSubscribeProperties(version ProtocolVersion, props *rpcproto.MqttProperties, subID *uint32) *rpcproto.MqttProperties {
	out := DropV5Only(version, props)
	if subID == nil {
		return out
	}
	merged := rpcproto.MqttProperties{}
	if out != nil {
		merged = *out
	}
	withID := SubscriptionIdentifierVarint(*subID)
	merged.SubscriptionIdentifier = withID.SubscriptionIdentifier
	return &merged
}
