// Package rpcproto declares the two control-plane gRPC services described
// in the mqtt-client-control protocol (MqttAgentDiscovery, outbound from
// the agent, and MqttClientControl, inbound to it) plus their message
// types.
//
// The message types are plain Go structs rather than protoc-gen-go
// output: this environment cannot invoke protoc. control.proto and
// discovery.proto alongside this file record the services and part of
// the messages; the Go structs here are the complete set. codec.go registers a JSON-based grpc codec
// under the standard "proto" content-subtype name so these structs travel
// over a real google.golang.org/grpc transport without any special dial
// or call options.
package rpcproto

// MqttUserProperty is one MQTT v5 user-property key/value pair. Order is
// preserved end to end: it is the only property whose ordering the wire
// format guarantees to a listener.
type MqttUserProperty struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// MqttProperties is the control-plane's flattened view of an MQTT v5
// property list. Every field is optional; PropertyCodec fills in only
// the ones relevant to the packet kind being converted (see spec.md
// §4.1's per-packet coverage table).
type MqttProperties struct {
	SessionExpiryInterval           *uint32            `json:"session_expiry_interval,omitempty"`
	ReceiveMaximum                  *uint32            `json:"receive_maximum,omitempty"`
	MaximumQoS                      *uint32            `json:"maximum_qos,omitempty"`
	RetainAvailable                 *bool              `json:"retain_available,omitempty"`
	MaximumPacketSize               *uint32            `json:"maximum_packet_size,omitempty"`
	AssignedClientId                string             `json:"assigned_client_id,omitempty"`
	ReasonString                    string             `json:"reason_string,omitempty"`
	WildcardSubscriptionAvailable   *bool              `json:"wildcard_subscription_available,omitempty"`
	SubscriptionIdentifierAvailable *bool              `json:"subscription_identifier_available,omitempty"`
	SharedSubscriptionAvailable     *bool              `json:"shared_subscription_available,omitempty"`
	ServerKeepAlive                 *uint32            `json:"server_keep_alive,omitempty"`
	ResponseInformation             string             `json:"response_information,omitempty"`
	ServerReference                 string             `json:"server_reference,omitempty"`
	TopicAliasMaximum               *uint32            `json:"topic_alias_maximum,omitempty"`
	PayloadFormatIndicator          *uint32            `json:"payload_format_indicator,omitempty"`
	ContentType                     string             `json:"content_type,omitempty"`
	MessageExpiryInterval           *uint32            `json:"message_expiry_interval,omitempty"`
	ResponseTopic                   string             `json:"response_topic,omitempty"`
	CorrelationData                 []byte             `json:"correlation_data,omitempty"`
	RequestResponseInformation      *bool              `json:"request_response_information,omitempty"`
	SubscriptionIdentifier          *uint32            `json:"subscription_identifier,omitempty"`
	UserProperties                  []MqttUserProperty `json:"user_properties,omitempty"`
}

// Mqtt5Message is a broker-pushed PUBLISH forwarded to the controller.
type Mqtt5Message struct {
	Topic      string          `json:"topic"`
	Payload    []byte          `json:"payload"`
	Qos        int32           `json:"qos"`
	Retain     bool            `json:"retain"`
	Properties *MqttProperties `json:"properties,omitempty"`
}

// Mqtt5Disconnect carries a DISCONNECT reason back to the controller,
// whether caller-initiated or broker-initiated.
type Mqtt5Disconnect struct {
	ReasonCode int32           `json:"reason_code"`
	Properties *MqttProperties `json:"properties,omitempty"`
}

// Mqtt5ConnAck is the reply to CreateMqttConnection.
type Mqtt5ConnAck struct {
	ReasonCode     int32           `json:"reason_code"`
	SessionPresent bool            `json:"session_present"`
	Properties     *MqttProperties `json:"properties,omitempty"`
}

// MqttSubscribeReply is the reply to SubscribeMqtt and UnsubscribeMqtt.
type MqttSubscribeReply struct {
	ReasonCodes []int32        `json:"reason_codes"`
	Properties  *MqttProperties `json:"properties,omitempty"`
}

// MqttPublishReply is the reply to PublishMqtt.
type MqttPublishReply struct {
	ReasonCode int32           `json:"reason_code"`
	Properties *MqttProperties `json:"properties,omitempty"`
}

// MqttSubscribeFilter is one entry of a SubscribeMqtt request. Qos,
// NoLocal, RetainAsPublished and RetainHandling are carried per filter
// on the wire; the endpoint requires every filter in one request to
// agree on all four before it ever reaches internal/session, since the
// broker library only accepts one options tuple per multi-filter
// SUBSCRIBE (spec.md §4.5, §8 "QoS values mismatched").
type MqttSubscribeFilter struct {
	Filter            string `json:"filter"`
	Qos               int32  `json:"qos"`
	NoLocal           bool   `json:"no_local"`
	RetainAsPublished bool   `json:"retain_as_published"`
	RetainHandling    int32  `json:"retain_handling"`
}

// --- MqttClientControl (inbound) request/response pairs ---

type ShutdownAgentRequest struct {
	Reason string `json:"reason"`
}

type ShutdownAgentResponse struct{}

type TLSMaterial struct {
	CaList string `json:"ca_list"`
	Cert   string `json:"cert"`
	Key    string `json:"key"`
}

type CreateMqttConnectionRequest struct {
	ClientId                   string             `json:"client_id"`
	Host                       string             `json:"host"`
	Port                       int32              `json:"port"`
	Keepalive                  int32              `json:"keepalive"`
	CleanSession               bool               `json:"clean_session"`
	ProtocolVersion            string             `json:"protocol_version"` // "v3.1.1" | "v5.0"
	Timeout                    float64            `json:"timeout"`
	Tls                        *TLSMaterial       `json:"tls,omitempty"`
	RequestResponseInformation *bool              `json:"request_response_information,omitempty"`
	UserProperties             []MqttUserProperty `json:"user_properties,omitempty"`
}

type CreateMqttConnectionResponse struct {
	ConnectionId uint32       `json:"connection_id"`
	ConnAck      Mqtt5ConnAck `json:"conn_ack"`
}

type CloseMqttConnectionRequest struct {
	ConnectionId uint32             `json:"connection_id"`
	Timeout      float64            `json:"timeout"`
	Reason       int32              `json:"reason"`
	UserProperties []MqttUserProperty `json:"user_properties,omitempty"`
}

type CloseMqttConnectionResponse struct{}

type SubscribeMqttRequest struct {
	ConnectionId   uint32                `json:"connection_id"`
	Timeout        float64               `json:"timeout"`
	SubscriptionId *uint32               `json:"subscription_id,omitempty"`
	Filters        []MqttSubscribeFilter `json:"filters"`
	UserProperties []MqttUserProperty    `json:"user_properties,omitempty"`
}

type SubscribeMqttResponse struct {
	Reply MqttSubscribeReply `json:"reply"`
}

type UnsubscribeMqttRequest struct {
	ConnectionId   uint32             `json:"connection_id"`
	Timeout        float64            `json:"timeout"`
	Filters        []string           `json:"filters"`
	UserProperties []MqttUserProperty `json:"user_properties,omitempty"`
}

type UnsubscribeMqttResponse struct {
	Reply MqttSubscribeReply `json:"reply"`
}

type PublishMqttRequest struct {
	ConnectionId  uint32             `json:"connection_id"`
	Timeout       float64            `json:"timeout"`
	Qos           int32              `json:"qos"`
	Retain        bool               `json:"retain"`
	Topic         string             `json:"topic"`
	Payload       []byte             `json:"payload"`
	Properties    *MqttProperties    `json:"properties,omitempty"`
}

type PublishMqttResponse struct {
	Reply MqttPublishReply `json:"reply"`
}

// --- MqttAgentDiscovery (outbound) request/response pairs ---

type RegisterAgentRequest struct {
	AgentId string `json:"agent_id"`
}

type RegisterAgentResponse struct {
	LocalIp string `json:"local_ip"`
}

type DiscoveryAgentRequest struct {
	AgentId string `json:"agent_id"`
	Address string `json:"address"`
	Port    int32  `json:"port"`
}

type DiscoveryAgentResponse struct {
	Ok bool `json:"ok"`
}

type UnregisterAgentRequest struct {
	AgentId string `json:"agent_id"`
	Reason  string `json:"reason"`
}

type UnregisterAgentResponse struct {
	Ok bool `json:"ok"`
}

type OnReceiveMessageRequest struct {
	AgentId      string       `json:"agent_id"`
	ConnectionId uint32       `json:"connection_id"`
	Message      Mqtt5Message `json:"message"`
}

type OnReceiveMessageResponse struct{}

type OnMqttDisconnectRequest struct {
	AgentId      string          `json:"agent_id"`
	ConnectionId uint32          `json:"connection_id"`
	Disconnect   Mqtt5Disconnect `json:"disconnect"`
	Error        string          `json:"error,omitempty"`
}

type OnMqttDisconnectResponse struct{}
