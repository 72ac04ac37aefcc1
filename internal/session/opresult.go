package session

import "github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"

// OpResult is the tagged variant spec.md §3 defines: exactly one of the
// Connected/Disconnected/Subscribed/Unsubscribed/Published/Failed
// constructors below produces any given value. Modeled as a sealed
// interface rather than a single struct with optional fields, the same
// "oneof" shape the control-plane's own generated messages would use.
type OpResult interface {
	isOpResult()
}

type ConnectedResult struct {
	ReasonCode int32
	Flags      ConnAckFlags
	Props      *rpcproto.MqttProperties
}

// ConnAckFlags carries the parts of a CONNACK outside the reason code
// and property list.
type ConnAckFlags struct {
	SessionPresent bool
}

type DisconnectedResult struct {
	ReasonCode int32
	Props      *rpcproto.MqttProperties
}

type SubscribedResult struct {
	Mid         uint32
	GrantedQoS  []int32
	Props       *rpcproto.MqttProperties
}

type UnsubscribedResult struct {
	Mid   uint32
	Props *rpcproto.MqttProperties
}

type PublishedResult struct {
	Mid        uint32
	ReasonCode int32
	Props      *rpcproto.MqttProperties
}

type FailedResult struct {
	Code    int
	Message string
}

func (ConnectedResult) isOpResult()     {}
func (DisconnectedResult) isOpResult()  {}
func (SubscribedResult) isOpResult()    {}
func (UnsubscribedResult) isOpResult()  {}
func (PublishedResult) isOpResult()     {}
func (FailedResult) isOpResult()        {}
