package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/pendingop"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/propcodec"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

// State is a Session's position in the lifecycle spec.md §3 names:
// new → connecting → connected → disconnecting → closed. Once closed, no
// further ops are accepted; a subsequent Disconnect is a no-op.
type State int

const (
	StateNew State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// TLSMaterial holds one of two mutually-exclusive representations of a
// session's TLS credentials: in-memory PEM text before Start, or paths to
// temp files Start wrote them to. Never both at once (spec.md §3
// invariant 4).
type TLSMaterial struct {
	CAList string
	Cert   string
	Key    string
}

// Empty reports whether all three fields are unset.
func (t *TLSMaterial) Empty() bool {
	return t == nil || (t.CAList == "" && t.Cert == "" && t.Key == "")
}

// tempPaths is the post-Start on-disk representation of TLSMaterial.
type tempPaths struct {
	ca, cert, key string
}

func (p *tempPaths) empty() bool {
	return p == nil || (p.ca == "" && p.cert == "" && p.key == "")
}

// Config is everything CreateMqttConnection needs to build a Session,
// already validated by internal/control.
type Config struct {
	ClientID                   string
	Host                       string
	Port                       int32
	KeepaliveSeconds           int32
	CleanSession               bool
	Version                    propcodec.ProtocolVersion
	TLS                        *TLSMaterial
	RequestResponseInformation *bool
	UserProperties             []rpcproto.MqttUserProperty
	// ReconnectBackoff is the single fixed backoff spec.md §4.3.1 step 4
	// requires ("one day") so the driver never silently reconnects
	// during a test. Overridable so tests don't wait a day.
	ReconnectBackoff time.Duration
}

// RequestId tags one in-flight op on a Session (spec.md §3). The two
// constants below reserve ids 0 and 1 for CONNECT and DISCONNECT, which
// are parked in Session's connectPending/disconnectPending fields rather
// than the table; every other op uses a locally-generated id (the
// Session's nextID counter, advanced in adapter.go's beginDynamicOp)
// standing in for the broker-assigned packet identifier the chosen
// driver doesn't expose — see DESIGN.md.
type RequestId uint32

const (
	ConnectTag    RequestId = 0
	DisconnectTag RequestId = 1
	firstDynamicID RequestId = 2
)

// Session owns one MQTT client instance end to end, from spec.md §3.
type Session struct {
	connectionID uint32
	cfg          Config

	mu       sync.Mutex // guards driver, state, tempPaths, nextID
	state    State
	driver   Driver
	temp     *tempPaths
	nextID   RequestId

	connectPending    *pendingop.Op[OpResult]
	disconnectPending *pendingop.Op[OpResult]
	dynamicPending    *pendingop.Table[RequestId, OpResult]

	onMessage    func(msg rpcproto.Mqtt5Message)
	onDisconnect func(disc rpcproto.Mqtt5Disconnect, err error)
}

// ConnectionID satisfies registry.Session.
func (s *Session) ConnectionID() uint32 { return s.connectionID }

// ClientID returns the configured MQTT client id, used for logging.
func (s *Session) ClientID() string { return s.cfg.ClientID }

// Version returns the session's configured protocol version.
func (s *Session) Version() propcodec.ProtocolVersion { return s.cfg.Version }

// SetEventSink installs the callbacks Start leaves unset at
// construction time, invoked for broker-pushed messages and unsolicited
// disconnects. internal/control calls this once CreateMqttConnection
// has a ConnectionId to close over.
func (s *Session) SetEventSink(onMessage func(rpcproto.Mqtt5Message), onDisconnect func(rpcproto.Mqtt5Disconnect, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMessage = onMessage
	s.onDisconnect = onDisconnect
}

func (s *Session) stateString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.String()
}

func (s *Session) String() string {
	return fmt.Sprintf("session{id=%d client=%q state=%s}", s.connectionID, s.cfg.ClientID, s.stateString())
}
