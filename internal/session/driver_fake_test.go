package session

import (
	"context"
	"sync"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

// fakeDriver is a scriptable Driver double so SessionAdapter's state
// machine, timeout, and late-callback-discard behavior can be tested
// without a real broker.
type fakeDriver struct {
	mu sync.Mutex

	connectDelay func() (ConnAckResult, error)
	publishFn    func(PublishRequest) (PublishResult, error)
	subscribeFn  func(SubscribeRequest) (SubAckResult, error)
	unsubFn      func(UnsubscribeRequest) (UnsubAckResult, error)
	disconnectFn func(DisconnectRequest) (DisconnectResult, error)

	closed bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		connectDelay: func() (ConnAckResult, error) { return ConnAckResult{ReasonCode: 0}, nil },
		publishFn:    func(PublishRequest) (PublishResult, error) { return PublishResult{}, nil },
		subscribeFn: func(req SubscribeRequest) (SubAckResult, error) {
			granted := make([]int32, len(req.Filters))
			for i := range granted {
				granted[i] = req.QoS
			}
			return SubAckResult{GrantedQoS: granted}, nil
		},
		unsubFn:      func(UnsubscribeRequest) (UnsubAckResult, error) { return UnsubAckResult{}, nil },
		disconnectFn: func(DisconnectRequest) (DisconnectResult, error) { return DisconnectResult{}, nil },
	}
}

func (d *fakeDriver) Connect(ctx context.Context, req ConnectRequest) (ConnAckResult, error) {
	return d.connectDelay()
}

func (d *fakeDriver) Publish(ctx context.Context, req PublishRequest) (PublishResult, error) {
	return d.publishFn(req)
}

func (d *fakeDriver) Subscribe(ctx context.Context, req SubscribeRequest) (SubAckResult, error) {
	return d.subscribeFn(req)
}

func (d *fakeDriver) Unsubscribe(ctx context.Context, req UnsubscribeRequest) (UnsubAckResult, error) {
	return d.unsubFn(req)
}

func (d *fakeDriver) Disconnect(ctx context.Context, req DisconnectRequest) (DisconnectResult, error) {
	return d.disconnectFn(req)
}

func (d *fakeDriver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *fakeDriver) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// newTestSession builds a Session already in StateConnected, wired to a
// fakeDriver, bypassing Start (which is hard-wired to newPahoDriver) so
// Publish/Subscribe/Unsubscribe/Disconnect can be exercised directly.
func newTestSession(driver Driver, onMessage func(rpcproto.Mqtt5Message), onDisconnect func(rpcproto.Mqtt5Disconnect, error)) *Session {
	s := New(Config{ClientID: "test-client", Host: "localhost", Port: 1883}, onMessage, onDisconnect)
	s.driver = driver
	s.state = StateConnected
	return s
}
