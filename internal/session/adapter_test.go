package session

import (
	"context"
	"testing"
	"time"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/propcodec"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

func TestPublishAgainstConnectedSession(t *testing.T) {
	driver := newFakeDriver()
	s := newTestSession(driver, nil, nil)

	result, err := s.Publish(context.Background(), time.Second, "t/topic", []byte("hi"), 1, false, nil)
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	published, ok := result.(PublishedResult)
	if !ok {
		t.Fatalf("want PublishedResult, got %T", result)
	}
	if published.ReasonCode != 0 {
		t.Errorf("want reason code 0, got %d", published.ReasonCode)
	}
}

func TestPublishRejectedWhenNotConnected(t *testing.T) {
	driver := newFakeDriver()
	s := newTestSession(driver, nil, nil)
	s.state = StateNew

	if _, err := s.Publish(context.Background(), time.Second, "t", nil, 0, false, nil); err == nil {
		t.Fatal("want error publishing on a non-connected session")
	}
}

func TestPublishTimeoutDiscardsLateResult(t *testing.T) {
	driver := newFakeDriver()
	release := make(chan struct{})
	driver.publishFn = func(PublishRequest) (PublishResult, error) {
		<-release
		return PublishResult{ReasonCode: 0}, nil
	}
	s := newTestSession(driver, nil, nil)

	_, err := s.Publish(context.Background(), 10*time.Millisecond, "t", nil, 1, false, nil)
	if err == nil {
		t.Fatal("want timeout error")
	}
	close(release)
	// give the late goroutine a moment to call Fulfil on the now-invalid op
	time.Sleep(20 * time.Millisecond)
}

func TestSubscribeGrantsRequestedQoS(t *testing.T) {
	driver := newFakeDriver()
	s := newTestSession(driver, nil, nil)

	result, err := s.Subscribe(context.Background(), time.Second, []string{"a/b", "a/c"}, 2, false, false, 0, nil, nil)
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	sub, ok := result.(SubscribedResult)
	if !ok {
		t.Fatalf("want SubscribedResult, got %T", result)
	}
	if len(sub.GrantedQoS) != 2 || sub.GrantedQoS[0] != 2 || sub.GrantedQoS[1] != 2 {
		t.Errorf("unexpected granted qos list: %v", sub.GrantedQoS)
	}
}

func TestSubscribeWithSubscriptionIDReachesDriverProperties(t *testing.T) {
	driver := newFakeDriver()
	var gotProps *rpcproto.MqttProperties
	driver.subscribeFn = func(req SubscribeRequest) (SubAckResult, error) {
		gotProps = req.Properties
		return SubAckResult{GrantedQoS: []int32{1}}, nil
	}
	s := newTestSession(driver, nil, nil)
	s.cfg.Version = propcodec.V5

	subID := uint32(7)
	if _, err := s.Subscribe(context.Background(), time.Second, []string{"a/b"}, 1, false, false, 0, &subID, nil); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	if gotProps == nil || gotProps.SubscriptionIdentifier == nil || *gotProps.SubscriptionIdentifier != subID {
		t.Fatalf("want subscription_id %d to reach the driver's properties, got %#v", subID, gotProps)
	}
}

func TestUnsubscribe(t *testing.T) {
	driver := newFakeDriver()
	s := newTestSession(driver, nil, nil)

	result, err := s.Unsubscribe(context.Background(), time.Second, []string{"a/b"}, nil)
	if err != nil {
		t.Fatalf("Unsubscribe returned error: %v", err)
	}
	if _, ok := result.(UnsubscribedResult); !ok {
		t.Fatalf("want UnsubscribedResult, got %T", result)
	}
}

func TestDisconnectClosesDriverAndIsIdempotent(t *testing.T) {
	driver := newFakeDriver()
	s := newTestSession(driver, nil, nil)

	result, err := s.Disconnect(context.Background(), time.Second, 0, nil)
	if err != nil {
		t.Fatalf("Disconnect returned error: %v", err)
	}
	if _, ok := result.(DisconnectedResult); !ok {
		t.Fatalf("want DisconnectedResult, got %T", result)
	}
	if !driver.isClosed() {
		t.Error("want driver closed after Disconnect")
	}

	// idempotent: a second Disconnect on an already-closed session is a
	// no-op success, not an error.
	result2, err := s.Disconnect(context.Background(), time.Second, 0, nil)
	if err != nil {
		t.Fatalf("second Disconnect returned error: %v", err)
	}
	if _, ok := result2.(DisconnectedResult); !ok {
		t.Fatalf("want DisconnectedResult on repeat disconnect, got %T", result2)
	}
}

func TestUnsolicitedDisconnectInvokesCallback(t *testing.T) {
	driver := newFakeDriver()
	var got *rpcproto.Mqtt5Disconnect
	done := make(chan struct{})
	s := newTestSession(driver, nil, func(d rpcproto.Mqtt5Disconnect, err error) {
		got = &d
		close(done)
	})

	s.handleLibraryDisconnect(137, rpcproto.MqttProperties{ReasonString: "keepalive expired"})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onDisconnect callback was not invoked")
	}
	if got == nil || got.ReasonCode != 137 {
		t.Fatalf("unexpected disconnect payload: %#v", got)
	}
}

func TestIncomingMessageInvokesCallback(t *testing.T) {
	driver := newFakeDriver()
	var got *rpcproto.Mqtt5Message
	done := make(chan struct{})
	s := newTestSession(driver, func(m rpcproto.Mqtt5Message) {
		got = &m
		close(done)
	}, nil)

	s.handleLibraryMessage("a/b", []byte("payload"), 1, true, rpcproto.MqttProperties{})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onMessage callback was not invoked")
	}
	if got == nil || got.Topic != "a/b" || string(got.Payload) != "payload" {
		t.Fatalf("unexpected message payload: %#v", got)
	}
}
