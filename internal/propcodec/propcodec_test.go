package propcodec

import (
	"testing"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

func TestDropV5OnlyStripsFieldsForV311(t *testing.T) {
	props := &rpcproto.MqttProperties{
		ContentType:    "text/plain",
		UserProperties: []rpcproto.MqttUserProperty{{Key: "k", Value: "v"}},
	}
	out := DropV5Only(V311, props)
	if out.ContentType != "" || out.UserProperties != nil {
		t.Errorf("want v5-only fields dropped, got %#v", out)
	}
}

func TestDropV5OnlyPassesThroughForV5(t *testing.T) {
	props := &rpcproto.MqttProperties{ContentType: "text/plain"}
	out := DropV5Only(V5, props)
	if out.ContentType != "text/plain" {
		t.Errorf("want v5 session to keep content_type, got %#v", out)
	}
}

func TestDropV5OnlyNilInput(t *testing.T) {
	if out := DropV5Only(V311, nil); out != nil {
		t.Errorf("want nil passed through unchanged, got %#v", out)
	}
}

func TestBuildSubscribePropertiesMergesSubscriptionID(t *testing.T) {
	id := uint32(42)
	props := &rpcproto.MqttProperties{UserProperties: []rpcproto.MqttUserProperty{{Key: "k", Value: "v"}}}

	out := BuildSubscribeProperties(V5, props, &id)
	if out == nil || out.SubscriptionIdentifier == nil || *out.SubscriptionIdentifier != id {
		t.Fatalf("want subscription_id %d merged in, got %#v", id, out)
	}
	if len(out.UserProperties) != 1 {
		t.Errorf("want the caller's user properties preserved alongside subscription_id, got %#v", out.UserProperties)
	}
}

func TestBuildSubscribePropertiesNoSubscriptionID(t *testing.T) {
	out := BuildSubscribeProperties(V5, nil, nil)
	if out != nil {
		t.Errorf("want nil properties with no subscription id and no caller props, got %#v", out)
	}
}

func TestSubscriptionIdentifierVarintRange(t *testing.T) {
	out := SubscriptionIdentifierVarint(268435455)
	if out.SubscriptionIdentifier == nil || *out.SubscriptionIdentifier != 268435455 {
		t.Errorf("unexpected subscription identifier property: %#v", out)
	}
}
