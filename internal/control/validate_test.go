package control

import (
	"testing"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

func TestValidateKeepaliveBoundaries(t *testing.T) {
	cases := []struct {
		keepalive int32
		wantErr   bool
	}{
		{0, false},
		{1, true},
		{4, true},
		{5, false},
		{65535, false},
		{65536, true},
	}
	for _, c := range cases {
		if err := validateKeepalive(c.keepalive); (err != nil) != c.wantErr {
			t.Errorf("validateKeepalive(%d): got err=%v, want error=%v", c.keepalive, err, c.wantErr)
		}
	}
}

func TestValidateSubscriptionIDBoundaries(t *testing.T) {
	cases := []struct {
		id      uint32
		wantErr bool
	}{
		{0, true},
		{1, false},
		{268435455, false},
		{268435456, true},
	}
	for _, c := range cases {
		if err := validateSubscriptionID(c.id); (err != nil) != c.wantErr {
			t.Errorf("validateSubscriptionID(%d): got err=%v, want error=%v", c.id, err, c.wantErr)
		}
	}
}

func TestValidateSubscribeFiltersRejectsEmptySet(t *testing.T) {
	if err := validateSubscribeFilters(nil); err == nil {
		t.Fatal("want error for zero filters")
	}
}

func TestValidateSubscribeFiltersRejectsEmptyFilter(t *testing.T) {
	err := validateSubscribeFilters([]rpcproto.MqttSubscribeFilter{{Filter: ""}})
	if err == nil {
		t.Fatal("want error for an empty filter string")
	}
}

func TestValidateSubscribeFiltersRejectsMismatchedQoS(t *testing.T) {
	err := validateSubscribeFilters([]rpcproto.MqttSubscribeFilter{
		{Filter: "a/b", Qos: 0},
		{Filter: "c/d", Qos: 1},
	})
	if err == nil {
		t.Fatal("want error for mismatched per-filter qos")
	}
	if got := err.Message; got != "QoS values mismatched" {
		t.Errorf("want message %q, got %q", "QoS values mismatched", got)
	}
}

func TestValidateSubscribeFiltersAcceptsMatchingOptions(t *testing.T) {
	err := validateSubscribeFilters([]rpcproto.MqttSubscribeFilter{
		{Filter: "a/b", Qos: 1, NoLocal: true, RetainHandling: 2},
		{Filter: "c/d", Qos: 1, NoLocal: true, RetainHandling: 2},
	})
	if err != nil {
		t.Errorf("filters sharing all options should be valid, got %v", err)
	}
}

func TestValidateTLSRequiresAllThreeOrNone(t *testing.T) {
	if err := validateTLS(nil); err != nil {
		t.Errorf("nil TLS should be valid, got %v", err)
	}
	err := validateTLS(&rpcproto.TLSMaterial{Cert: "cert", Key: "key"})
	if err == nil {
		t.Fatal("want error when CA list is empty but cert/key are set")
	}
	if got := err.Message; got != "CA list is empty" {
		t.Errorf("want message %q, got %q", "CA list is empty", got)
	}
}

func TestParseProtocolVersion(t *testing.T) {
	if v, err := parseProtocolVersion("v3.1.1"); err != nil {
		t.Errorf("v3.1.1 should parse, got %v", err)
	} else if v != 0 {
		t.Errorf("want V311 (0), got %v", v)
	}
	if _, err := parseProtocolVersion("v2.0"); err == nil {
		t.Fatal("want error for unsupported protocol version")
	}
}

func TestValidatePortBoundaries(t *testing.T) {
	if err := validatePort(0); err == nil {
		t.Error("want error for port 0")
	}
	if err := validatePort(65536); err == nil {
		t.Error("want error for port 65536")
	}
	if err := validatePort(1); err != nil {
		t.Errorf("port 1 should be valid, got %v", err)
	}
}

func TestValidateTimeoutRejectsSubOneSecond(t *testing.T) {
	if err := validateTimeout(0.999); err == nil {
		t.Error("want error for timeout below 1 second")
	}
	if err := validateTimeout(1.0); err != nil {
		t.Errorf("timeout 1.0 should be valid, got %v", err)
	}
}
