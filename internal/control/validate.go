// Package control implements ControlEndpoint, the inbound gRPC service
// through which the test-orchestration controller drives one agent
// process (spec.md §4.5). It validates every request before touching a
// session, maps failures onto the status codes spec.md §6.2 names, and
// otherwise is a thin dispatcher onto internal/session and
// internal/registry.
package control

import (
	"strings"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/apperr"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/propcodec"
	"github.com/life-stream-dev/mqtt-harness-agent/internal/rpcproto"
)

func validateNonEmpty(field, value string) *apperr.Error {
	if strings.TrimSpace(value) == "" {
		return apperr.New(apperr.KindValidation, "%s is empty", field)
	}
	return nil
}

func validatePort(port int32) *apperr.Error {
	if port < 1 || port > 65535 {
		return apperr.New(apperr.KindValidation, "port %d out of range 1..65535", port)
	}
	return nil
}

func validateKeepalive(keepalive int32) *apperr.Error {
	if keepalive == 0 {
		return nil
	}
	if keepalive < 5 || keepalive > 65535 {
		return apperr.New(apperr.KindValidation, "keepalive %d out of range 0 or 5..65535", keepalive)
	}
	return nil
}

func validateTimeout(seconds float64) *apperr.Error {
	if seconds < 1 {
		return apperr.New(apperr.KindValidation, "timeout %.3f is below the 1 second minimum", seconds)
	}
	return nil
}

func validateReason(reason int32) *apperr.Error {
	if reason < 0 || reason > 255 {
		return apperr.New(apperr.KindValidation, "reason %d out of range 0..255", reason)
	}
	return nil
}

func validateQoS(qos int32) *apperr.Error {
	if qos < 0 || qos > 2 {
		return apperr.New(apperr.KindValidation, "qos %d out of range 0..2", qos)
	}
	return nil
}

func validateRetainHandling(rh int32) *apperr.Error {
	if rh < 0 || rh > 2 {
		return apperr.New(apperr.KindValidation, "retain_handling %d out of range 0..2", rh)
	}
	return nil
}

func validateSubscriptionID(id uint32) *apperr.Error {
	if id < 1 || id > 268435455 {
		return apperr.New(apperr.KindValidation, "subscription_id %d out of range 1..268435455", id)
	}
	return nil
}

func parseProtocolVersion(v string) (propcodec.ProtocolVersion, *apperr.Error) {
	switch v {
	case "v3.1.1":
		return propcodec.V311, nil
	case "v5.0":
		return propcodec.V5, nil
	default:
		return 0, apperr.New(apperr.KindValidation, "protocol_version %q must be v3.1.1 or v5.0", v)
	}
}

// validateTLS enforces spec.md §4.5's "all three or none" rule.
func validateTLS(tls *rpcproto.TLSMaterial) *apperr.Error {
	if tls == nil {
		return nil
	}
	if tls.CaList == "" {
		return apperr.New(apperr.KindValidation, "CA list is empty")
	}
	if tls.Cert == "" {
		return apperr.New(apperr.KindValidation, "certificate is empty")
	}
	if tls.Key == "" {
		return apperr.New(apperr.KindValidation, "key is empty")
	}
	return nil
}

// validateSubscribeFilters enforces the non-empty, per-filter-range, and
// shared-attribute rules spec.md §4.5/§8 name: every filter in one
// SubscribeMqtt call carries its own qos/no_local/retain_as_published/
// retain_handling on the wire, but the broker library this agent drives
// only accepts one options tuple per multi-filter SUBSCRIBE, so they
// must all agree before the endpoint ever reaches internal/session.
func validateSubscribeFilters(filters []rpcproto.MqttSubscribeFilter) *apperr.Error {
	if len(filters) == 0 {
		return apperr.New(apperr.KindValidation, "filters must not be empty")
	}
	first := filters[0]
	for _, f := range filters {
		if f.Filter == "" {
			return apperr.New(apperr.KindValidation, "filter must not be empty")
		}
		if verr := validateQoS(f.Qos); verr != nil {
			return verr
		}
		if verr := validateRetainHandling(f.RetainHandling); verr != nil {
			return verr
		}
		if f.Qos != first.Qos || f.NoLocal != first.NoLocal ||
			f.RetainAsPublished != first.RetainAsPublished || f.RetainHandling != first.RetainHandling {
			return apperr.New(apperr.KindValidation, "QoS values mismatched")
		}
	}
	return nil
}
