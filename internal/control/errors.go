package control

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/life-stream-dev/mqtt-harness-agent/internal/apperr"
)

// toStatus implements spec.md §6.2's status mapping: validation failures
// are InvalidArgument, an unknown connection id is NotFound, an MQTT
// library error is Internal, everything else not recognized as an
// *apperr.Error is also Internal (it escaped our own taxonomy, so
// there's no better code to give it).
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	kind, ok := apperr.KindOf(err)
	if !ok {
		return status.Error(codes.Internal, err.Error())
	}
	switch kind {
	case apperr.KindValidation:
		return status.Error(codes.InvalidArgument, err.Error())
	case apperr.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case apperr.KindTimeout:
		return status.Error(codes.Internal, "Operation timedout")
	case apperr.KindNotConnected, apperr.KindLibraryError, apperr.KindTLSSetup, apperr.KindInitialisation:
		return status.Error(codes.Internal, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
