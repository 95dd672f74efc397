package registry

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"github.com/talDoFlemis/badezimmer/pkg/device"
	"github.com/talDoFlemis/badezimmer/pkg/tcp"
	"github.com/talDoFlemis/badezimmer/pkg/wire"
)

// SendActuatorCommand dispatches an action to a known actuator over a
// short-lived TCP connection and returns the device's message. Failures
// come back as wire.ErrorDetails carrying the closed taxonomy.
func (r *Registry) SendActuatorCommand(ctx context.Context, deviceID string, action wire.ActuatorAction) (string, error) {
	entry, err := r.Get(deviceID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return "", wire.ErrorDetails{
				Code:    wire.ErrorCodeDeviceNotFound,
				Message: fmt.Sprintf("no device with id %q", deviceID),
			}
		}
		return "", err
	}

	if entry.Kind != wire.KindActuator {
		return "", wire.ErrorDetails{
			Code:     wire.ErrorCodeInvalidCommand,
			Message:  fmt.Sprintf("device %q is not an actuator", deviceID),
			Metadata: map[string]string{"kind": entry.Kind.String()},
		}
	}

	if entry.Status == wire.StatusOffline {
		return "", wire.ErrorDetails{
			Code:    wire.ErrorCodeDeviceOffline,
			Message: fmt.Sprintf("device %q is offline", deviceID),
		}
	}

	if len(entry.Addresses) == 0 {
		return "", wire.ErrorDetails{
			Code:    wire.ErrorCodeDeviceOffline,
			Message: fmt.Sprintf("device %q advertised no addresses", deviceID),
		}
	}

	address := entry.Addresses[0]
	req := wire.SendActuatorCommandRequest{DeviceID: deviceID, Action: action}

	resp, err := tcp.SendRequest(ctx, []string{address}, entry.Port, req, r.CommandTimeout)
	if err != nil {
		log.Warn().Err(err).Str("device_id", deviceID).Msg("Command dispatch failed")
		return "", wire.ErrorDetails{
			Code:    wire.ErrorCodeDeviceOffline,
			Message: "could not reach device",
			Metadata: map[string]string{
				"address": net.JoinHostPort(address, fmt.Sprintf("%d", entry.Port)),
			},
		}
	}

	switch body := resp.(type) {
	case wire.ErrorDetails:
		// The device's error surfaces unchanged.
		return "", body
	case wire.SendActuatorCommandResponse:
		return body.Message, nil
	case wire.EmptyResponse:
		return "", nil
	default:
		return "", wire.ErrorDetails{
			Code:    wire.ErrorCodeUnknown,
			Message: fmt.Sprintf("unexpected response %T from device", resp),
		}
	}
}
