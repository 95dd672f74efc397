package device

import "errors"

var (
	// ErrNotFound indicates a device id is not in the registry.
	ErrNotFound = errors.New("device not found")

	// ErrOffline indicates the device failed its last liveness probe or
	// could not be reached for a command.
	ErrOffline = errors.New("device offline")

	// ErrInvalidCommand indicates a command the target cannot execute,
	// such as an actuator action sent to a sensor.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrValidation indicates a command payload failed schema validation.
	ErrValidation = errors.New("validation error")
)
