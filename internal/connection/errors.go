package connection

import "errors"

// Domain errors for connection operations.
var (
	// ErrConnectionNotFound is returned when a connection ID does not exist.
	ErrConnectionNotFound = errors.New("connection: not found")

	// ErrInvalidConnection is the umbrella validation error.
	ErrInvalidConnection = errors.New("connection: invalid connection")

	// ErrSelfConnection is returned when source and target are the same device.
	ErrSelfConnection = errors.New("connection: source and target must differ")

	// ErrInvalidType is returned for a connection type other than WIFI or LAN.
	ErrInvalidType = errors.New("connection: invalid connection type")

	// ErrDeviceNotFound is returned when an endpoint device does not exist.
	ErrDeviceNotFound = errors.New("connection: endpoint device not found")

	// ErrReverseExists is returned when the opposite direction is already linked.
	ErrReverseExists = errors.New("connection: reverse connection already exists")
)
