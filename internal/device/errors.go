package device

import "errors"

// Domain errors for the device package.
//
// Validation failures wrap ErrInvalidDevice together with the specific
// field error, so both of these hold for an empty hostname:
//
//	errors.Is(err, device.ErrInvalidDevice)
//	errors.Is(err, device.ErrInvalidHostname)
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with an ID that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidHostname is returned when the hostname is empty or too long.
	ErrInvalidHostname = errors.New("device: invalid hostname")

	// ErrInvalidIPAddress is returned when the IP address does not parse.
	ErrInvalidIPAddress = errors.New("device: invalid IP address")

	// ErrInvalidMACAddress is returned when the MAC address is malformed.
	ErrInvalidMACAddress = errors.New("device: invalid MAC address")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrNoIPAddress is returned when an operation needs an IP the device lacks.
	ErrNoIPAddress = errors.New("device: device has no IP address")
)
