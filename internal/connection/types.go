package connection

import (
	"slices"
	"strings"
	"time"
)

// Type is the physical medium of a connection.
type Type string

// Connection types.
const (
	TypeWiFi Type = "WIFI"
	TypeLAN  Type = "LAN"
)

// DefaultType is used when a request omits the type.
const DefaultType = TypeLAN

// AllTypes returns every valid connection type.
func AllTypes() []Type {
	return []Type{TypeWiFi, TypeLAN}
}

// ParseType accepts a case-insensitive type name. Empty means DefaultType.
func ParseType(s string) (Type, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DefaultType, nil
	}
	t := Type(s)
	if !slices.Contains(AllTypes(), t) {
		return "", ErrInvalidType
	}
	return t, nil
}

// Connection is a directed edge from SourceDevice to TargetDevice.
type Connection struct {
	ID             string `json:"id"`
	SourceDevice   string `json:"source_device"`
	TargetDevice   string `json:"target_device"`
	ConnectionType Type   `json:"connection_type"`

	// Hostnames are resolved on read and never stored.
	SourceDeviceHostname string `json:"source_device_hostname"`
	TargetDeviceHostname string `json:"target_device_hostname"`

	CreatedAt time.Time `json:"created_at"`
}

// Touches reports whether deviceID is either endpoint.
func (c *Connection) Touches(deviceID string) bool {
	return c.SourceDevice == deviceID || c.TargetDevice == deviceID
}
