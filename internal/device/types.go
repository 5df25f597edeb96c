package device

import "time"

// DeviceType classifies a device.
type DeviceType string //nolint:revive // device.DeviceType reads better than device.Type at call sites

// Device types.
const (
	DeviceTypeComputer DeviceType = "COMPUTER"
	DeviceTypeServer   DeviceType = "SERVER"
	DeviceTypeRouter   DeviceType = "ROUTER"
	DeviceTypeSwitch   DeviceType = "SWITCH"
	DeviceTypePrinter  DeviceType = "PRINTER"
	DeviceTypeMobile   DeviceType = "MOBILE"
	DeviceTypeIoT      DeviceType = "IOT"
	DeviceTypeOther    DeviceType = "OTHER"
)

// AllDeviceTypes returns every valid device type in display order.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceTypeComputer,
		DeviceTypeServer,
		DeviceTypeRouter,
		DeviceTypeSwitch,
		DeviceTypePrinter,
		DeviceTypeMobile,
		DeviceTypeIoT,
		DeviceTypeOther,
	}
}

// Status history sources.
const (
	StatusSourceMonitor = "monitor"
	StatusSourceCheck   = "check"
	StatusSourcePromote = "promote"
)

// Device is a tracked network endpoint.
// This matches the devices table in migrations/20260301_090000_inventory.up.sql.
type Device struct {
	ID       string `json:"id"`
	Hostname string `json:"hostname"`

	IPAddress  *string `json:"ip_address"`
	MACAddress *string `json:"mac_address"`

	DeviceType DeviceType `json:"device_type"`
	Notes      string     `json:"notes"`

	// Photo is a blob store key, empty when no photo is attached.
	Photo string `json:"photo,omitempty"`

	// IsOnline is the last observed reachability.
	IsOnline bool `json:"is_online"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns an independent copy. Pointer fields are cloned so the
// registry cache cannot be mutated through a returned device.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.IPAddress = cloneString(d.IPAddress)
	cpy.MACAddress = cloneString(d.MACAddress)
	return &cpy
}

// IP returns the IP address or "" when unset.
func (d *Device) IP() string {
	if d == nil || d.IPAddress == nil {
		return ""
	}
	return *d.IPAddress
}

// Filter narrows ListDevices. Zero values match everything.
type Filter struct {
	Type     DeviceType
	IsOnline *bool
}

// Matches reports whether d passes the filter.
func (f Filter) Matches(d *Device) bool {
	if f.Type != "" && d.DeviceType != f.Type {
		return false
	}
	if f.IsOnline != nil && d.IsOnline != *f.IsOnline {
		return false
	}
	return true
}

// StringPtr returns a pointer to s, or nil for an empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
