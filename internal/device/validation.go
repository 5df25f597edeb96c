package device

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxHostnameLength = 255
	maxMACLength      = 17

	// LocalhostName is accepted as an IP address and probed without a command.
	LocalhostName = "localhost"
)

var macRegex = regexp.MustCompile(`^(?:[0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$|^(?:[0-9A-Fa-f]{2}-){5}[0-9A-Fa-f]{2}$`)

var validDeviceTypes map[DeviceType]struct{}

func init() {
	validDeviceTypes = make(map[DeviceType]struct{}, len(AllDeviceTypes()))
	for _, t := range AllDeviceTypes() {
		validDeviceTypes[t] = struct{}{}
	}
}

// Normalize trims text fields, upper-cases the type, defaults it to
// OTHER and clears empty optional addresses. It does not validate.
func Normalize(d *Device) {
	d.Hostname = strings.TrimSpace(d.Hostname)
	d.Notes = strings.TrimSpace(d.Notes)
	d.DeviceType = DeviceType(strings.ToUpper(strings.TrimSpace(string(d.DeviceType))))
	if d.DeviceType == "" {
		d.DeviceType = DeviceTypeOther
	}
	d.IPAddress = trimOptional(d.IPAddress)
	d.MACAddress = trimOptional(d.MACAddress)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	return StringPtr(strings.TrimSpace(*s))
}

// ValidateDevice checks every field and returns the first failure,
// wrapped so it matches both ErrInvalidDevice and the field error.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}
	if err := ValidateHostname(d.Hostname); err != nil {
		return invalid(err)
	}
	if d.IPAddress != nil {
		if err := ValidateIPAddress(*d.IPAddress); err != nil {
			return invalid(err)
		}
	}
	if d.MACAddress != nil {
		if err := ValidateMACAddress(*d.MACAddress); err != nil {
			return invalid(err)
		}
	}
	if err := ValidateDeviceType(d.DeviceType); err != nil {
		return invalid(err)
	}
	return nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidDevice, err)
}

// ValidateHostname requires a non-blank hostname of at most 255 characters.
func ValidateHostname(hostname string) error {
	if strings.TrimSpace(hostname) == "" {
		return fmt.Errorf("%w: hostname is required", ErrInvalidHostname)
	}
	if utf8.RuneCountInString(hostname) > maxHostnameLength {
		return fmt.Errorf("%w: hostname exceeds %d characters", ErrInvalidHostname, maxHostnameLength)
	}
	return nil
}

// ValidateIPAddress accepts IPv4, IPv6 and the literal "localhost".
func ValidateIPAddress(ip string) error {
	if ip == LocalhostName {
		return nil
	}
	if _, err := netip.ParseAddr(ip); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidIPAddress, ip)
	}
	return nil
}

// ValidateMACAddress accepts six hex octets separated consistently by
// colons or hyphens.
func ValidateMACAddress(mac string) error {
	if len(mac) > maxMACLength || !macRegex.MatchString(mac) {
		return fmt.Errorf("%w: %q", ErrInvalidMACAddress, mac)
	}
	return nil
}

// ValidateDeviceType checks t against AllDeviceTypes.
func ValidateDeviceType(t DeviceType) error {
	if _, ok := validDeviceTypes[t]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDeviceType, t)
	}
	return nil
}

// ParseDeviceType parses a case-insensitive type name.
func ParseDeviceType(s string) (DeviceType, error) {
	t := DeviceType(strings.ToUpper(strings.TrimSpace(s)))
	if err := ValidateDeviceType(t); err != nil {
		return "", err
	}
	return t, nil
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.New().String()
}
