package mqtt

import "fmt"

// TopicPrefix is the root of every netmap topic.
const TopicPrefix = "netmap"

// Topics builds netmap MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.DeviceStatus("0b6c...")            // netmap/device/0b6c.../status
//	topics.Inventory("connection", "create")  // netmap/inventory/connection/create
type Topics struct{}

// SystemStatus is where the service announces itself. It also carries the LWT.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// DeviceStatus carries the retained reachability of one device.
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/status", TopicPrefix, deviceID)
}

// AllDeviceStatuses matches every device status topic.
func (Topics) AllDeviceStatuses() string {
	return TopicPrefix + "/device/+/status"
}

// Inventory carries a mutation of an inventory entity.
func (Topics) Inventory(entity, action string) string {
	return fmt.Sprintf("%s/inventory/%s/%s", TopicPrefix, entity, action)
}

// AllInventory matches every inventory mutation topic.
func (Topics) AllInventory() string {
	return TopicPrefix + "/inventory/#"
}

// DiscoveryResult carries the candidates of a completed scan.
func (Topics) DiscoveryResult() string {
	return TopicPrefix + "/discovery/result"
}
